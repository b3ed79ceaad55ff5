package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/m365-crawler/internal/crawler"
	"github.com/custodia-labs/m365-crawler/internal/crawler/config"
	"github.com/custodia-labs/m365-crawler/internal/graph"
	"github.com/custodia-labs/m365-crawler/internal/index/sqlite"
	"github.com/custodia-labs/m365-crawler/internal/roles"
)

var (
	configPath string
	indexPath  string
)

// crawlRunner is any orchestrator the crawl subcommands can start.
type crawlRunner interface {
	Crawl(ctx context.Context) error
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one of the Microsoft 365 crawlers",
}

var crawlOneDriveCmd = &cobra.Command{
	Use:   "onedrive",
	Short: "Crawl OneDrive and SharePoint document libraries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(cmd.Context(), func(deps crawler.Deps, cfg *config.Config) (crawlRunner, error) {
			return crawler.NewOneDrive(deps, cfg)
		})
	},
}

var crawlOneNoteCmd = &cobra.Command{
	Use:   "onenote",
	Short: "Crawl OneNote notebooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(cmd.Context(), func(deps crawler.Deps, cfg *config.Config) (crawlRunner, error) {
			return crawler.NewOneNote(deps, cfg), nil
		})
	},
}

var crawlTeamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Crawl Teams channel messages and chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrawl(cmd.Context(), func(deps crawler.Deps, cfg *config.Config) (crawlRunner, error) {
			return crawler.NewTeams(deps, cfg), nil
		})
	},
}

func init() {
	crawlCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "m365crawl.toml",
		"path to the crawl config file")
	crawlCmd.PersistentFlags().StringVar(&indexPath, "index", "m365crawl.db",
		"path to the local index database")

	crawlCmd.AddCommand(crawlOneDriveCmd, crawlOneNoteCmd, crawlTeamsCmd)
	rootCmd.AddCommand(crawlCmd)
}

// runCrawl loads config, wires the shared collaborators and runs one
// orchestrator until it finishes or the process is signalled.
func runCrawl(parent context.Context, build func(crawler.Deps, *config.Config) (crawlRunner, error)) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	params, err := loadParams(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Parse(params)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := slog.Default()

	tokens, err := graph.NewClientCredentialsSource(graph.Credentials{
		Tenant:       cfg.Tenant,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	},
		graph.WithAuthTimeout(cfg.AccessTimeout),
		graph.WithRefreshInterval(cfg.RefreshTokenInterval),
		graph.WithAuthLogger(log),
	)
	if err != nil {
		return err
	}
	defer tokens.Close()

	client := graph.NewClient(tokens,
		graph.WithLogger(log),
		graph.WithCacheSizes(cfg.UserTypeCacheSize, cfg.GroupIDCacheSize),
	)
	defer client.Close()

	store, err := sqlite.Open(indexPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := build(crawler.Deps{
		Client:   client,
		Resolver: roles.New(client, roles.DefaultEncoder(), log),
		Callback: store,
		Failures: store,
		Logger:   log,
	}, cfg)
	if err != nil {
		return err
	}
	return runner.Crawl(ctx)
}

// loadParams reads the TOML config file into the flat string parameter
// map the crawler config parser expects. Scalar values of any TOML type
// are accepted and stringified.
func loadParams(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	params := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			params[key] = v
		case []any:
			return nil, fmt.Errorf("config key %s: lists are not supported, use a comma-separated string", key)
		case map[string]any:
			return nil, fmt.Errorf("config key %s: tables are not supported", key)
		default:
			params[key] = fmt.Sprint(v)
		}
	}
	return params, nil
}
