// Package cli wires the cobra command tree for the m365crawl binary.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser ldflags.
	version = "dev"

	// verbose enables debug logging.
	verbose bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "m365crawl",
	Short: "Crawl Microsoft 365 content into a local search index",
	Long: `m365crawl pulls OneDrive files, OneNote notebooks and Teams conversations
out of a Microsoft 365 tenant through the Graph API and feeds them, with
resolved view permissions, into a local index.

Credentials and crawl behaviour come from a TOML config file; see the
crawl subcommands for the per-service crawlers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")
	rootCmd.Version = version
}
