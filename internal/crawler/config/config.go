// Package config parses the crawler's string key/value parameter surface
// into a typed Config. Every knob arrives as a string so the same surface
// works from TOML files, flags and host-crawler parameter maps.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when a key is absent or empty.
const (
	DefaultAccessTimeout        = 30000 * time.Millisecond
	DefaultRefreshTokenInterval = 3540 * time.Second
	DefaultCacheSize            = 10000
	DefaultNumberOfThreads      = 1
	DefaultMaxSize              = int64(10485760)
	DefaultTitleDateformat      = "2006/01/02 15:04"
)

// Config is the typed crawl configuration.
type Config struct {
	// Credentials.
	Tenant       string
	ClientID     string
	ClientSecret string

	// Client behaviour.
	AccessTimeout        time.Duration
	RefreshTokenInterval time.Duration
	UserTypeCacheSize    int
	GroupIDCacheSize     int

	// Crawl behaviour.
	NumberOfThreads    int
	MaxContentLength   int64
	MaxSize            int64
	IgnoreFolder       bool
	IgnoreError        bool
	SupportedMimetypes []string
	IncludePattern     string
	ExcludePattern     string
	DefaultPermissions []string

	// OneDrive scope selection.
	DriveID           string
	UserDriveCrawler  bool
	GroupDriveCrawler bool
	SiteDriveCrawler  bool

	// Teams scope selection and behaviour.
	TeamID              string
	ExcludeTeamIDs      []string
	IncludeVisibility   []string
	ChannelID           string
	ChatID              string
	IgnoreReplies       bool
	AppendAttachment    bool
	IgnoreSystemEvents  bool
	TitleDateformat     string
	TitleTimezoneOffset int
}

// Parse builds a Config from a string parameter map, applying defaults
// for absent keys. Malformed numeric or boolean values are errors rather
// than silent fallbacks.
func Parse(params map[string]string) (*Config, error) {
	p := parser{params: params}

	cfg := &Config{
		Tenant:       p.str("tenant"),
		ClientID:     p.str("client_id"),
		ClientSecret: p.str("client_secret"),

		AccessTimeout:        p.millis("access_timeout", DefaultAccessTimeout),
		RefreshTokenInterval: p.seconds("refresh_token_interval", DefaultRefreshTokenInterval),
		UserTypeCacheSize:    p.num("user_type_cache_size", DefaultCacheSize),
		GroupIDCacheSize:     p.num("group_id_cache_size", DefaultCacheSize),

		NumberOfThreads:    p.num("number_of_threads", DefaultNumberOfThreads),
		MaxContentLength:   p.num64("max_content_length", -1),
		MaxSize:            p.num64("max_size", DefaultMaxSize),
		IgnoreFolder:       p.flag("ignore_folder", true),
		IgnoreError:        p.flag("ignore_error", true),
		SupportedMimetypes: p.csv("supported_mimetypes"),
		IncludePattern:     p.str("include_pattern"),
		ExcludePattern:     p.str("exclude_pattern"),
		DefaultPermissions: p.csv("default_permissions"),

		DriveID:           p.str("drive_id"),
		UserDriveCrawler:  p.flag("user_drive_crawler", true),
		GroupDriveCrawler: p.flag("group_drive_crawler", true),
		SiteDriveCrawler:  p.flag("site_drive_crawler", true),

		TeamID:              p.str("team_id"),
		ExcludeTeamIDs:      p.csv("exclude_team_ids"),
		IncludeVisibility:   p.csv("include_visibility"),
		ChannelID:           p.str("channel_id"),
		ChatID:              p.str("chat_id"),
		IgnoreReplies:       p.flag("ignore_replies", false),
		AppendAttachment:    p.flag("append_attachment", false),
		IgnoreSystemEvents:  p.flag("ignore_system_events", true),
		TitleDateformat:     p.strDefault("title_dateformat", DefaultTitleDateformat),
		TitleTimezoneOffset: p.num("title_timezone_offset", 0),
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validate checks the keys without which no crawl can start.
func (c *Config) Validate() error {
	switch {
	case c.Tenant == "":
		return fmt.Errorf("config: tenant is required")
	case c.ClientID == "":
		return fmt.Errorf("config: client_id is required")
	case c.ClientSecret == "":
		return fmt.Errorf("config: client_secret is required")
	}
	return nil
}

// parser accumulates the first conversion error across lookups so Parse
// reads as one flat literal.
type parser struct {
	params map[string]string
	err    error
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.params[key])
}

func (p *parser) strDefault(key, def string) string {
	if v := p.str(key); v != "" {
		return v
	}
	return def
}

func (p *parser) num(key string, def int) int {
	v := p.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) num64(key string, def int64) int64 {
	v := p.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) flag(key string, def bool) bool {
	v := p.str(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) millis(key string, def time.Duration) time.Duration {
	v := p.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func (p *parser) seconds(key string, def time.Duration) time.Duration {
	v := p.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return time.Duration(n) * time.Second
}

func (p *parser) csv(key string) []string {
	v := p.str(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: invalid %s: %w", key, err)
	}
}
