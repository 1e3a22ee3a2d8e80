package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/feedview"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/sites"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Source is an RSS or Atom feed mirrored into the index as a read-only drive.
type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type Profile struct {
	URL   string `yaml:"url"`
	Title string `yaml:"title"`
}

type SitesConfig struct {
	Listing   string `yaml:"listing"`
	SingleRow bool   `yaml:"single_row"`
}

type FeedConfig struct {
	ContentType    string `yaml:"content_type"`
	Sort           string `yaml:"sort"`
	Limit          int    `yaml:"limit"`
	RenderMode     string `yaml:"render_mode"`
	ShowDateTitles bool   `yaml:"show_date_titles"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	RefreshInterval string      `yaml:"refresh_interval"`
	Retention       string      `yaml:"retention"`
	Profile         Profile     `yaml:"profile"`
	Sites           SitesConfig `yaml:"sites"`
	Feed            FeedConfig  `yaml:"feed"`
	Log             LogConfig   `yaml:"log"`
	Sources         []Source    `yaml:"sources"`
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 7 * 24 * time.Hour
	}
	// Support "Nd" day syntax
	if len(c.Retention) > 1 && c.Retention[len(c.Retention)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(c.Retention, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(c.Retention)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) SourceNames() []string {
	var names []string
	for _, s := range c.EnabledSources() {
		names = append(names, s.Name)
	}
	return names
}

// SitesProfile is the profile in the form the sites list takes.
func (c *Config) SitesProfile() sites.Profile {
	return sites.Profile{URL: c.Profile.URL, Title: c.Profile.Title}
}

// SitesQuery is the initial sites list configuration. Values were checked by
// validate.
func (c *Config) SitesQuery() sites.Config {
	l, _ := sites.ParseListing(c.Sites.Listing)
	return sites.Config{Listing: l, SingleRow: c.Sites.SingleRow}
}

// FeedQuery is the initial feed configuration.
func (c *Config) FeedQuery() feedview.Config {
	t, err := classify.ResolveAlias(c.Feed.ContentType)
	if err != nil {
		t = classify.All
	}
	return feedview.Config{
		ContentType: t,
		Sort:        hyper.Sort(c.Feed.Sort),
		Limit:       c.Feed.Limit,
	}
}

func (c *Config) RenderMode() feedview.RenderMode {
	m, err := feedview.ParseRenderMode(c.Feed.RenderMode)
	if err != nil {
		return feedview.ModeRow
	}
	return m
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "hyperdesk", "config.yaml")
}

func IndexPath() string {
	return filepath.Join(xdg.CacheHome, "hyperdesk", "hyperdesk.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "hyperdesk", "hyperdesk.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg, defaults)
	mergeDefaultSources(&cfg, defaults)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills settings the user left out. Booleans cannot be told
// apart from an explicit false and are left alone.
func applyDefaults(cfg, defaults *Config) {
	if cfg.RefreshInterval == "" {
		cfg.RefreshInterval = defaults.RefreshInterval
	}
	if cfg.Retention == "" {
		cfg.Retention = defaults.Retention
	}
	if cfg.Profile.URL == "" {
		cfg.Profile = defaults.Profile
	}
	if cfg.Feed.ContentType == "" {
		cfg.Feed.ContentType = defaults.Feed.ContentType
	}
	if cfg.Feed.Sort == "" {
		cfg.Feed.Sort = defaults.Feed.Sort
	}
	if cfg.Feed.Limit == 0 {
		cfg.Feed.Limit = defaults.Feed.Limit
	}
	if cfg.Feed.RenderMode == "" {
		cfg.Feed.RenderMode = defaults.Feed.RenderMode
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// mergeDefaultSources keeps the user's sources, refreshes the URL and type of
// sources that share a name with a default, and appends new defaults.
func mergeDefaultSources(cfg, defaults *Config) {
	byName := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		byName[s.Name] = i
	}
	for _, d := range defaults.Sources {
		if i, ok := byName[d.Name]; ok {
			cfg.Sources[i].URL = d.URL
			cfg.Sources[i].Type = d.Type
			continue
		}
		cfg.Sources = append(cfg.Sources, d)
	}
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{"rss": true, "atom": true}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss, atom)", s.Name, s.Type)
		}
	}

	if cfg.Profile.URL != "" && hyper.Origin(cfg.Profile.URL) == "" {
		return fmt.Errorf("profile: invalid url %q", cfg.Profile.URL)
	}
	if _, err := sites.ParseListing(cfg.Sites.Listing); err != nil {
		return fmt.Errorf("sites: %w", err)
	}
	if cfg.Feed.ContentType != "" {
		if _, err := classify.ResolveAlias(cfg.Feed.ContentType); err != nil {
			return fmt.Errorf("feed: %w", err)
		}
	}
	switch hyper.Sort(cfg.Feed.Sort) {
	case "", hyper.SortCtime, hyper.SortMtime, hyper.SortName:
	default:
		return fmt.Errorf("feed: unknown sort %q (valid: ctime, mtime, name)", cfg.Feed.Sort)
	}
	if cfg.Feed.Limit < 0 {
		return fmt.Errorf("feed: limit must not be negative, got %d", cfg.Feed.Limit)
	}
	if _, err := feedview.ParseRenderMode(cfg.Feed.RenderMode); err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	return nil
}
