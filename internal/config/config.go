package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"roomvac/internal/registry"
)

// FeedConfig describes the calendar feed.
type FeedConfig struct {
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// URL is an http(s) endpoint, a file:// URL or a local path.
	URL string `yaml:"url" json:"url"`
	// TimeoutSeconds bounds a single HTTP fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// RegistryConfig locates the room registry and selects tracked rooms.
type RegistryConfig struct {
	Path         string `yaml:"path" json:"path"`
	IDColumn     string `yaml:"id_column" json:"id_column"`
	PolicyColumn string `yaml:"policy_column" json:"policy_column"`
	// Policy is the usage-policy value whose rooms are reported.
	Policy string `yaml:"policy" json:"policy"`
}

// WindowConfig is the daily scan window [StartHour, EndHour) in the display
// timezone. EndHour 24 means midnight at the start of the next day.
type WindowConfig struct {
	StartHour int `yaml:"start_hour" json:"start_hour"`
	EndHour   int `yaml:"end_hour" json:"end_hour"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for serve mode.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address used in serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone for the window, floating feed times and
	// rendered clock hours. Empty means the process's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// rebuilding the report in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheTTLSeconds is how long serve mode reuses a report before an HTTP
	// request triggers a rebuild.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Feed     FeedConfig     `yaml:"feed" json:"feed"`
	Registry RegistryConfig `yaml:"registry" json:"registry"`
	Window   WindowConfig   `yaml:"window" json:"window"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "",
		RefreshCron:     "*/15 * * * *",
		CacheTTLSeconds: 300,
		LogLevel:        "info",
		Feed: FeedConfig{
			ID:             "timeedit",
			URL:            "https://cloud.timeedit.net/itu/web/public/ri6Q58Z5Q087ZyQYZnQ6750.ics",
			TimeoutSeconds: 15,
		},
		Registry: RegistryConfig{
			Path:         "./rooms.csv",
			IDColumn:     registry.DefaultIDColumn,
			PolicyColumn: registry.DefaultPolicyColumn,
			Policy:       registry.DefaultPolicy,
		},
		Window: WindowConfig{
			StartHour: 7,
			EndHour:   24,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = def.CacheTTLSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Feed.ID == "" {
		c.Feed.ID = def.Feed.ID
	}
	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = def.Feed.TimeoutSeconds
	}
	if c.Registry.IDColumn == "" {
		c.Registry.IDColumn = def.Registry.IDColumn
	}
	if c.Registry.PolicyColumn == "" {
		c.Registry.PolicyColumn = def.Registry.PolicyColumn
	}
	if c.Registry.Policy == "" {
		c.Registry.Policy = def.Registry.Policy
	}
	// A zero window is an unset window; 0..0 is never valid.
	if c.Window.StartHour == 0 && c.Window.EndHour == 0 {
		c.Window = def.Window
	}
}

// Validate reports configuration errors that would make every run fail.
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.URL == "" {
		errs = append(errs, errors.New("feed.url is empty"))
	}
	if c.Registry.Path == "" {
		errs = append(errs, errors.New("registry.path is empty"))
	}
	if w := c.Window; w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		errs = append(errs, fmt.Errorf("window: need 0 <= start_hour < end_hour <= 24, got %d..%d", w.StartHour, w.EndHour))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; empty selects time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FeedTimeout returns the per-fetch HTTP timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long serve mode reuses a report.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RegistryOptions converts the registry section for registry.Load.
func (c *Config) RegistryOptions() registry.Options {
	return registry.Options{
		IDColumn:     c.Registry.IDColumn,
		PolicyColumn: c.Registry.PolicyColumn,
		Policy:       c.Registry.Policy,
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Load does not validate; callers apply CLI overrides first and then call
// Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".roomvac-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
