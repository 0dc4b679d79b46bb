package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment variables (optionally from a .env file)
// override individual fields after the YAML is read.

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Europe/Istanbul"
	defaultRefreshCron = "*/5 * * * *"
	defaultHourStart   = 9
	defaultHourEnd     = 18
	defaultWindowDays  = 5
	defaultDayNames    = "tr"
	defaultBusyLabel   = "BUSY"
	defaultLogLevel    = "info"
	defaultCacheDir    = "/var/lib/kioskgrid/feed-cache"
	defaultFeedTimeout = 15 * time.Second
)

// Feed kinds.
const (
	FeedJSON = "json"
	FeedICS  = "ics"
)

// FeedConfig describes where booking records come from.
type FeedConfig struct {
	// Kind is "json" (booking backend schedule endpoint) or "ics".
	Kind string `yaml:"kind" json:"kind"`
	// URL is the endpoint polled on every refresh.
	URL string `yaml:"url" json:"url"`
	// RoomID is sent as the room_id query parameter for JSON feeds.
	RoomID string `yaml:"room_id" json:"room_id"`
	// CacheDir holds the conditional-GET cache (ETag / Last-Modified + body).
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the grid API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the grid API.
	Listen string `yaml:"listen" json:"listen"`

	// Env selects the log encoder: "production" for JSON, anything else
	// for the console encoder.
	Env string `yaml:"env" json:"env"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Timezone is the IANA timezone the kiosk displays in (e.g. "Europe/Istanbul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// controlling how often the feed is fetched and re-projected.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HourStart and HourEnd are the inclusive hour rows of the grid.
	HourStart int `yaml:"hour_start" json:"hour_start"`
	HourEnd   int `yaml:"hour_end" json:"hour_end"`

	// WindowDays is the number of day columns, starting today.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// DayNames selects the weekday label table: "tr", "tr-short" or "en".
	DayNames string `yaml:"day_names" json:"day_names"`

	// BusyLabel is written into occupied cells.
	BusyLabel string `yaml:"busy_label" json:"busy_label"`

	Feed FeedConfig `yaml:"feed" json:"feed"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Env:         "development",
		LogLevel:    defaultLogLevel,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefreshCron,
		HourStart:   defaultHourStart,
		HourEnd:     defaultHourEnd,
		WindowDays:  defaultWindowDays,
		DayNames:    defaultDayNames,
		BusyLabel:   defaultBusyLabel,
		Feed: FeedConfig{
			Kind:     FeedJSON,
			CacheDir: defaultCacheDir,
			Timeout:  defaultFeedTimeout,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. Hour bounds are never
// touched since 0 is a valid hour; Load fills absent ones from DefaultConfig
// and Validate reports bad ranges.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.WindowDays == 0 {
		c.WindowDays = defaultWindowDays
	}
	switch c.DayNames {
	case "tr", "tr-short", "en":
		// ok
	default:
		c.DayNames = defaultDayNames
	}
	if c.BusyLabel == "" {
		c.BusyLabel = defaultBusyLabel
	}

	switch strings.ToLower(c.Feed.Kind) {
	case FeedJSON, FeedICS:
		c.Feed.Kind = strings.ToLower(c.Feed.Kind)
	default:
		c.Feed.Kind = FeedJSON
	}
	if c.Feed.CacheDir == "" {
		c.Feed.CacheDir = defaultCacheDir
	}
	if c.Feed.Timeout <= 0 {
		c.Feed.Timeout = defaultFeedTimeout
	}
}

// Validate reports configuration values the grid cannot be built from.
func (c *Config) Validate() error {
	if c.HourStart < 0 || c.HourStart > 23 || c.HourEnd < 0 || c.HourEnd > 23 {
		return fmt.Errorf("config: hour range %d..%d outside 0..23", c.HourStart, c.HourEnd)
	}
	if c.HourStart > c.HourEnd {
		return fmt.Errorf("config: hour_start %d is after hour_end %d", c.HourStart, c.HourEnd)
	}
	if c.WindowDays <= 0 {
		return fmt.Errorf("config: window_days must be positive, got %d", c.WindowDays)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
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
// Environment overrides are applied afterwards by the caller via ApplyEnv.
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

	// Keys missing from the file keep their default value.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// LoadEnv reads a .env file into the process environment if present.
// A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overrides fields from KIOSK_* environment variables.
func (c *Config) ApplyEnv() {
	c.Listen = envString("KIOSK_LISTEN", c.Listen)
	c.Env = envString("KIOSK_ENV", c.Env)
	c.LogLevel = envString("KIOSK_LOG_LEVEL", c.LogLevel)
	c.Timezone = envString("KIOSK_TIMEZONE", c.Timezone)
	c.RefreshCron = envString("KIOSK_REFRESH", c.RefreshCron)
	c.HourStart = envInt("KIOSK_HOUR_START", c.HourStart)
	c.HourEnd = envInt("KIOSK_HOUR_END", c.HourEnd)
	c.WindowDays = envInt("KIOSK_WINDOW_DAYS", c.WindowDays)
	c.DayNames = envString("KIOSK_DAY_NAMES", c.DayNames)
	c.BusyLabel = envString("KIOSK_BUSY_LABEL", c.BusyLabel)
	c.Feed.Kind = envString("KIOSK_FEED_KIND", c.Feed.Kind)
	c.Feed.URL = envString("KIOSK_FEED_URL", c.Feed.URL)
	c.Feed.RoomID = envString("KIOSK_ROOM_ID", c.Feed.RoomID)
	c.Feed.CacheDir = envString("KIOSK_CACHE_DIR", c.Feed.CacheDir)
	c.Normalize()
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
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

	tmp, err := os.CreateTemp(dir, ".kioskgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
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
