package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.HourStart)
	assert.Equal(t, 18, cfg.HourEnd)
	assert.Equal(t, 5, cfg.WindowDays)
	assert.Equal(t, "BUSY", cfg.BusyLabel)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "timezone: Europe/Berlin\nhour_start: 8\nhour_end: 20\nfeed:\n  kind: ICS\n  url: https://example.com/room.ics\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 8, cfg.HourStart)
	assert.Equal(t, 20, cfg.HourEnd)
	assert.Equal(t, 5, cfg.WindowDays)
	assert.Equal(t, FeedICS, cfg.Feed.Kind)
	assert.Equal(t, defaultFeedTimeout, cfg.Feed.Timeout)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
}

func TestLoadKeepsDefaultForAbsentHour(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantStart int
		wantEnd   int
	}{
		{name: "only start", body: "hour_start: 10\n", wantStart: 10, wantEnd: 18},
		{name: "only end", body: "hour_end: 12\n", wantStart: 9, wantEnd: 12},
		{name: "midnight start", body: "hour_start: 0\n", wantStart: 0, wantEnd: 18},
		{name: "both midnight", body: "hour_start: 0\nhour_end: 0\n", wantStart: 0, wantEnd: 0},
		{name: "neither", body: "timezone: UTC\n", wantStart: 9, wantEnd: 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, cfg.HourStart)
			assert.Equal(t, tt.wantEnd, cfg.HourEnd)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Feed.URL = "https://booking.example.com/getSchedule"
	cfg.Feed.Timeout = 3 * time.Second
	cfg.BasicAuth = &BasicAuthConfig{Username: "kiosk", Password: "secret"}

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "single hour", mutate: func(c *Config) { c.HourStart, c.HourEnd = 12, 12 }},
		{name: "inverted hours", mutate: func(c *Config) { c.HourStart, c.HourEnd = 18, 9 }, wantErr: true},
		{name: "hour past midnight", mutate: func(c *Config) { c.HourEnd = 24 }, wantErr: true},
		{name: "negative window", mutate: func(c *Config) { c.WindowDays = -1 }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "descriptor refresh", mutate: func(c *Config) { c.RefreshCron = "@every 2m" }},
		{name: "bad refresh", mutate: func(c *Config) { c.RefreshCron = "every now and then" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("KIOSK_HOUR_START", "7")
	t.Setenv("KIOSK_HOUR_END", "21")
	t.Setenv("KIOSK_FEED_URL", "https://booking.example.com/s")
	t.Setenv("KIOSK_ROOM_ID", "42")
	t.Setenv("KIOSK_WINDOW_DAYS", "not-a-number")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, 7, cfg.HourStart)
	assert.Equal(t, 21, cfg.HourEnd)
	assert.Equal(t, 5, cfg.WindowDays)
	assert.Equal(t, "https://booking.example.com/s", cfg.Feed.URL)
	assert.Equal(t, "42", cfg.Feed.RoomID)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("KIOSK_BUSY_LABEL=DOLU\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KIOSK_BUSY_LABEL") })

	require.NoError(t, LoadEnv(path))
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, "DOLU", cfg.BusyLabel)
}
