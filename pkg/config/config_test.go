package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://api.mangadex.org", cfg.Catalog.BaseURL)
	assert.Equal(t, "en", cfg.Catalog.Language)
	assert.Equal(t, 500, cfg.Catalog.FeedLimit)
	assert.Equal(t, 5, cfg.Reader.Window)
	assert.Equal(t, 20, cfg.Recent.Capacity)
	assert.Equal(t, 3, cfg.Reader.Retry.Attempts)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Reader, cfg.Reader)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
catalog:
  language: es
  timeout: 5s
reader:
  window: 3
  retry:
    attempts: 5
    base_delay: 100ms
recent:
  capacity: 10
storage:
  path: /tmp/reader.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "es", cfg.Catalog.Language)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Reader.Window)
	assert.Equal(t, 5, cfg.Reader.Retry.Attempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Reader.Retry.BaseDelay)
	// Untouched fields keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Reader.Retry.MaxDelay)
	assert.Equal(t, "https://api.mangadex.org", cfg.Catalog.BaseURL)
	assert.Equal(t, 10, cfg.Recent.Capacity)
	assert.Equal(t, "/tmp/reader.db", cfg.Storage.Path)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Reader.Window)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero window":    "reader:\n  window: 0\n",
		"zero capacity":  "recent:\n  capacity: 0\n",
		"feed too large": "catalog:\n  feed_limit: 900\n",
		"bad level":      "logging:\n  console:\n    level: loud\n",
		"unknown field":  "reader:\n  lookahead: 4\n",
		"not yaml":       "reader: [\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.db"), expandPath("~/x.db"))
	assert.Equal(t, "/abs/x.db", expandPath("/abs/x.db"))
}

func TestDumpRoundTrip(t *testing.T) {
	out, err := Default().Dump()
	require.NoError(t, err)
	assert.Contains(t, string(out), "window: 5")

	cfg, err := parse(out, Default())
	require.NoError(t, err)
	assert.Equal(t, Default().Reader, cfg.Reader)
}

func TestPrepareLogger(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "logs", "reader.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "debug", Destination: dest, Mode: "overwrite"},
	}

	log, err := conf.Prepare()
	require.NoError(t, err)
	log.Debug("hello from test")
	require.NoError(t, log.Sync())

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello from test")
}

func TestPrepareLoggerDisabled(t *testing.T) {
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none"},
	}
	log, err := conf.Prepare()
	require.NoError(t, err)
	assert.NotNil(t, log)
}
