package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "KeyFlow", cfg.Application.Name)
	assert.Equal(t, 100, cfg.Monitor.Keyboard.MaxEventsPerSecond)
	assert.Equal(t, 100, cfg.Storage.BatchWriter.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Storage.BatchWriter.FlushInterval.Std())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFrom_OverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
application:
  name: MyApp
  debug: true
monitor:
  keyboard:
    intercept: true
    suppress_hotkeys:
      - Cmd+Shift+Space
    max_events_per_second: 50
storage:
  sqlite:
    path: /tmp/test.db
    conn_max_lifetime: 30m
  batch_writer:
    flush_interval: 2s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "MyApp", cfg.Application.Name)
	assert.True(t, cfg.Application.Debug)
	assert.True(t, cfg.Monitor.Keyboard.Intercept)
	assert.Equal(t, []string{"Cmd+Shift+Space"}, cfg.Monitor.Keyboard.SuppressHotkeys)
	assert.Equal(t, 50, cfg.Monitor.Keyboard.MaxEventsPerSecond)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SQLite.ConnMaxLifetime.Std())
	assert.Equal(t, 2*time.Second, cfg.Storage.BatchWriter.FlushInterval.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// 未覆盖的字段保持默认值
	assert.Equal(t, 4, cfg.Storage.SQLite.MaxOpenConns)
	assert.Equal(t, 100, cfg.Storage.BatchWriter.BatchSize)
}

func TestLoadFrom_ExpandsEnvVars(t *testing.T) {
	t.Setenv("KEYFLOW_TEST_DIR", "/data/keyflow")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  sqlite:
    path: ${KEYFLOW_TEST_DIR}/events.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/keyflow/events.db", cfg.Storage.SQLite.Path)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor: ["), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestLoadFrom_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  sqlite:
    conn_max_lifetime: not-a-duration
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}
