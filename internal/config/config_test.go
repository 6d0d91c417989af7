package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parleyio/parley/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "", cfg.Root, "root defaults to the dialog file's choice")
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.5, cfg.Turn.InterruptionThreshold)
	assert.Equal(t, 10*time.Second, cfg.Turn.CallTimeout)
	assert.Nil(t, cfg.Redis)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
dialogs: bot.yaml
root: support
log_level: debug
turn:
  interruption_threshold: 0.8
redis:
  addr: localhost:6379
  ttl: 24h
mcp:
  sse_port: 8099
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "bot.yaml", cfg.Dialogs)
	assert.Equal(t, "support", cfg.Root)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.8, cfg.Turn.InterruptionThreshold)
	assert.Equal(t, 10*time.Second, cfg.Turn.CallTimeout, "unset fields keep defaults")
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 8099, cfg.MCP.SSEPort)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty addr", `addr: ""`, "addr must not be empty"},
		{"threshold out of range", "turn:\n  interruption_threshold: 1.5", "interruption_threshold"},
		{"redis without addr", "redis:\n  db: 2", "redis.addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			_, err := config.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "addr: [unclosed")
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
