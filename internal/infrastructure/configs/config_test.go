package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, uint16(8090), cfg.HTTP.Port)
	assert.Equal(t, "ws://localhost:8000/ws", cfg.Upstream.WSBaseURL)
	assert.Equal(t, 10*time.Second, cfg.WS.ConnectTimeout)
	assert.False(t, cfg.WS.Reconnect.Enabled)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, uint(500), cfg.MessageLog.Capacity)
	assert.Equal(t, "substring", cfg.Classifier.NotificationMode)
	assert.Equal(t, "zap", cfg.Logger.Logger)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
upstream:
  ws_base_url: ws://rooms.example:9000/ws
ws:
  connect_timeout: 3s
  reconnect:
    enabled: true
    max_attempts: 4
classifier:
  notification_mode: envelope
message_log:
  capacity: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("UPSTREAM_HTTP_BASE_URL", "http://rooms.example:9000")
	t.Setenv("MESSAGE_LOG_CAPACITY", "75")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://rooms.example:9000/ws", cfg.Upstream.WSBaseURL)
	assert.Equal(t, "http://rooms.example:9000", cfg.Upstream.HTTPBaseURL)
	assert.Equal(t, 3*time.Second, cfg.WS.ConnectTimeout)
	assert.True(t, cfg.WS.Reconnect.Enabled)
	assert.Equal(t, uint(4), cfg.WS.Reconnect.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.WS.Reconnect.InitialInterval)
	assert.Equal(t, "envelope", cfg.Classifier.NotificationMode)
	assert.Equal(t, uint(75), cfg.MessageLog.Capacity)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
