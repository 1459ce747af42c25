package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "hci0", cfg.Bluetooth.Adapter)
	assert.Equal(t, "EasyHID", cfg.Bluetooth.DeviceName)
	assert.Equal(t, 64, cfg.Bluetooth.SendQueueDepth)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.toml")
	body := `
[bluetooth]
adapter = "hci1"
send_queue_depth = 16

[encoder]
flush_interval_ms = 4
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hci1", cfg.Bluetooth.Adapter)
	assert.Equal(t, 16, cfg.Bluetooth.SendQueueDepth)
	assert.Equal(t, 4*time.Millisecond, cfg.Encoder.FlushInterval())
	// 未覆盖的字段保持缺省
	assert.Equal(t, "EasyHID", cfg.Bluetooth.DeviceName)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Bluetooth.SendQueueDepth = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Bluetooth.Adapter = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Encoder.FlushIntervalMs = 0
	assert.Error(t, cfg.Validate())
}
