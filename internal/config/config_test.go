package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockbookclient/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
client:
  nodes:
    - https://btc1.trezor.io
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://btc1.trezor.io"}, cfg.Client.Nodes)
	assert.Equal(t, config.DefaultRequestTimeoutMs, cfg.Client.RequestTimeoutMs)
	assert.Equal(t, config.DefaultPingIntervalSeconds, cfg.Client.PingIntervalSeconds)
	assert.Equal(t, config.DefaultHTTPTimeoutSeconds, cfg.Client.HTTPTimeoutSeconds)
	assert.False(t, cfg.Client.DisableTypeValidation)
	assert.Equal(t, config.DefaultLoggerLevel, cfg.Logger.Level)
	assert.Equal(t, config.DefaultLoggerFormat, cfg.Logger.Format)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
client:
  nodes:
    - https://btc1.trezor.io
    - https://btc2.trezor.io
  disable_type_validation: true
  request_timeout_ms: 2000
  ping_interval_seconds: 10
logger:
  level: debug
  format: text
watch:
  addresses:
    - bc1qexample
  reconnect_delay_seconds: 5
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Client.Nodes, 2)
	assert.True(t, cfg.Client.DisableTypeValidation)
	assert.Equal(t, 2000, cfg.Client.RequestTimeoutMs)
	assert.Equal(t, 10, cfg.Client.PingIntervalSeconds)
	assert.Equal(t, config.LogLevelDebug, cfg.Logger.Level)
	assert.Equal(t, config.LogFormatText, cfg.Logger.Format)
	assert.Equal(t, []string{"bc1qexample"}, cfg.Watch.Addresses)
	assert.Equal(t, 5, cfg.Watch.ReconnectDelaySeconds)
}

func TestLoadConfig_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "missing nodes",
			content: "logger:\n  level: info\n",
			errPart: "client.nodes",
		},
		{
			name:    "empty node entry",
			content: "client:\n  nodes:\n    - https://btc1.trezor.io\n    - \"  \"\n",
			errPart: "empty entry",
		},
		{
			name:    "invalid logger level",
			content: "client:\n  nodes: [https://btc1.trezor.io]\nlogger:\n  level: verbose\n",
			errPart: "logger.level",
		},
		{
			name:    "unparseable yaml",
			content: "client: [this is not\n",
			errPart: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := config.LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
