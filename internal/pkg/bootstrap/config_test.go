package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 3, cfg.Checkout.MaxReserveAttempts)
	assert.Equal(t, 25*time.Millisecond, cfg.Checkout.RetryBackoffBase.Std())
	assert.Equal(t, "http://localhost:8082", cfg.Inventory.BaseURL)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
storage: mysql
checkout:
  max_reserve_attempts: 5
  retry_backoff_base: 10ms
infra:
  redis:
    enabled: true
    addr: redis:6379
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "mysql", cfg.Storage)
	assert.Equal(t, 5, cfg.Checkout.MaxReserveAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Checkout.RetryBackoffBase.Std())
	assert.True(t, cfg.Infra.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Infra.Redis.Addr)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("STORAGE", "mysql")
	t.Setenv("INVENTORY_SERVICE_URL", "http://inventory:8082")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Storage)
	assert.Equal(t, "http://inventory:8082", cfg.Inventory.BaseURL)
	assert.True(t, cfg.Infra.Kafka.Enabled)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
