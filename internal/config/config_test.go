package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MODRT_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Runtime.TickRate)
	assert.Equal(t, storage.BackendFile, cfg.Store.Backend)
	assert.Equal(t, filepath.Join("config", "modules.json"), cfg.Store.FilePath)
	assert.Equal(t, filepath.Join("config", "Friends.txt"), cfg.Friends.Path)
	assert.Equal(t, ":8088", cfg.APIAddr())
	assert.Equal(t, ":2112", cfg.MetricsAddr())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Runtime.TickRate)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
runtime:
  tick_rate_hz: 40
  config_dir: /var/lib/modrt
store:
  backend: badger
  gzip: true
  redis:
    addr: redis:6379
friends:
  watch: false
api:
  port: 9000
  token_ttl: 1h
logging:
  level: debug
  components:
    eventbus: trace
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Runtime.TickRate)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/modrt/badger", cfg.Store.BadgerDir)
	assert.Equal(t, "/var/lib/modrt/modules.json.gz", cfg.Store.FilePath)
	assert.Equal(t, "redis:6379", cfg.StorageOptions().Redis.Addr)
	assert.False(t, cfg.Friends.Watch)
	assert.Equal(t, time.Hour, cfg.API.TokenTTL)
	assert.True(t, cfg.Metrics.Enabled, "незаданные секции сохраняют значения по умолчанию")
	assert.Equal(t, logging.DEBUG, cfg.LoggingOptions().ConsoleLevel)
	assert.Equal(t, map[string]string{"eventbus": "trace"}, cfg.Logging.Components)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "runtime:\n  tick_rate_hz: 40\n")
	t.Setenv("MODRT_RUNTIME_TICK_RATE", "60")
	t.Setenv("MODRT_STORE_BACKEND", "memory")
	t.Setenv("MODRT_STORE_REDIS_DB", "3")
	t.Setenv("MODRT_API_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("MODRT_METRICS_INTERVAL", "10s")
	t.Setenv("MODRT_LOG_COMPONENTS", "api:warn,module:debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Runtime.TickRate)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.NotEmpty(t, cfg.API.JWTSecret)
	assert.Equal(t, 10*time.Second, cfg.Metrics.Interval)
	assert.Equal(t, map[string]string{"api": "warn", "module": "debug"}, cfg.Logging.Components)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "runtime:\n  tick_rate_hz: 5\n")
	t.Setenv("MODRT_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Runtime.TickRate)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"tick rate":   "runtime:\n  tick_rate_hz: 0\n",
		"backend":     "store:\n  backend: floppy\n",
		"maria dsn":   "store:\n  backend: maria\n",
		"short jwt":   "api:\n  jwt_secret: short\n",
		"log level":   "logging:\n  level: loud\n",
		"component":   "logging:\n  components:\n    api: loud\n",
		"port":        "metrics:\n  port: 70000\n",
		"broken yaml": "runtime: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
