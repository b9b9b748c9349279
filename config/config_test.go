package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 256, cfg.Generation.MaxCells)
	assert.Empty(t, cfg.API.AuthUser)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shaper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  shutdown_timeout: 5s
generation:
  compute_timeout: 2m
  max_cells: 128
cache:
  backend: redis
  redis:
    addr: "localhost:6379"
    ttl: 1h
log:
  level: debug
  format: console
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Generation.ComputeTimeout)
	assert.Equal(t, 128, cfg.Generation.MaxCells)
	assert.Equal(t, 64, cfg.Generation.TireCells, "unset keys keep their defaults")
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.Redis.TTL)
	assert.Equal(t, "shaper:mesh:", cfg.Cache.Redis.KeyPrefix)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shaper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  max_workers: 2\n"), 0o644))
	t.Setenv("SHAPER_POOL_MAX_WORKERS", "8")
	t.Setenv("SHAPER_API_AUTH_USER", "dash")
	t.Setenv("SHAPER_API_AUTH_PASSWORD", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pool.MaxWorkers)
	assert.Equal(t, "dash", cfg.API.AuthUser)
	assert.Equal(t, "s3cret", cfg.API.AuthPassword)
}

func TestSetFieldsFromEnv(t *testing.T) {
	env := map[string]string{
		"SHAPER_SERVER_READ_TIMEOUT":             "3s",
		"SHAPER_GENERATION_MAX_CELLS":            "96",
		"SHAPER_GENERATION_COMPENSATE_SHRINKAGE": "true",
		"SHAPER_API_RATE_LIMIT_RPS":              "2.5",
		"SHAPER_CACHE_MAX_BYTES":                 "1024",
		"SHAPER_CACHE_REDIS_ADDR":                "redis:6379",
		"SHAPER_LOG_OUTPUT_PATHS":                "stdout, /tmp/shaper.log",
		"SHAPER_METRICS_NAMESPACE":               "rims",
		"SHAPER_UNRELATED":                       "ignored",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix, lookup))

	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 96, cfg.Generation.MaxCells)
	assert.True(t, cfg.Generation.CompensateShrinkage)
	assert.InDelta(t, 2.5, cfg.API.RateLimitRPS, 0)
	assert.EqualValues(t, 1024, cfg.Cache.MaxBytes)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, []string{"stdout", "/tmp/shaper.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, "rims", cfg.Metrics.Namespace)
}

func TestSetFieldsFromEnvBadValue(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "SHAPER_GENERATION_COMPUTE_TIMEOUT" {
			return "soon", true
		}
		return "", false
	}
	err := setFieldsFromEnv(reflect.ValueOf(Default()).Elem(), EnvPrefix, lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHAPER_GENERATION_COMPUTE_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"compute timeout", func(c *Config) { c.Generation.ComputeTimeout = 0 }, "compute_timeout"},
		{"coarse mesh", func(c *Config) { c.Generation.MaxCells = 8 }, "max_cells"},
		{"tire mesh", func(c *Config) { c.Generation.TireCells = 4 }, "tire_cells"},
		{"no workers", func(c *Config) { c.Pool.MaxWorkers = 0 }, "max_workers"},
		{"negative queue", func(c *Config) { c.Pool.QueueSize = -1 }, "queue_size"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "disk" }, "cache.backend"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.Redis.Addr = "" }, "cache.redis.addr"},
		{"user without password", func(c *Config) { c.API.AuthUser = "dash" }, "auth_password"},
		{"negative rps", func(c *Config) { c.API.RateLimitRPS = -1 }, "rate_limit_rps"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = ""
	cfg.Pool.MaxWorkers = 0
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.addr", "max_workers", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(LogConfig{Level: "warn", Format: format, OutputPaths: []string{filepath.Join(t.TempDir(), "log")}})
		require.NoError(t, err, format)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	}

	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
