// Package config loads the service configuration.
//
// Values come from defaults, then an optional YAML file, then environment
// variables named after the env tags with the SHAPER prefix, e.g.
// SHAPER_GENERATION_MAX_CELLS or SHAPER_CACHE_REDIS_ADDR.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/megashaper/shaper/api"
	"github.com/megashaper/shaper/internal/cache"
	"github.com/megashaper/shaper/internal/pipeline"
	"github.com/megashaper/shaper/internal/pool"
	"github.com/megashaper/shaper/internal/server"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHAPER"

// Config is the complete service configuration.
type Config struct {
	Server     server.Config   `yaml:"server" env:"SERVER"`
	API        api.Config      `yaml:"api" env:"API"`
	Generation pipeline.Config `yaml:"generation" env:"GENERATION"`
	Pool       pool.Config     `yaml:"pool" env:"POOL"`
	Cache      CacheConfig     `yaml:"cache" env:"CACHE"`
	Log        LogConfig       `yaml:"log" env:"LOG"`
	Metrics    MetricsConfig   `yaml:"metrics" env:"METRICS"`
}

// CacheConfig selects and sizes the mesh cache.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend  string            `yaml:"backend" env:"BACKEND"`
	MaxItems int               `yaml:"max_items" env:"MAX_ITEMS"`
	MaxBytes int64             `yaml:"max_bytes" env:"MAX_BYTES"`
	Redis    cache.RedisConfig `yaml:"redis" env:"REDIS"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format      string   `yaml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:     server.DefaultConfig(),
		API:        api.DefaultConfig(),
		Generation: pipeline.DefaultConfig(),
		Pool:       pool.DefaultConfig(),
		Cache: CacheConfig{
			Backend:  "memory",
			MaxItems: 256,
			MaxBytes: 512 << 20,
			Redis:    cache.DefaultRedisConfig(),
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{Namespace: "shaper"},
	}
}

// Load reads path (optional) over the defaults, applies environment
// overrides and validates the result. A missing file is an error when
// path is set explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment override: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setFieldsFromEnv walks v recursively, overriding every field whose env
// tag resolves to a set variable.
func setFieldsFromEnv(v reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := setFieldsFromEnv(field, key, lookup); err != nil {
				return err
			}
			continue
		}
		value, ok := lookup(key)
		if !ok {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Generation.ComputeTimeout <= 0 {
		errs = append(errs, errors.New("generation.compute_timeout must be positive"))
	}
	if c.Generation.MaxCells < 16 {
		errs = append(errs, fmt.Errorf("generation.max_cells %d below 16", c.Generation.MaxCells))
	}
	if c.Generation.TireCells < 16 {
		errs = append(errs, fmt.Errorf("generation.tire_cells %d below 16", c.Generation.TireCells))
	}
	if c.Pool.MaxWorkers < 1 {
		errs = append(errs, errors.New("pool.max_workers must be at least 1"))
	}
	if c.Pool.QueueSize < 0 {
		errs = append(errs, errors.New("pool.queue_size must not be negative"))
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q, want memory, redis or none", c.Cache.Backend))
	}
	if c.API.AuthUser != "" && c.API.AuthPassword == "" {
		errs = append(errs, errors.New("api.auth_password is required with api.auth_user"))
	}
	if c.API.RateLimitRPS < 0 {
		errs = append(errs, errors.New("api.rate_limit_rps must not be negative"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q, want json or console", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
