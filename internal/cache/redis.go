package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr       string        `yaml:"addr" json:"addr" env:"ADDR"`
	Password   string        `yaml:"password" json:"password" env:"PASSWORD"`
	DB         int           `yaml:"db" json:"db" env:"DB"`
	TTL        time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`
	KeyPrefix  string        `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`
	PoolSize   int           `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		TTL:        24 * time.Hour,
		KeyPrefix:  "shaper:mesh:",
		MaxRetries: 3,
		PoolSize:   10,
	}
}

// RedisStore keeps meshes in Redis with a TTL so several service
// instances share results.
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: config.MaxRetries,
		PoolSize:   config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger = logger.With(zap.String("component", "cache"))
	logger.Info("redis store initialized", zap.String("addr", config.Addr), zap.Duration("ttl", config.TTL))
	return &RedisStore{client: client, config: config, logger: logger}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.config.KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.config.KeyPrefix+key, value, s.config.TTL).Err(); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
