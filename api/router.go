package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Config holds the HTTP policy applied in front of the routes.
type Config struct {
	AuthUser     string  `yaml:"auth_user" json:"auth_user" env:"AUTH_USER"`
	AuthPassword string  `yaml:"auth_password" json:"-" env:"AUTH_PASSWORD"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" json:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateBurst    int     `yaml:"rate_burst" json:"rate_burst" env:"RATE_BURST"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" json:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// DefaultConfig returns the HTTP policy defaults. Authentication is off.
func DefaultConfig() Config {
	return Config{
		RateLimitRPS: 5,
		RateBurst:    10,
		MaxBodyBytes: 64 << 10,
	}
}

// Router wraps h in the middleware chain. ctx bounds background work of the
// rate limiter.
func Router(ctx context.Context, h *Handler, cfg Config, logger *zap.Logger) http.Handler {
	mws := []Middleware{
		RequestID(),
		Recovery(logger),
		RequestLogger(logger),
	}
	if h.metrics != nil {
		mws = append(mws, Metrics(h.metrics, PathSmallRim, PathHealth, PathMetrics, PathVersion))
	}
	mws = append(mws,
		BasicAuth(cfg.AuthUser, cfg.AuthPassword, []string{PathHealth}),
		RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateBurst, logger),
		BodyLimit(cfg.MaxBodyBytes),
	)
	return Chain(h, mws...)
}
