package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Outcome tells how a Do call was served.
type Outcome string

const (
	OutcomeHit    Outcome = "hit"    // served from the store
	OutcomeMiss   Outcome = "miss"   // computed by this call
	OutcomeShared Outcome = "shared" // computation shared with concurrent callers
)

// Cache deduplicates concurrent computations of the same key and stores
// successful results. A nil store only deduplicates.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *zap.Logger
	// storeTimeout bounds store round trips.
	storeTimeout time.Duration
}

// New returns a Cache over store.
func New(store Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:        store,
		logger:       logger.With(zap.String("component", "cache")),
		storeTimeout: 2 * time.Second,
	}
}

// Do returns the value for key, computing it at most once at a time across
// concurrent callers. compute runs detached from ctx so the result is still
// stored when the first caller gives up; callers stop waiting when their ctx
// ends. Store failures are logged and degrade to recomputation.
func (c *Cache) Do(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, Outcome, error) {
	if v, ok := c.lookup(ctx, key); ok {
		return v, OutcomeHit, nil
	}
	ch := c.group.DoChan(key, func() (interface{}, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.save(key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, OutcomeMiss, ctx.Err()
	case res := <-ch:
		outcome := OutcomeMiss
		if res.Shared {
			outcome = OutcomeShared
		}
		if res.Err != nil {
			return nil, outcome, res.Err
		}
		return res.Val.([]byte), outcome, nil
	}
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	v, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("cache lookup failed, recomputing", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return v, true
}

func (c *Cache) save(key string, v []byte) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	if err := c.store.Set(ctx, key, v); err != nil {
		c.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
