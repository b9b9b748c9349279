package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	cfg := DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	cfg.TTL = time.Minute
	s, err := NewRedisStore(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return mr, s
}

func TestRedisStoreSetGet(t *testing.T) {
	mr, s := setupTestRedis(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "k", []byte("mesh")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("mesh"), v)

	assert.True(t, mr.Exists("shaper:mesh:k"), "keys carry the prefix")
	assert.Equal(t, time.Minute, mr.TTL("shaper:mesh:k"))

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStoreUnreachable(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.MaxRetries = -1
	_, err := NewRedisStore(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(2, 0)
	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	_, err := m.Get(ctx, "a") // a is now most recent
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	assert.Equal(t, 2, m.Len())
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestMemoryStoreByteLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0, 10)
	require.NoError(t, m.Set(ctx, "big", make([]byte, 11)))
	assert.Zero(t, m.Len(), "oversized values are skipped")

	require.NoError(t, m.Set(ctx, "a", make([]byte, 6)))
	require.NoError(t, m.Set(ctx, "b", make([]byte, 6)))
	assert.Equal(t, 1, m.Len())
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "b", make([]byte, 2)))
	require.NoError(t, m.Set(ctx, "c", make([]byte, 8)))
	assert.Equal(t, 2, m.Len())
}

func TestCacheHitAfterMiss(t *testing.T) {
	c := New(NewMemoryStore(8, 0), zap.NewNop())
	ctx := context.Background()
	var calls int
	compute := func() ([]byte, error) {
		calls++
		return []byte("stl"), nil
	}
	v, out, err := c.Do(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, out)
	assert.Equal(t, []byte("stl"), v)

	v, out, err = c.Do(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeHit, out)
	assert.Equal(t, []byte("stl"), v)
	assert.Equal(t, 1, calls)
}

func TestCacheFailuresNotStored(t *testing.T) {
	c := New(NewMemoryStore(8, 0), zap.NewNop())
	ctx := context.Background()
	boom := errors.New("boom")
	_, _, err := c.Do(ctx, "k", func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, out, err := c.Do(ctx, "k", func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, out)
	assert.Equal(t, []byte("ok"), v)
}

func TestCacheSingleFlight(t *testing.T) {
	c := New(nil, zap.NewNop())
	const callers = 8
	var (
		calls   atomic.Int32
		release = make(chan struct{})
		started = make(chan struct{})
		once    sync.Once
	)
	compute := func() ([]byte, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return []byte("shared"), nil
	}

	var wg sync.WaitGroup
	outcomes := make([]Outcome, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, outcomes[0], _ = c.Do(context.Background(), "k", compute)
	}()
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, out, err := c.Do(context.Background(), "k", compute)
			assert.NoError(t, err)
			assert.Equal(t, []byte("shared"), v)
			outcomes[i] = out
		}(i)
	}
	// Give the waiters time to join the flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "one computation per key")
	for i, out := range outcomes {
		assert.Equal(t, OutcomeShared, out, "caller %d", i)
	}
}

func TestCacheWaiterGivesUp(t *testing.T) {
	store := NewMemoryStore(8, 0)
	c := New(store, zap.NewNop())
	release := make(chan struct{})
	done := make(chan struct{})
	compute := func() ([]byte, error) {
		defer close(done)
		<-release
		return []byte("late"), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.Do(ctx, "k", compute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond,
		"computation finishes and is stored after the caller left")
	v, out, err := c.Do(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeHit, out)
	assert.Equal(t, []byte("late"), v)
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStore) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (failingStore) Close() error                                { return nil }

func TestCacheStoreFailureDegrades(t *testing.T) {
	c := New(failingStore{}, zap.NewNop())
	v, out, err := c.Do(context.Background(), "k", func() ([]byte, error) { return []byte("x"), nil })
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, out)
	assert.Equal(t, []byte("x"), v)
}
