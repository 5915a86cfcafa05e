package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is the fixed-window counter store behind the rate limiter.
// Implementations must be safe for concurrent use.
type Counter interface {
	// Get returns the current count for key, 0 when the window is fresh.
	Get(ctx context.Context, key string) (int64, error)
	// Incr adds one to key and returns the new count. The window TTL is
	// started only by the first increment of a fresh window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter implements Counter on Redis. INCR and EXPIRE run in one
// transactional pipeline so concurrent requests for the same key cannot
// lose updates; NX on the expiry keeps the window anchored to its first hit
// instead of sliding on every request.
type RedisCounter struct{ RDB *redis.Client }

func (rc *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	n, err := rc.RDB.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (rc *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.RDB.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryCounter is an in-process Counter used when Redis is unavailable at
// startup and in tests. Limiting degrades to per-replica enforcement, which
// beats not limiting at all. Expired windows are dropped lazily on access.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
}

type memWindow struct {
	count  int64
	resets time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*memWindow)}
}

func (mc *MemoryCounter) Get(ctx context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	w, ok := mc.windows[key]
	if !ok {
		return 0, nil
	}
	if time.Now().After(w.resets) {
		delete(mc.windows, key)
		return 0, nil
	}
	return w.count, nil
}

func (mc *MemoryCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	w, ok := mc.windows[key]
	if !ok || time.Now().After(w.resets) {
		mc.windows[key] = &memWindow{count: 1, resets: time.Now().Add(window)}
		return 1, nil
	}
	w.count++
	return w.count, nil
}
