package cache

import (
	"context"
	"time"
)

// WithCache is a read-through helper: return the cached value when fresh,
// otherwise compute, cache and return. A cache fault on either side falls
// back to direct computation and is never surfaced to the caller; only the
// compute function's own error can come back. Concurrent callers for the
// same key share a single computation.
func WithCache[T any](ctx context.Context, c Service, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if ok, err := c.Get(key, &cached); err == nil && ok {
		return cached, nil
	}

	v, err := c.Do(key, func() (interface{}, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	out := v.(T)

	// best effort; a failed Set must not turn a good compute into an error
	_ = c.Set(key, out, ttl)

	return out, nil
}
