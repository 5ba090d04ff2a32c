package store

import "context"

// Waiter blocks until a request may proceed. *ratelimiter.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// RateLimitedStore takes one token from a Waiter before every backend call.
type RateLimitedStore struct {
	inner ObjectStore
	gate  Waiter
}

// RateLimited wraps s so every call waits on gate first. A nil gate returns s.
func RateLimited(s ObjectStore, gate Waiter) ObjectStore {
	if gate == nil {
		return s
	}
	return &RateLimitedStore{inner: s, gate: gate}
}

func (r *RateLimitedStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := r.gate.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.List(ctx, prefix)
}

func (r *RateLimitedStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := r.gate.Wait(ctx); err != nil {
		return ObjectInfo{}, err
	}
	return r.inner.Stat(ctx, key)
}

func (r *RateLimitedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.gate.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Get(ctx, key)
}

func (r *RateLimitedStore) Put(ctx context.Context, key string, data []byte) error {
	if err := r.gate.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Put(ctx, key, data)
}

func (r *RateLimitedStore) Delete(ctx context.Context, key string) error {
	if err := r.gate.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Delete(ctx, key)
}

// Copy counts as a single request when the backend copies natively and as
// two (read and write) through the fallback.
func (r *RateLimitedStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if c, ok := r.inner.(Copier); ok {
		if err := r.gate.Wait(ctx); err != nil {
			return err
		}
		return c.Copy(ctx, srcKey, dstKey)
	}

	data, err := r.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	return r.Put(ctx, dstKey, data)
}

func (r *RateLimitedStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	if err := r.gate.Wait(ctx); err != nil {
		return false, err
	}
	return HasPrefix(ctx, r.inner, prefix)
}

func (r *RateLimitedStore) Close() error {
	return r.inner.Close()
}
