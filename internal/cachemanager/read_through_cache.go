package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache wraps a compute function with a cache. bypass
// disables caching entirely, which keeps call sites unconditional.
type ReadThroughCache[V any, I any] struct {
	cache  CacheManager[V]
	fn     func(ctx context.Context, input I) (V, error)
	bypass bool
}

func NewReadThroughCache[V any, I any](
	cache CacheManager[V],
	fn func(ctx context.Context, input I) (V, error),
	bypass bool,
) *ReadThroughCache[V, I] {
	return &ReadThroughCache[V, I]{
		cache:  cache,
		fn:     fn,
		bypass: bypass,
	}
}

func (r *ReadThroughCache[V, I]) Get(ctx context.Context, key string, input I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.fn(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)

	return value, nil
}

func (r *ReadThroughCache[V, I]) GetWithRefresh(ctx context.Context, key string, input I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.fn(ctx, input)
	}

	if value, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return value, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)

	return value, nil
}
