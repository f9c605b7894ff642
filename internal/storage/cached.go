package storage

import (
	"context"

	"bilancio/internal/cache"
)

// Cached is a write-through cache in front of a slower KV, typically a
// remote backend. Only found values are cached.
type Cached struct {
	inner KV
	cache cache.Cache[string]
}

var _ KV = (*Cached)(nil)

func NewCached(inner KV, c cache.Cache[string]) *Cached {
	return &Cached{inner: inner, cache: c}
}

func (c *Cached) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, true, nil
	}
	v, found, err := c.inner.Get(ctx, key)
	if err != nil || !found {
		return v, found, err
	}
	c.cache.Set(key, v)
	return v, true, nil
}

func (c *Cached) Set(ctx context.Context, key, value string) error {
	if err := c.inner.Set(ctx, key, value); err != nil {
		// The backend may or may not hold the value now.
		c.cache.Delete(key)
		return err
	}
	c.cache.Set(key, value)
	return nil
}

// Close closes the wrapped backend when it holds resources.
func (c *Cached) Close() error {
	if cl, ok := c.inner.(Closer); ok {
		return cl.Close()
	}
	return nil
}
