package cache

import (
	"context"
	"sync"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/singleflight"
)

// Value is a latest-blockhash observation for one endpoint.
type Value struct {
	Blockhash            sol.Hash
	LastValidBlockHeight uint64
	FetchedAt            time.Time
}

type item struct {
	val       Value
	expiresAt time.Time
}

// Cache keeps recent blockhashes per endpoint with singleflight coalescing.
// A zero TTL never serves stored values but still coalesces concurrent fetches.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	group singleflight.Group
}

func New(ttl time.Duration) *Cache {
	return &Cache{items: make(map[string]item), ttl: ttl}
}

// GetOrFetch returns a cached value if valid; otherwise it coalesces concurrent
// fetches for the same key using singleflight and stores the result.
// Returns the value, source ("cache" or "rpc"), and error if fetching failed.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (Value, error)) (Value, string, error) {
	if c.ttl > 0 {
		c.mu.RLock()
		it, ok := c.items[key]
		c.mu.RUnlock()
		if ok && time.Now().Before(it.expiresAt) {
			return it.val, "cache", nil
		}
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.items[key] = item{val: v, expiresAt: time.Now().Add(c.ttl)}
			c.mu.Unlock()
		}
		return v, nil
	})
	if err != nil {
		return Value{}, "", err
	}
	return res.(Value), "rpc", nil
}

// Invalidate drops the stored value for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
