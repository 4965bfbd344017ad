package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// ListingCache stores rendered listing pages. Keys are namespaced by a
// generation counter so a write can retire every cached page of a namespace
// at once.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context, namespace string) (int64, error)
	Bump(ctx context.Context, namespace string) error
}

// Key builds the cache key for a page of namespace at its current generation.
func Key(ctx context.Context, c ListingCache, namespace string, query string) (string, error) {
	gen, err := c.Generation(ctx, namespace)
	if err != nil {
		return "", err
	}
	return "listing:" + namespace + ":" + strconv.FormatInt(gen, 10) + ":" + query, nil
}

func GetJSON[T any](ctx context.Context, c ListingCache, key string) (*T, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func SetJSON[T any](ctx context.Context, c ListingCache, key string, value *T, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, payload, ttl)
}

type NoopListingCache struct{}

func (NoopListingCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopListingCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (NoopListingCache) Generation(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (NoopListingCache) Bump(_ context.Context, _ string) error {
	return nil
}

type entry struct {
	value   []byte
	expires time.Time
}

// MemoryListingCache is a process-local cache for single-instance runs.
type MemoryListingCache struct {
	mu          sync.Mutex
	entries     map[string]entry
	generations map[string]int64
	now         func() time.Time
}

func NewMemoryListingCache() *MemoryListingCache {
	return &MemoryListingCache{
		entries:     make(map[string]entry),
		generations: make(map[string]int64),
		now:         time.Now,
	}
}

func (c *MemoryListingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryListingCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		return nil
	}
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryListingCache) Generation(_ context.Context, namespace string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[namespace], nil
}

func (c *MemoryListingCache) Bump(_ context.Context, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[namespace]++
	for key, e := range c.entries {
		if c.now().After(e.expires) {
			delete(c.entries, key)
		}
	}
	return nil
}
