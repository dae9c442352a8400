package feed

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched feed is served before it is reloaded.
const DefaultTTL = 30 * time.Minute

// Cache is a read-through cache over a Source. It holds one snapshot; a
// request that finds it stale reloads it while holding the write lock, so
// concurrent requests trigger a single fetch.
type Cache struct {
	mu      sync.RWMutex
	posts   []Post
	fetched time.Time
	ttl     time.Duration
	source  Source
	now     func() time.Time
}

// NewCache creates a Cache over source.
func NewCache(source Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{source: source, ttl: ttl, now: time.Now}
}

// WithClock replaces the cache's clock.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) valid() bool {
	return c.posts != nil && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate drops the snapshot so the next read fetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

func (c *Cache) load(ctx context.Context, limit int) error {
	posts, err := c.source.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []Post{}
	}
	c.posts = posts
	c.fetched = c.now()
	return nil
}

// Get returns up to limit posts from the snapshot, fetching first when it is
// missing or older than the TTL. A failed fetch leaves any previous snapshot
// in place and returns the error.
func (c *Cache) Get(ctx context.Context, limit int) ([]Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return head(posts, limit), nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid() {
		if err := c.load(ctx, limit); err != nil {
			return nil, err
		}
	}
	return head(c.posts, limit), nil
}

// Refresh reloads the snapshot regardless of its age.
func (c *Cache) Refresh(ctx context.Context, limit int) ([]Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx, limit); err != nil {
		return nil, err
	}
	return head(c.posts, limit), nil
}

func head(posts []Post, limit int) []Post {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
