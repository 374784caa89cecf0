package source

import (
	"context"
	"sync"
	"time"

	"github.com/phillip-england/empportal/internal/directory"
	"golang.org/x/sync/singleflight"
)

// Cache shares one user batch between every view. Concurrent misses are
// collapsed into a single upstream fetch. A failed reload keeps the last
// good batch, which Get hands back alongside the error.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	key     string
	now     func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	users     []directory.RawUser
	fetchedAt time.Time
	fresh     bool
	state     directory.LoadState
}

func NewCache(fetcher Fetcher, key string, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		key:     key,
		now:     time.Now,
	}
}

// Get returns the cached batch, loading it when missing, stale or
// invalidated.
func (c *Cache) Get(ctx context.Context) ([]directory.RawUser, error) {
	c.mu.Lock()
	if c.freshLocked() {
		users := c.users
		c.mu.Unlock()
		return users, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do(c.key, func() (any, error) {
		return c.load(context.WithoutCancel(ctx))
	})
	users, _ := result.([]directory.RawUser)
	return users, err
}

func (c *Cache) load(ctx context.Context) ([]directory.RawUser, error) {
	c.mu.Lock()
	if c.freshLocked() {
		users := c.users
		c.mu.Unlock()
		return users, nil
	}
	_ = c.state.Start()
	c.mu.Unlock()

	users, err := c.fetcher.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		_ = c.state.Fail(err)
		return c.users, err
	}
	_ = c.state.Succeed()
	c.users = users
	c.fetchedAt = c.now()
	c.fresh = true
	return users, nil
}

func (c *Cache) freshLocked() bool {
	return c.fresh && (c.ttl <= 0 || c.now().Sub(c.fetchedAt) < c.ttl)
}

// Invalidate forces the next Get to reload.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fresh = false
	c.mu.Unlock()
}

// Status reports the lifecycle of the most recent load.
func (c *Cache) Status() directory.LoadStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status()
}

// FetchedAt is the time of the last successful load.
func (c *Cache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}
