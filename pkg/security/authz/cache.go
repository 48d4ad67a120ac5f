// Package authz provides caching support for authorization decisions.
package authz

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CachedAuthorizer wraps an Authorizer and memoizes its decisions, so hot
// subject/resource/action triples skip the delegate.
type CachedAuthorizer struct {
	delegate Authorizer
	mu       sync.RWMutex
	cache    map[string]cacheEntry
	ttl      time.Duration
	maxSize  int

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

func (e cacheEntry) fresh(now time.Time) bool { return now.Before(e.expiresAt) }

// CacheOption is a functional option for CachedAuthorizer.
type CacheOption func(*CachedAuthorizer)

// WithCacheTTL sets how long a cached decision stays valid.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedAuthorizer) { c.ttl = ttl }
}

// WithCacheMaxSize caps the number of cached entries.
func WithCacheMaxSize(size int) CacheOption {
	return func(c *CachedAuthorizer) { c.maxSize = size }
}

// WithCacheCleanupInterval sets how often expired entries are swept.
func WithCacheCleanupInterval(d time.Duration) CacheOption {
	return func(c *CachedAuthorizer) { c.cleanupInterval = d }
}

// NewCachedAuthorizer wraps delegate with a decision cache. A background
// goroutine sweeps expired entries until Close is called.
func NewCachedAuthorizer(delegate Authorizer, opts ...CacheOption) *CachedAuthorizer {
	c := &CachedAuthorizer{
		delegate:        delegate,
		cache:           make(map[string]cacheEntry),
		ttl:             5 * time.Minute,
		maxSize:         10000,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanup()
	return c
}

// Authorize returns a cached decision when fresh, otherwise consults the
// delegate and caches the result.
func (c *CachedAuthorizer) Authorize(ctx context.Context, subject, resource, action string) (bool, error) {
	key := cacheKey(subject, resource, action)

	if allowed, hit := c.lookup(key); hit {
		return allowed, nil
	}

	allowed, err := c.delegate.Authorize(ctx, subject, resource, action)
	if err != nil {
		return false, err
	}

	c.put(key, allowed)
	return allowed, nil
}

func (c *CachedAuthorizer) lookup(key string) (allowed, hit bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.cache[key]
	if !found || !entry.fresh(time.Now()) {
		return false, false
	}
	return entry.allowed, true
}

func (c *CachedAuthorizer) put(key string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.maxSize {
		c.evictLocked()
	}
	c.cache[key] = cacheEntry{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// AuthorizeWithContext always goes to the delegate. 带上下文的判定结果随
// 上下文变化，不做缓存。
func (c *CachedAuthorizer) AuthorizeWithContext(ctx context.Context, subject, resource, action string, context map[string]interface{}) (bool, error) {
	return c.delegate.AuthorizeWithContext(ctx, subject, resource, action, context)
}

// Invalidate drops the cached decision for one triple.
func (c *CachedAuthorizer) Invalidate(subject, resource, action string) {
	c.mu.Lock()
	delete(c.cache, cacheKey(subject, resource, action))
	c.mu.Unlock()
}

// InvalidateSubject drops every cached decision for a subject. Call after
// role changes.
func (c *CachedAuthorizer) InvalidateSubject(subject string) {
	prefix := subject + ":"

	c.mu.Lock()
	for key := range c.cache {
		if strings.HasPrefix(key, prefix) {
			delete(c.cache, key)
		}
	}
	c.mu.Unlock()
}

// Clear empties the cache.
func (c *CachedAuthorizer) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Close stops the cleanup goroutine.
func (c *CachedAuthorizer) Close() error {
	close(c.stopCleanup)
	return nil
}

// Size returns the current number of cached entries.
func (c *CachedAuthorizer) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func cacheKey(subject, resource, action string) string {
	return subject + ":" + resource + ":" + action
}

// evictLocked frees roughly 10% of capacity, preferring entries that have
// already expired. Caller must hold the write lock.
func (c *CachedAuthorizer) evictLocked() {
	toRemove := c.maxSize / 10
	if toRemove < 1 {
		toRemove = 1
	}

	now := time.Now()
	victims := make([]string, 0, toRemove)
	collect := func(match func(cacheEntry) bool) {
		for key, entry := range c.cache {
			if len(victims) >= toRemove {
				return
			}
			if match(entry) {
				victims = append(victims, key)
			}
		}
	}

	collect(func(e cacheEntry) bool { return !e.fresh(now) })
	// 过期条目不够时随机补足,map 迭代顺序本身无序
	collect(func(cacheEntry) bool { return true })

	for _, key := range victims {
		delete(c.cache, key)
	}
}

func (c *CachedAuthorizer) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// sweepExpired collects expired keys under the read lock, then deletes them
// in batches so writers are never blocked for long.
func (c *CachedAuthorizer) sweepExpired() {
	now := time.Now()

	c.mu.RLock()
	var expired []string
	for key, entry := range c.cache {
		if !entry.fresh(now) {
			expired = append(expired, key)
		}
	}
	c.mu.RUnlock()

	const batchSize = 100
	for i := 0; i < len(expired); i += batchSize {
		end := i + batchSize
		if end > len(expired) {
			end = len(expired)
		}

		c.mu.Lock()
		for _, key := range expired[i:end] {
			if entry, exists := c.cache[key]; exists && !entry.fresh(now) {
				delete(c.cache, key)
			}
		}
		c.mu.Unlock()
	}
}
