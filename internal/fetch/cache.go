package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long fetched documents are reused.
const DefaultCacheTTL = time.Hour

// Cache stores fetched documents by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cached is a Getter that serves repeated requests for the same URL from a
// Cache. Cache failures are logged and fall through to the network; they
// never fail a fetch.
type Cached struct {
	next   Getter
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with cache. A non-positive ttl uses DefaultCacheTTL.
func NewCached(next Getter, cache Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Get implements Getter.
func (c *Cached) Get(ctx context.Context, url string) ([]byte, error) {
	key := CacheKey(url)

	body, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("fetch cache read failed", "url", RedactURL(url), "error", err)
	case ok:
		c.logger.Debug("fetch cache hit", "url", RedactURL(url))
		return body, nil
	}

	body, err = c.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn("fetch cache write failed", "url", RedactURL(url), "error", err)
	}
	return body, nil
}

// CacheKey derives the cache key for a URL.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "fetch:" + hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process Cache with per-entry expiry.
//
// Thread-safety: safe for concurrent use via internal mutex.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache. Expired entries are evicted on read.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, expires: m.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
