package memory

import (
	"context"
	"sync"
	"time"

	"gifts-assessment-service/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultAnalysisCacheSize = 512

// AnalysisCache keeps analyses in a bounded LRU with optional expiry.
type AnalysisCache struct {
	mu    sync.Mutex
	cache *lru.Cache[domain.AnalysisKey, cachedAnalysis]
	ttl   time.Duration
	clock func() time.Time
}

type cachedAnalysis struct {
	entry     domain.CachedAnalysis
	expiresAt time.Time
}

// NewAnalysisCache creates a cache holding at most size entries. A ttl <= 0 disables expiration.
func NewAnalysisCache(size int, ttl time.Duration) *AnalysisCache {
	if size <= 0 {
		size = defaultAnalysisCacheSize
	}
	cache, err := lru.New[domain.AnalysisKey, cachedAnalysis](size)
	if err != nil {
		// lru.New only errors on non-positive size which we guard above.
		panic(err)
	}
	return &AnalysisCache{cache: cache, ttl: ttl, clock: time.Now}
}

func (c *AnalysisCache) Lookup(_ context.Context, key domain.AnalysisKey) (domain.CachedAnalysis, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		return domain.CachedAnalysis{}, false, nil
	}
	if !v.expiresAt.IsZero() && !v.expiresAt.After(c.clock()) {
		c.cache.Remove(key)
		return domain.CachedAnalysis{}, false, nil
	}
	return v.entry, true, nil
}

func (c *AnalysisCache) Upsert(_ context.Context, key domain.AnalysisKey, entry domain.CachedAnalysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	if prev, ok := c.cache.Peek(key); ok && !prev.entry.CreatedAt.IsZero() {
		entry.CreatedAt = prev.entry.CreatedAt
	} else if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.Key = key
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}
	c.cache.Add(key, cachedAnalysis{entry: entry, expiresAt: expiresAt})
	return nil
}
