package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gifts-assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AnalysisCache stores narratives as JSON strings: SET gifts:analysis:{identity}:{fingerprint}:{locale}.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewAnalysisCache(client *redis.Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{client: client, ttl: ttl, now: time.Now}
}

func (c *AnalysisCache) Lookup(ctx context.Context, key domain.AnalysisKey) (domain.CachedAnalysis, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CachedAnalysis{}, false, nil
	}
	if err != nil {
		return domain.CachedAnalysis{}, false, fmt.Errorf("redis get analysis: %w", err)
	}
	var entry domain.CachedAnalysis
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupt entries behave as misses and are overwritten on the next write.
		return domain.CachedAnalysis{}, false, nil
	}
	return entry, true, nil
}

// Upsert keeps the original CreatedAt of an existing entry.
func (c *AnalysisCache) Upsert(ctx context.Context, key domain.AnalysisKey, entry domain.CachedAnalysis) error {
	now := c.now().UTC()
	entry.Key = key
	entry.UpdatedAt = now
	if existing, ok, err := c.Lookup(ctx, key); err == nil && ok {
		entry.CreatedAt = existing.CreatedAt
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set analysis: %w", err)
	}
	return nil
}

func (c *AnalysisCache) key(k domain.AnalysisKey) string {
	return "gifts:analysis:" + k.String()
}
