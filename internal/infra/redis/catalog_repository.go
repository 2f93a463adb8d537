package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gifts-assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const catalogKey = "gifts:catalog"

// CatalogLoader fetches catalog content from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// CatalogRepository caches the catalog in a Redis hash and falls back to a loader on miss.
// Layout: HSET gifts:catalog gifts <json> questions <json> weights <json>
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	if c, ok := r.fromCache(ctx); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if c, ok := r.fromCache(ctx); ok {
			return c, nil
		}

		c, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}
		r.store(ctx, c)
		return c, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached catalog so the next read reloads it.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

func (r *CatalogRepository) fromCache(ctx context.Context) (domain.Catalog, bool) {
	fields, err := r.client.HGetAll(ctx, catalogKey).Result()
	if err != nil || len(fields) == 0 {
		return domain.Catalog{}, false
	}
	var c domain.Catalog
	if err := decodeField(fields, "gifts", &c.Gifts); err != nil {
		return domain.Catalog{}, false
	}
	if err := decodeField(fields, "questions", &c.Questions); err != nil {
		return domain.Catalog{}, false
	}
	if err := decodeField(fields, "weights", &c.Weights); err != nil {
		return domain.Catalog{}, false
	}
	return c, true
}

// store writes the catalog best-effort; a failed write only costs a reload later.
func (r *CatalogRepository) store(ctx context.Context, c domain.Catalog) {
	gifts, err1 := json.Marshal(c.Gifts)
	questions, err2 := json.Marshal(c.Questions)
	weights, err3 := json.Marshal(c.Weights)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, catalogKey)
	pipe.HSet(ctx, catalogKey, "gifts", gifts, "questions", questions, "weights", weights)
	if ttl := r.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, catalogKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func decodeField(fields map[string]string, name string, dst interface{}) error {
	raw, ok := fields[name]
	if !ok {
		return fmt.Errorf("catalog cache missing %q", name)
	}
	return json.Unmarshal([]byte(raw), dst)
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
