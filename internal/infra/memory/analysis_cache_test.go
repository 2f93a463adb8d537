package memory

import (
	"context"
	"testing"
	"time"

	"gifts-assessment-service/internal/domain"
)

func TestAnalysisCacheUpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	cache := NewAnalysisCache(2, time.Hour)
	key := domain.AnalysisKey{Identity: "user-123", Fingerprint: "abc", Locale: "pt"}

	if _, ok, _ := cache.Lookup(ctx, key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	entry := domain.CachedAnalysis{Narrative: domain.Narrative{PersonalizedInsights: "hello"}, Confidence: 85, Provider: "openai"}
	if err := cache.Upsert(ctx, key, entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := cache.Lookup(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Narrative.PersonalizedInsights != "hello" || got.Key != key || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestAnalysisCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewAnalysisCache(4, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }
	key := domain.AnalysisKey{Identity: "u", Fingerprint: "f", Locale: "en"}

	_ = cache.Upsert(ctx, key, domain.CachedAnalysis{Confidence: 50})
	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Lookup(ctx, key); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestAnalysisCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	cache := NewAnalysisCache(1, 0)
	a := domain.AnalysisKey{Identity: "a"}
	b := domain.AnalysisKey{Identity: "b"}

	_ = cache.Upsert(ctx, a, domain.CachedAnalysis{})
	_ = cache.Upsert(ctx, b, domain.CachedAnalysis{})
	if _, ok, _ := cache.Lookup(ctx, a); ok {
		t.Fatalf("expected a evicted")
	}
	if _, ok, _ := cache.Lookup(ctx, b); !ok {
		t.Fatalf("expected b present")
	}
}
