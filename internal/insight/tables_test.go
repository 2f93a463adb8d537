package insight_test

import (
	"context"
	"testing"

	"gifts-assessment-service/internal/catalog"
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/insight"
	"gifts-assessment-service/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTablesCoverEveryPair(t *testing.T) {
	tables := insight.MustBuiltinTables()
	gifts := catalog.MustBuiltin().SortedGifts()
	require.Equal(t, 21, tables.PairCount())

	for i := range gifts {
		for j := i + 1; j < len(gifts); j++ {
			a, b := gifts[i].Key, gifts[j].Key
			p, ok := tables.Pair(a, b)
			require.True(t, ok, "%s/%s", a, b)
			assert.Equal(t, a, p.Primary)
			assert.Equal(t, b, p.Secondary)

			reversed, ok := tables.Pair(b, a)
			require.True(t, ok)
			assert.Equal(t, p.Score, reversed.Score)
			assert.Equal(t, b, reversed.Primary)
		}
	}
	for _, locale := range []string{"en", "pt"} {
		for _, g := range gifts {
			assert.NotEmpty(t, tables.Locale(locale).Gifts[g.Key].Insight, "%s/%s", locale, g.Key)
		}
	}
}

func TestLocaleFallback(t *testing.T) {
	tables := insight.MustBuiltinTables()
	assert.Equal(t, "en", tables.NormalizeLocale("fr"))
	assert.Equal(t, "pt", tables.NormalizeLocale("pt"))
	assert.Equal(t, "Misericórdia", tables.GiftName("mercy", "pt"))
	assert.Equal(t, "Mercy", tables.GiftName("mercy", "de"))
}

type flakySource struct{}

func (flakySource) Pair(_ context.Context, a, b domain.GiftKey) (domain.CompatibilityPair, error) {
	if a == "mercy" || b == "mercy" {
		return domain.CompatibilityPair{}, assert.AnError
	}
	return domain.CompatibilityPair{Primary: a, Secondary: b, Score: 80}, nil
}

func TestLookupPairsFallsBackToGeneric(t *testing.T) {
	pairs := insight.LookupPairs(context.Background(), flakySource{}, []domain.GiftKey{"service", "mercy", "giving"}, logger.Nop())
	require.Len(t, pairs, 3)
	assert.Equal(t, domain.GiftKey("service"), pairs[0].Primary)
	assert.Equal(t, domain.GiftKey("mercy"), pairs[0].Secondary)
	assert.Equal(t, 50, pairs[0].Score)
	assert.Equal(t, 80, pairs[1].Score)
	assert.Equal(t, 50, pairs[2].Score)
	assert.InDelta(t, 60.0, insight.OverallCompatibility(pairs), 1e-9)
	assert.Zero(t, insight.OverallCompatibility(nil))
}

func TestMatchMinistries(t *testing.T) {
	ministries := []insight.Ministry{
		{Key: "care", Name: domain.LocalizedText{"en": "Care"}, Gifts: []domain.GiftKey{"mercy", "service"}},
		{Key: "teach", Name: domain.LocalizedText{"en": "Teach"}, Gifts: []domain.GiftKey{"teaching"}},
		{Key: "lead", Name: domain.LocalizedText{"en": "Lead"}, Gifts: []domain.GiftKey{"leadership", "mercy", "giving"}},
	}
	scores := vector(map[domain.GiftKey]float64{"mercy": 90, "service": 50, "giving": 40, "leadership": 10, "teaching": 5})

	got := insight.MatchMinistries(ministries, []domain.GiftKey{"mercy", "service", "giving"}, scores, "en")
	require.Len(t, got, 2)
	// care: 0.6*100 + 0.4*70 = 88
	assert.Equal(t, "care", got[0].Key)
	assert.Equal(t, 88, got[0].Score)
	assert.Equal(t, 2, got[0].MatchedGifts)
	// lead: 0.6*66.67 + 0.4*46.67 = 58.67
	assert.Equal(t, "lead", got[1].Key)
	assert.Equal(t, 59, got[1].Score)
}

func TestFingerprintIsStable(t *testing.T) {
	a := vector(map[domain.GiftKey]float64{"mercy": 90, "service": 50})
	b := vector(map[domain.GiftKey]float64{"service": 50, "mercy": 90})
	c := vector(map[domain.GiftKey]float64{"service": 51, "mercy": 90})

	assert.Len(t, insight.Fingerprint(a), 16)
	assert.Equal(t, insight.Fingerprint(a), insight.Fingerprint(b))
	assert.NotEqual(t, insight.Fingerprint(a), insight.Fingerprint(c))
}

func TestTemplateNarrativeIsLocalized(t *testing.T) {
	tables := insight.MustBuiltinTables()
	n := insight.TemplateNarrative(tables, []domain.GiftKey{"mercy", "service"}, nil, "pt")
	assert.Equal(t, domain.ConfidenceTemplate, n.Confidence)
	assert.Contains(t, n.PersonalizedInsights, "Misericórdia")
	assert.Contains(t, n.PersonalizedInsights, "Serviço")
	assert.NotEmpty(t, n.ChallengesGuidance)
	assert.NotEmpty(t, n.MinistryRecommendations)
	assert.NotEmpty(t, n.PracticalApplications)
}

func TestBuildPromptEmbedsGiftsAndShape(t *testing.T) {
	tables := insight.MustBuiltinTables()
	top := vector(map[domain.GiftKey]float64{"mercy": 90, "service": 50}).Ranked()
	msgs := insight.BuildPrompt(tables, top, "pt")
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "Dom principal: Misericórdia (90%)")
	assert.Contains(t, msgs[1].Content, "- Serviço (50%)")
	assert.Contains(t, msgs[1].Content, "personalizedInsights")
}

// vector builds a score vector whose weighted totals and percentages equal the given values.
func vector(values map[domain.GiftKey]float64) domain.ScoreVector {
	ordinals := map[domain.GiftKey]int{"prophecy": 1, "service": 2, "teaching": 3, "exhortation": 4, "giving": 5, "leadership": 6, "mercy": 7}
	scores := make(map[domain.GiftKey]domain.GiftScore, len(values))
	for g, v := range values {
		scores[g] = domain.GiftScore{Gift: g, Ordinal: ordinals[g], WeightedTotal: v, MaxWeighted: 100, Percentage: v, QuestionCount: 5}
	}
	return domain.ScoreVector{Scores: scores}
}
