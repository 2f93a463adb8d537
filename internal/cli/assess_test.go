package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/catalog"
	"gifts-assessment-service/internal/config"
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/infra/sqlite"
	"gifts-assessment-service/internal/insight"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderResult(t *testing.T) {
	color.NoColor = true
	tables := insight.MustBuiltinTables()
	result := domain.AnalysisResult{
		Locale: "pt",
		Ranked: []domain.GiftScore{
			{Gift: "mercy", Percentage: 90},
			{Gift: "service", Percentage: 40},
		},
		TopGifts: []domain.GiftKey{"mercy"},
		Compatibilities: []domain.CompatibilityPair{
			{Primary: "mercy", Secondary: "service", Score: 88},
		},
		OverallCompatibility: 88,
		Narrative:            domain.Narrative{PersonalizedInsights: "Compaixão profunda.", PracticalApplications: []string{"Visitar enfermos"}},
		Confidence:           domain.ConfidenceTemplate,
		Tier:                 domain.TierTemplate,
	}

	var buf bytes.Buffer
	renderResult(&buf, tables, result)
	out := buf.String()
	assert.Contains(t, out, "* Misericórdia")
	assert.Contains(t, out, "Misericórdia + Serviço: 88")
	assert.Contains(t, out, "Compaixão profunda.")
	assert.Contains(t, out, "- Visitar enfermos")
	assert.Contains(t, out, "source: template, confidence 50%")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "██░░", bar(50, 4))
	assert.Equal(t, "████", bar(120, 4))
	assert.Equal(t, "░░░░", bar(-5, 4))
}

func TestResumeOrBeginStartsFreshWithoutSavedState(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	manager := app.NewSessionStateManager(store, nil)
	pool := app.NewQuestionPool(nil, catalog.MustBuiltin(), nil, nil)

	state, questions, err := resumeOrBegin(ctx, manager, pool, assessOptions{locale: "en", perGift: 1})
	require.NoError(t, err)
	assert.Len(t, questions, 7)
	assert.Equal(t, app.QuestionIDs(questions), state.QuestionOrder)
	assert.NotEmpty(t, questions[0].Prompt)
}

func TestProviderConfigsResolveKeys(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "sk-test")
	cfg := config.Default()
	cfg.Insight.Providers = []config.Provider{
		{Name: "anthropic", Model: "m", APIKeyEnv: "TEST_PROVIDER_KEY"},
		{Name: "openai", Model: "m"},
	}
	got := providerConfigs(cfg)
	require.Len(t, got, 2)
	assert.Equal(t, "sk-test", got[0].APIKey)
	assert.False(t, got[1].Configured())

	opts := insightOptions(cfg)
	assert.Equal(t, 3, opts.TopN)
}

func TestSessionLocalePrefersSavedState(t *testing.T) {
	assert.Equal(t, "pt", sessionLocale(domain.AssessmentState{Locale: "pt"}, "en"))
	assert.Equal(t, "en", sessionLocale(domain.AssessmentState{}, "en"))
}
