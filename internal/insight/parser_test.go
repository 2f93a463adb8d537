package insight_test

import (
	"testing"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/insight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNarrativeIgnoresProseWrapper(t *testing.T) {
	n, err := insight.ParseNarrative(`Here's the result: {"personalizedInsights": "You serve with joy."} extra text`)
	require.NoError(t, err)
	assert.Equal(t, "You serve with joy.", n.PersonalizedInsights)
	assert.Equal(t, domain.ConfidenceParsed, n.Confidence)
}

func TestParseNarrativeCodeFenceAndTrailingCommas(t *testing.T) {
	text := "Sure!\n```json\n{\n  \"personalizedInsights\": \"Encourager at heart\",\n  \"ministryRecommendations\": [\"Small groups\", \"Discipleship\",],\n  \"practicalApplications\": [\"Lead a study\"],\n}\n```\nHope this helps."
	n, err := insight.ParseNarrative(text)
	require.NoError(t, err)
	assert.Equal(t, "Encourager at heart", n.PersonalizedInsights)
	assert.Equal(t, []string{"Small groups", "Discipleship"}, n.MinistryRecommendations)
	assert.Equal(t, []string{"Lead a study"}, n.PracticalApplications)
}

func TestParseNarrativeStripsControlCharacters(t *testing.T) {
	n, err := insight.ParseNarrative("{\"personalizedInsights\": \"line one\nline two\x00\", \"developmentPlan\": \"rest\"}")
	require.NoError(t, err)
	assert.Equal(t, "line one line two", n.PersonalizedInsights)
	assert.Equal(t, "rest", n.DevelopmentPlan)
}

func TestParseNarrativeAcceptsObjectLists(t *testing.T) {
	n, err := insight.ParseNarrative(`{"personalizedInsights":"ok","ministryRecommendations":[{"name":"Pastoral Care","reason":"mercy"}],"confidence":"90"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pastoral Care"}, n.MinistryRecommendations)
	assert.Equal(t, domain.ConfidenceParsed, n.Confidence)
}

func TestParseNarrativeRepairsMalformedJSON(t *testing.T) {
	n, err := insight.ParseNarrative(`{personalizedInsights: 'You lead well', strengthsDescription: "organized"`)
	require.NoError(t, err)
	assert.Equal(t, "You lead well", n.PersonalizedInsights)
	assert.Equal(t, "organized", n.StrengthsDescription)
}

func TestParseNarrativeFailures(t *testing.T) {
	_, err := insight.ParseNarrative("no json here at all")
	require.ErrorIs(t, err, insight.ErrNoJSONObject)

	_, err = insight.ParseNarrative(`{"strengthsDescription": "only strengths"}`)
	require.ErrorIs(t, err, insight.ErrMissingInsights)
}

func TestExtractHeuristic(t *testing.T) {
	text := "Your gift of mercy shines in hospitals. A real strength is your patience with grieving people. " +
		"Be careful about emotional exhaustion over time! You could develop a visitation ministry at church."
	n, ok := insight.ExtractHeuristic(text)
	require.True(t, ok)
	assert.Equal(t, domain.ConfidenceHeuristic, n.Confidence)
	assert.Contains(t, n.PersonalizedInsights, "gift of mercy")
	assert.Contains(t, n.StrengthsDescription, "patience")
	assert.Contains(t, n.ChallengesGuidance, "emotional exhaustion")
	assert.Contains(t, n.DevelopmentPlan, "visitation ministry")
	assert.NotEmpty(t, n.PracticalApplications)
}

func TestExtractHeuristicPortuguese(t *testing.T) {
	n, ok := insight.ExtractHeuristic("Sua maior força é a compaixão pelos que sofrem. Tenha cuidado com o esgotamento emocional.")
	require.True(t, ok)
	assert.Contains(t, n.StrengthsDescription, "compaixão")
	assert.Contains(t, n.ChallengesGuidance, "esgotamento")
}

func TestExtractHeuristicNothingUsable(t *testing.T) {
	_, ok := insight.ExtractHeuristic("ok. thanks.")
	assert.False(t, ok)
}
