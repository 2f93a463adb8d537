package catalog

import (
	"testing"

	"gifts-assessment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinIsBalanced(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)
	require.Len(t, c.Gifts, 7)

	known := map[domain.GiftKey]bool{}
	for _, g := range c.Gifts {
		known[g.Key] = true
		assert.NotEmpty(t, g.Name.In("pt"), "gift %s has no name", g.Key)
	}

	perGift := map[domain.GiftKey]int{}
	for _, q := range c.ActiveQuestions() {
		require.True(t, known[q.Gift], "question %s references unknown gift %s", q.ID, q.Gift)
		assert.NotEmpty(t, q.Text.In("en"))
		perGift[q.Gift]++
	}
	for key := range known {
		assert.GreaterOrEqual(t, perGift[key], 5, "gift %s", key)
	}
}

func TestBuiltinMatrixSkipsInactiveRows(t *testing.T) {
	c := MustBuiltin()
	m := domain.NewDecisionMatrix(c.Weights)

	assert.InDelta(t, 1.2, m.Multiplier("prophecy", domain.WeightP3, domain.SourceQuality), 1e-9)
	assert.InDelta(t, 1.0, m.Multiplier("mercy", domain.WeightP2, domain.SourceDanger), 1e-9)
}

func TestBuiltinReturnsCopies(t *testing.T) {
	a := MustBuiltin()
	a.Questions[0].ID = "mutated"
	b := MustBuiltin()
	assert.NotEqual(t, "mutated", b.Questions[0].ID)
}

func TestParseRejectsNegativeWeight(t *testing.T) {
	_, err := Parse([]byte(`questions:
  - {id: q1, gift: mercy, weight_class: P1, source_type: other, default_weight: -1, active: true}
`))
	assert.ErrorContains(t, err, "q1")

	c, err := Parse([]byte(`questions:
  - {id: q1, gift: mercy, weight_class: P1, source_type: other, default_weight: 0, active: true}
`))
	require.NoError(t, err)
	assert.Zero(t, c.Questions[0].Weight())
}
