package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/catalog"
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsBalanced(t *testing.T) {
	c := catalog.MustBuiltin()
	gen := app.NewGenerator(newPool(c))

	questions, err := gen.Generate(context.Background(), "session-1", 4, "pt")
	require.NoError(t, err)
	require.Len(t, questions, 4*len(c.Gifts))

	perGift := map[domain.GiftKey]int{}
	seen := map[string]bool{}
	for _, q := range questions {
		perGift[q.Gift]++
		assert.False(t, seen[q.ID], "duplicate %s", q.ID)
		seen[q.ID] = true
		assert.Equal(t, q.Text.In("pt"), q.Prompt)
	}
	for _, g := range c.Gifts {
		assert.Equal(t, 4, perGift[g.Key], "gift %s", g.Key)
	}
}

func TestGenerateIsReproduciblePerSession(t *testing.T) {
	c := catalog.MustBuiltin()
	gen := app.NewGenerator(newPool(c))
	ctx := context.Background()

	a, err := gen.Generate(ctx, "session-1", 3, "en")
	require.NoError(t, err)
	b, err := gen.Generate(ctx, "session-1", 3, "en")
	require.NoError(t, err)
	assert.Equal(t, app.QuestionIDs(a), app.QuestionIDs(b))

	other, err := gen.Generate(ctx, "session-2", 3, "en")
	require.NoError(t, err)
	assert.NotEqual(t, app.QuestionIDs(a), app.QuestionIDs(other))
}

func TestGenerateIgnoresPoolInsertionOrder(t *testing.T) {
	c := catalog.MustBuiltin()
	reversed := c
	reversed.Questions = make([]domain.Question, len(c.Questions))
	for i, q := range c.Questions {
		reversed.Questions[len(c.Questions)-1-i] = q
	}

	a := app.BalancedSelection(c, "session-x", 2, "en")
	b := app.BalancedSelection(reversed, "session-x", 2, "en")
	assert.Equal(t, app.QuestionIDs(a), app.QuestionIDs(b))
}

func TestGenerateReturnsWhatIsAvailable(t *testing.T) {
	c := domain.Catalog{Gifts: []domain.Gift{{Key: "a", Ordinal: 1}, {Key: "b", Ordinal: 2}}}
	for i := 0; i < 3; i++ {
		c.Questions = append(c.Questions, domain.Question{ID: fmt.Sprintf("a%d", i), Gift: "a", Active: true})
	}
	c.Questions = append(c.Questions,
		domain.Question{ID: "b0", Gift: "b", Active: true},
		domain.Question{ID: "b1", Gift: "b", Active: false},
	)

	questions := app.BalancedSelection(c, "s", 2, "en")
	assert.Len(t, questions, 3)
}

func TestGenerateErrors(t *testing.T) {
	gen := app.NewGenerator(newPool(domain.Catalog{}))
	ctx := context.Background()

	_, err := gen.Generate(ctx, "s", 0, "en")
	assert.True(t, errors.Is(err, domain.ErrInvalidQuizSize))

	_, err = gen.Generate(ctx, "s", 3, "en")
	assert.True(t, errors.Is(err, domain.ErrNoQuestions))
}

func newPool(c domain.Catalog) *app.QuestionPool {
	repo := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(c), 0)
	return app.NewQuestionPool(repo, domain.Catalog{}, nil, nil)
}
