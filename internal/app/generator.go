package app

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"

	"gifts-assessment-service/internal/domain"
)

// Generator assembles balanced quizzes from the question pool.
type Generator struct {
	pool *QuestionPool
}

func NewGenerator(pool *QuestionPool) *Generator {
	return &Generator{pool: pool}
}

// Generate selects questionsPerGift active questions for every gift. The selection
// and its order are reproducible for the same session id and pool.
func (g *Generator) Generate(ctx context.Context, sessionID string, questionsPerGift int, locale string) ([]domain.Question, error) {
	if questionsPerGift <= 0 {
		return nil, domain.ErrInvalidQuizSize
	}
	questions := BalancedSelection(g.pool.Catalog(ctx), sessionID, questionsPerGift, locale)
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}

// BalancedSelection is the pure selection step of Generate. Gifts whose pool is
// exhausted contribute fewer questions.
func BalancedSelection(c domain.Catalog, sessionID string, questionsPerGift int, locale string) []domain.Question {
	rnd := rand.New(rand.NewSource(sessionSeed(sessionID)))

	byGift := make(map[domain.GiftKey][]domain.Question)
	for _, q := range c.ActiveQuestions() {
		byGift[q.Gift] = append(byGift[q.Gift], q)
	}

	selected := make([]domain.Question, 0, questionsPerGift*len(c.Gifts))
	for _, gift := range c.SortedGifts() {
		candidates := byGift[gift.Key]
		// Sort first so the result does not depend on pool insertion order.
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
		rnd.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		if len(candidates) > questionsPerGift {
			candidates = candidates[:questionsPerGift]
		}
		selected = append(selected, candidates...)
	}

	rnd.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	for i := range selected {
		selected[i].Prompt = selected[i].Text.In(locale)
	}
	return selected
}

// ResolveOrder maps stored question ids back to pool questions, dropping ids no longer in the pool.
func ResolveOrder(c domain.Catalog, order []string, locale string) []domain.Question {
	index := make(map[string]domain.Question, len(c.Questions))
	for _, q := range c.Questions {
		index[q.ID] = q
	}
	out := make([]domain.Question, 0, len(order))
	for _, id := range order {
		q, ok := index[id]
		if !ok {
			continue
		}
		q.Prompt = q.Text.In(locale)
		out = append(out, q)
	}
	return out
}

// QuestionIDs lists the ids of questions in order.
func QuestionIDs(questions []domain.Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func sessionSeed(sessionID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	return int64(h.Sum64())
}
