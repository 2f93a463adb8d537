package app

import (
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/logger"
)

// Scorer converts raw answers into per-gift weighted aggregates.
type Scorer struct {
	log *logger.Logger
}

func NewScorer(log *logger.Logger) *Scorer {
	if log == nil {
		log = logger.Nop()
	}
	return &Scorer{log: log.With("component", "scorer")}
}

// EffectiveScore applies reverse scoring.
func EffectiveScore(q domain.Question, raw int) int {
	if q.ReverseScored {
		return domain.MaxScale - raw
	}
	return raw
}

// Score aggregates answers over the assigned questions. Unanswered questions
// count as 0 and still count in the average's denominator. Records with
// integrity problems are skipped and logged.
func (s *Scorer) Score(answers map[string]int, questions []domain.Question, gifts []domain.Gift, matrix domain.DecisionMatrix) domain.ScoreVector {
	ordinals := make(map[domain.GiftKey]int, len(gifts))
	for _, g := range gifts {
		ordinals[g.Key] = g.Ordinal
	}

	scores := make(map[domain.GiftKey]domain.GiftScore)
	assigned := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := assigned[q.ID]; dup {
			s.log.Warn("duplicate question in assessment, skipping", "question", q.ID)
			continue
		}
		ordinal, ok := ordinals[q.Gift]
		if !ok {
			s.log.Error("question references unknown gift, skipping", "question", q.ID, "gift", q.Gift)
			continue
		}
		assigned[q.ID] = struct{}{}

		multiplier := matrix.Multiplier(q.Gift, q.WeightClass, q.SourceType)
		gs := scores[q.Gift]
		gs.Gift = q.Gift
		gs.Ordinal = ordinal
		gs.QuestionCount++
		gs.MaxWeighted += float64(domain.MaxScale) * q.Weight() * multiplier

		if raw, answered := answers[q.ID]; answered {
			if raw < domain.MinScale || raw > domain.MaxScale {
				s.log.Warn("answer out of range, scoring as unanswered", "question", q.ID, "score", raw)
			} else {
				effective := EffectiveScore(q, raw)
				gs.AnsweredCount++
				gs.RawTotal += effective
				gs.WeightedTotal += float64(effective) * q.Weight() * multiplier
			}
		}
		scores[q.Gift] = gs
	}

	for id := range answers {
		if _, ok := assigned[id]; !ok {
			s.log.Warn("answer for unassigned question, skipping", "question", id)
		}
	}

	for key, gs := range scores {
		if gs.QuestionCount > 0 {
			gs.AverageWeighted = gs.WeightedTotal / float64(gs.QuestionCount)
		}
		if gs.MaxWeighted > 0 {
			gs.Percentage = gs.WeightedTotal / gs.MaxWeighted * 100
		}
		scores[key] = gs
	}
	return domain.ScoreVector{Scores: scores}
}
