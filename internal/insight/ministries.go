package insight

import (
	"math"
	"sort"

	"gifts-assessment-service/internal/domain"
)

// maxMinistries caps the recommendation list.
const maxMinistries = 3

// MatchMinistries scores every ministry against the top gifts. A ministry's score is
// 60% coverage of its required gifts by the top gifts and 40% the mean percentage of
// its required gifts. Ministries with no covered gift are dropped.
func MatchMinistries(ministries []Ministry, top []domain.GiftKey, scores domain.ScoreVector, locale string) []domain.MinistryRecommendation {
	inTop := make(map[domain.GiftKey]struct{}, len(top))
	for _, g := range top {
		inTop[g] = struct{}{}
	}

	var out []domain.MinistryRecommendation
	for _, m := range ministries {
		if len(m.Gifts) == 0 {
			continue
		}
		matched := 0
		pct := 0.0
		for _, g := range m.Gifts {
			if _, ok := inTop[g]; ok {
				matched++
			}
			pct += scores.Scores[g].Percentage
		}
		if matched == 0 {
			continue
		}
		coverage := float64(matched) / float64(len(m.Gifts)) * 100
		score := 0.6*coverage + 0.4*(pct/float64(len(m.Gifts)))
		out = append(out, domain.MinistryRecommendation{
			Key:              m.Key,
			Name:             m.Name.In(locale),
			Description:      m.Description.In(locale),
			Score:            int(math.Round(score)),
			MatchedGifts:     matched,
			RequiredGifts:    len(m.Gifts),
			Gifts:            append([]domain.GiftKey(nil), m.Gifts...),
			Responsibilities: append([]string(nil), m.Responsibilities...),
			GrowthAreas:      append([]string(nil), m.GrowthAreas...),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > maxMinistries {
		out = out[:maxMinistries]
	}
	return out
}
