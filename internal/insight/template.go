package insight

import (
	"fmt"
	"strings"

	"gifts-assessment-service/internal/domain"
)

// TemplateNarrative builds the always-available narrative from canned fragments.
func TemplateNarrative(t *Tables, top []domain.GiftKey, ministries []domain.MinistryRecommendation, locale string) domain.Narrative {
	lt := t.Locale(locale)
	n := domain.Narrative{Confidence: domain.ConfidenceTemplate}
	if len(top) == 0 {
		return n
	}

	primary := lt.Gifts[top[0]]
	insight := fmt.Sprintf(lt.Intro, t.GiftName(top[0], locale))
	if primary.Insight != "" {
		insight += " " + primary.Insight
	}
	if len(top) > 1 {
		names := make([]string, 0, len(top)-1)
		for _, g := range top[1:] {
			names = append(names, t.GiftName(g, locale))
		}
		insight += " " + fmt.Sprintf(lt.Secondary, strings.Join(names, ", "))
	}
	n.PersonalizedInsights = insight

	var strengths []string
	seen := map[string]struct{}{}
	for _, g := range top {
		tpl := lt.Gifts[g]
		if tpl.Strengths != "" {
			strengths = append(strengths, tpl.Strengths)
		}
		for _, a := range tpl.Applications {
			if _, dup := seen[a]; !dup {
				seen[a] = struct{}{}
				n.PracticalApplications = append(n.PracticalApplications, a)
			}
		}
	}
	n.StrengthsDescription = strings.Join(strengths, " ")
	n.ChallengesGuidance = primary.Challenges
	n.DevelopmentPlan = primary.Development

	for _, m := range ministries {
		n.MinistryRecommendations = append(n.MinistryRecommendations, m.Name)
	}
	if len(n.MinistryRecommendations) == 0 && lt.MinistriesNone != "" {
		n.MinistryRecommendations = []string{lt.MinistriesNone}
	}
	return n
}
