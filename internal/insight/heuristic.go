package insight

import (
	"regexp"
	"strings"
	"unicode"

	"gifts-assessment-service/internal/domain"
)

const (
	minFragmentLen      = 15
	maxFragmentsPerPart = 3
)

var sentenceSplit = regexp.MustCompile(`[.!?;\n]+`)

var (
	challengeKeywords = []string{
		"challenge", "weakness", "struggle", "avoid", "careful", "risk", "danger", "beware",
		"desafio", "fraqueza", "cuidado", "evite", "evitar", "risco", "perigo", "dificuldade",
	}
	strengthKeywords = []string{
		"strength", "strong", "excel", "natural", "ability", "talent",
		"força", "forte", "habilidade", "talento", "capacidade", "destaca",
	}
	growthKeywords = []string{
		"develop", "grow", "practice", "serve", "ministry", "volunteer", "mentor",
		"desenvolv", "cresc", "pratique", "servir", "sirva", "ministério", "voluntári",
	}
	giftKeywords = []string{"gift", "dons", "dom ", "calling", "chamado"}
)

// ExtractHeuristic assembles a degraded narrative from keyword-bearing sentence
// fragments. It reports false when nothing usable was found.
func ExtractHeuristic(text string) (domain.Narrative, bool) {
	var strengths, challenges, growth, general []string
	for _, frag := range sentenceSplit.Split(text, -1) {
		frag = cleanFragment(frag)
		if len([]rune(frag)) < minFragmentLen {
			continue
		}
		lower := strings.ToLower(frag)
		switch {
		case containsAny(lower, challengeKeywords):
			challenges = appendCapped(challenges, frag)
		case containsAny(lower, strengthKeywords):
			strengths = appendCapped(strengths, frag)
		case containsAny(lower, growthKeywords):
			growth = appendCapped(growth, frag)
		case containsAny(lower, giftKeywords):
			general = appendCapped(general, frag)
		}
	}
	if len(strengths)+len(challenges)+len(growth) == 0 {
		return domain.Narrative{}, false
	}

	insights := general
	if len(insights) == 0 {
		insights = strengths
	}
	if len(insights) == 0 {
		insights = growth
	}
	if len(insights) == 0 {
		insights = challenges
	}
	return domain.Narrative{
		PersonalizedInsights:  joinSentences(insights),
		StrengthsDescription:  joinSentences(strengths),
		ChallengesGuidance:    joinSentences(challenges),
		DevelopmentPlan:       joinSentences(growth),
		PracticalApplications: growth,
		Confidence:            domain.ConfidenceHeuristic,
	}, true
}

// cleanFragment trims JSON syntax and whitespace left over from partial objects.
func cleanFragment(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`{}[]",:*#-`, r)
	})
	if i := strings.Index(s, `":`); i >= 0 {
		s = strings.TrimSpace(strings.Trim(s[i+2:], ` "`))
	}
	return s
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func appendCapped(list []string, s string) []string {
	if len(list) >= maxFragmentsPerPart {
		return list
	}
	return append(list, s)
}

func joinSentences(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}
