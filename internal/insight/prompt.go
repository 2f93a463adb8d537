package insight

import (
	"fmt"
	"math"
	"strings"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/llm"
)

const responseShape = `{
  "personalizedInsights": "string",
  "strengthsDescription": "string",
  "challengesGuidance": "string",
  "ministryRecommendations": ["string"],
  "developmentPlan": "string",
  "practicalApplications": ["string"],
  "confidence": 0
}`

var promptText = map[string]struct {
	system, primary, secondary, instruction string
}{
	"en": {
		system:      "You are a pastoral counselor who interprets spiritual gift assessments. Answer only with JSON.",
		primary:     "Primary gift: %s (%d%%)",
		secondary:   "Secondary gifts:",
		instruction: "Write a personalized, encouraging analysis in English. Respond with a single JSON object of exactly this shape:",
	},
	"pt": {
		system:      "Você é um conselheiro pastoral que interpreta avaliações de dons espirituais. Responda apenas com JSON.",
		primary:     "Dom principal: %s (%d%%)",
		secondary:   "Dons secundários:",
		instruction: "Escreva uma análise personalizada e encorajadora em português. Responda com um único objeto JSON exatamente neste formato:",
	},
}

// BuildPrompt renders the localized request for the client tier.
func BuildPrompt(t *Tables, top []domain.GiftScore, locale string) []llm.Message {
	text, ok := promptText[locale]
	if !ok {
		text = promptText[domain.DefaultLocale]
	}

	var b strings.Builder
	if len(top) > 0 {
		fmt.Fprintf(&b, text.primary+"\n", t.GiftName(top[0].Gift, locale), pct(top[0]))
	}
	if len(top) > 1 {
		b.WriteString(text.secondary + "\n")
		for _, s := range top[1:] {
			fmt.Fprintf(&b, "- %s (%d%%)\n", t.GiftName(s.Gift, locale), pct(s))
		}
	}
	b.WriteString("\n" + text.instruction + "\n" + responseShape)

	return []llm.Message{
		{Role: "system", Content: text.system},
		{Role: "user", Content: b.String()},
	}
}

func pct(s domain.GiftScore) int {
	return int(math.Round(s.Percentage))
}
