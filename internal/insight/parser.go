package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"gifts-assessment-service/internal/domain"
	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrNoJSONObject means the text contains no object-like span.
	ErrNoJSONObject = errors.New("no json object in response")
	// ErrMissingInsights means the object lacks personalizedInsights.
	ErrMissingInsights = errors.New("response lacks personalizedInsights")
)

var (
	codeFencePattern     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(\\{.*\\})\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseNarrative recovers a narrative from free-form provider text. It tolerates code
// fences, prose around the object, control characters and trailing commas, and hands
// anything still malformed to jsonrepair.
func ParseNarrative(text string) (domain.Narrative, error) {
	raw := extractObject(text)
	if raw == "" {
		return domain.Narrative{}, ErrNoJSONObject
	}
	cleaned := trailingCommaPattern.ReplaceAllString(stripControl(raw), "$1")

	n, err := decodeNarrative(cleaned)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return domain.Narrative{}, fmt.Errorf("decode narrative: %w", err)
		}
		if n, err = decodeNarrative(repaired); err != nil {
			return domain.Narrative{}, fmt.Errorf("decode repaired narrative: %w", err)
		}
	}
	if strings.TrimSpace(n.PersonalizedInsights) == "" {
		return domain.Narrative{}, ErrMissingInsights
	}
	n.Confidence = domain.ConfidenceParsed
	return n, nil
}

func extractObject(text string) string {
	if m := codeFencePattern.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		// Truncated output: let the repair step close it.
		return text[start:]
	}
	return text[start : end+1]
}

// stripControl drops control characters; raw newlines and tabs become spaces so they
// cannot break string literals.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

type wireNarrative struct {
	PersonalizedInsights    json.RawMessage `json:"personalizedInsights"`
	StrengthsDescription    json.RawMessage `json:"strengthsDescription"`
	ChallengesGuidance      json.RawMessage `json:"challengesGuidance"`
	MinistryRecommendations json.RawMessage `json:"ministryRecommendations"`
	DevelopmentPlan         json.RawMessage `json:"developmentPlan"`
	PracticalApplications   json.RawMessage `json:"practicalApplications"`
}

func decodeNarrative(s string) (domain.Narrative, error) {
	var w wireNarrative
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return domain.Narrative{}, err
	}
	return domain.Narrative{
		PersonalizedInsights:    textOf(w.PersonalizedInsights),
		StrengthsDescription:    textOf(w.StrengthsDescription),
		ChallengesGuidance:      textOf(w.ChallengesGuidance),
		MinistryRecommendations: listOf(w.MinistryRecommendations),
		DevelopmentPlan:         textOf(w.DevelopmentPlan),
		PracticalApplications:   listOf(w.PracticalApplications),
	}, nil
}

// textOf accepts a string, a list of strings or an object and flattens it to text.
func textOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if items := listOf(raw); len(items) > 0 {
		return strings.Join(items, " ")
	}
	return ""
}

// listOf accepts a list of strings, a list of objects or a single string.
func listOf(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := scalarText(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarText(item); s != "" {
			out = append(out, s)
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for _, k := range []string{"name", "title", "ministry", "description", "text"} {
			if s := scalarText(obj[k]); s != "" {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
