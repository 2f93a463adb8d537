package domain

import (
	"sort"
	"time"
)

// Answer scale bounds. Every raw answer lies in [MinScale, MaxScale].
const (
	MinScale = 0
	MaxScale = 3
)

// DefaultLocale is used whenever a translation for the requested locale is missing.
const DefaultLocale = "en"

// GiftKey identifies one gift dimension.
type GiftKey string

// GiftCategory groups gifts into one of three fixed families.
type GiftCategory string

const (
	CategorySpeaking GiftCategory = "speaking"
	CategoryServing  GiftCategory = "serving"
	CategoryLeading  GiftCategory = "leading"
)

// WeightClass is the ordinal diagnostic tier of a question (P1 least, P3 most).
type WeightClass string

const (
	WeightP1 WeightClass = "P1"
	WeightP2 WeightClass = "P2"
	WeightP3 WeightClass = "P3"
)

// SourceType tells what kind of gift content a question was written from.
type SourceType string

const (
	SourceQuality          SourceType = "quality"
	SourceCharacteristic   SourceType = "characteristic"
	SourceDanger           SourceType = "danger"
	SourceMisunderstanding SourceType = "misunderstanding"
	SourceOther            SourceType = "other"
)

// LocalizedText maps a locale ("en", "pt") to a translation.
type LocalizedText map[string]string

// In resolves the text for locale, falling back to DefaultLocale and then to any translation.
func (t LocalizedText) In(locale string) string {
	if v, ok := t[locale]; ok && v != "" {
		return v
	}
	if v, ok := t[DefaultLocale]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t[k] != "" {
			return t[k]
		}
	}
	return ""
}

// Gift describes one spiritual gift dimension.
type Gift struct {
	Key               GiftKey       `json:"key" yaml:"key"`
	Ordinal           int           `json:"ordinal" yaml:"ordinal"`
	Name              LocalizedText `json:"name" yaml:"name"`
	Definition        LocalizedText `json:"definition" yaml:"definition"`
	Category          GiftCategory  `json:"category" yaml:"category"`
	Qualities         []string      `json:"qualities,omitempty" yaml:"qualities"`
	Characteristics   []string      `json:"characteristics,omitempty" yaml:"characteristics"`
	Dangers           []string      `json:"dangers,omitempty" yaml:"dangers"`
	Misunderstandings []string      `json:"misunderstandings,omitempty" yaml:"misunderstandings"`
	BiblicalRefs      []string      `json:"biblicalRefs,omitempty" yaml:"biblical_refs"`
}

// Question is one weighted assessment item.
type Question struct {
	ID            string        `json:"id" yaml:"id"`
	Text          LocalizedText `json:"text" yaml:"text"`
	Gift          GiftKey       `json:"gift" yaml:"gift"`
	WeightClass   WeightClass   `json:"weightClass" yaml:"weight_class"`
	SourceType    SourceType    `json:"sourceType" yaml:"source_type"`
	DefaultWeight float64       `json:"defaultWeight" yaml:"default_weight"`
	ReverseScored bool          `json:"reverseScored" yaml:"reverse_scored"`
	Active        bool          `json:"active" yaml:"active"`

	// Prompt is the text resolved for the locale the quiz was generated in.
	Prompt string `json:"prompt,omitempty" yaml:"-"`
}

// Weight returns the default weight. Zero is honored, so the question counts in
// its gift's question total but adds nothing to the weighted totals. Negative
// weights are clamped to zero.
func (q Question) Weight() float64 {
	if q.DefaultWeight < 0 {
		return 0
	}
	return q.DefaultWeight
}

// DecisionWeight is one row of the decision matrix.
type DecisionWeight struct {
	Gift        GiftKey     `json:"gift" yaml:"gift"`
	WeightClass WeightClass `json:"weightClass" yaml:"weight_class"`
	SourceType  SourceType  `json:"sourceType" yaml:"source_type"`
	Multiplier  float64     `json:"multiplier" yaml:"multiplier"`
	Active      bool        `json:"active" yaml:"active"`
	Rationale   string      `json:"rationale,omitempty" yaml:"rationale"`
}

type matrixKey struct {
	gift GiftKey
	wc   WeightClass
	st   SourceType
}

// DecisionMatrix resolves multipliers by (gift, weight class, source type).
type DecisionMatrix struct {
	rows map[matrixKey]float64
}

// NewDecisionMatrix keeps the first active row per key; inactive rows are ignored.
func NewDecisionMatrix(weights []DecisionWeight) DecisionMatrix {
	rows := make(map[matrixKey]float64, len(weights))
	for _, w := range weights {
		if !w.Active {
			continue
		}
		k := matrixKey{gift: w.Gift, wc: w.WeightClass, st: w.SourceType}
		if _, exists := rows[k]; exists {
			continue
		}
		rows[k] = w.Multiplier
	}
	return DecisionMatrix{rows: rows}
}

// Multiplier returns the active multiplier for the key, or 1 when none matches.
func (m DecisionMatrix) Multiplier(gift GiftKey, wc WeightClass, st SourceType) float64 {
	if v, ok := m.rows[matrixKey{gift: gift, wc: wc, st: st}]; ok {
		return v
	}
	return 1
}

// Len reports the number of active rows.
func (m DecisionMatrix) Len() int {
	return len(m.rows)
}

// Catalog bundles the authored assessment content.
type Catalog struct {
	Gifts     []Gift           `json:"gifts" yaml:"gifts"`
	Questions []Question       `json:"questions" yaml:"questions"`
	Weights   []DecisionWeight `json:"weights" yaml:"weights"`
}

// ActiveQuestions returns the questions flagged active, in catalog order.
func (c Catalog) ActiveQuestions() []Question {
	out := make([]Question, 0, len(c.Questions))
	for _, q := range c.Questions {
		if q.Active {
			out = append(out, q)
		}
	}
	return out
}

// SortedGifts returns gifts ordered by ordinal, then key.
func (c Catalog) SortedGifts() []Gift {
	gifts := append([]Gift(nil), c.Gifts...)
	sort.SliceStable(gifts, func(i, j int) bool {
		if gifts[i].Ordinal != gifts[j].Ordinal {
			return gifts[i].Ordinal < gifts[j].Ordinal
		}
		return gifts[i].Key < gifts[j].Key
	})
	return gifts
}

// QuizSession is one assessment attempt.
type QuizSession struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId,omitempty"`
	Locale        string     `json:"locale"`
	QuestionOrder []string   `json:"questionOrder,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Completed     bool       `json:"completed"`
}

// Answer is one stored response.
type Answer struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Score      int    `json:"score"`
}

// GiftScore is the aggregate for one gift within a ScoreVector.
type GiftScore struct {
	Gift            GiftKey `json:"gift"`
	Ordinal         int     `json:"ordinal"`
	RawTotal        int     `json:"rawTotal"`
	WeightedTotal   float64 `json:"weightedTotal"`
	AverageWeighted float64 `json:"averageWeighted"`
	MaxWeighted     float64 `json:"maxWeighted"`
	Percentage      float64 `json:"percentage"`
	QuestionCount   int     `json:"questionCount"`
	AnsweredCount   int     `json:"answeredCount"`
}

// ScoreVector maps every scored gift to its aggregate.
type ScoreVector struct {
	Scores map[GiftKey]GiftScore `json:"scores"`
}

// Len reports how many gifts were scored.
func (v ScoreVector) Len() int {
	return len(v.Scores)
}

// Ranked orders gifts by weighted total desc, ordinal asc, then key.
func (v ScoreVector) Ranked() []GiftScore {
	out := make([]GiftScore, 0, len(v.Scores))
	for _, s := range v.Scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeightedTotal != out[j].WeightedTotal {
			return out[i].WeightedTotal > out[j].WeightedTotal
		}
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].Gift < out[j].Gift
	})
	return out
}

// Top returns at most n gifts in rank order.
func (v ScoreVector) Top(n int) []GiftScore {
	ranked := v.Ranked()
	if n >= 0 && n < len(ranked) {
		return ranked[:n]
	}
	return ranked
}

// AssessmentState is the resumable, device-local progress of an assessment.
type AssessmentState struct {
	SessionID            string         `json:"sessionId,omitempty"`
	Locale               string         `json:"locale,omitempty"`
	Answers              map[string]int `json:"answers"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	StartedAt            time.Time      `json:"startedAt"`
	QuestionOrder        []string       `json:"questionOrder,omitempty"`
}
