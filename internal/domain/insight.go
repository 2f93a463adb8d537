package domain

import "time"

// Confidence tags tell which tier of the narrative ladder produced a result.
const (
	ConfidenceParsed    = 85
	ConfidenceHeuristic = 65
	ConfidenceTemplate  = 50
)

// Tier names recorded on analysis results and metrics.
const (
	TierCache     = "cache"
	TierServer    = "server"
	TierClient    = "client"
	TierHeuristic = "heuristic"
	TierTemplate  = "template"
)

// CompatibilityPair describes the synergy between two gifts.
type CompatibilityPair struct {
	Primary    GiftKey  `json:"primary" yaml:"primary"`
	Secondary  GiftKey  `json:"secondary" yaml:"secondary"`
	Score      int      `json:"score" yaml:"score"`
	Strengths  []string `json:"strengths" yaml:"strengths"`
	Challenges []string `json:"challenges" yaml:"challenges"`
	Synergy    string   `json:"synergy" yaml:"synergy"`

	// Insight is the narrative enrichment, set only on the top-ranked pair.
	Insight string `json:"insight,omitempty" yaml:"-"`
}

// MinistryRecommendation is a ministry matched against the respondent's top gifts.
type MinistryRecommendation struct {
	Key              string    `json:"key"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Score            int       `json:"score"`
	MatchedGifts     int       `json:"matchedGifts"`
	RequiredGifts    int       `json:"requiredGifts"`
	Gifts            []GiftKey `json:"gifts"`
	Responsibilities []string  `json:"responsibilities"`
	GrowthAreas      []string  `json:"growthAreas"`
}

// Narrative is the free-text interpretation of a profile.
type Narrative struct {
	PersonalizedInsights    string   `json:"personalizedInsights"`
	StrengthsDescription    string   `json:"strengthsDescription"`
	ChallengesGuidance      string   `json:"challengesGuidance"`
	MinistryRecommendations []string `json:"ministryRecommendations"`
	DevelopmentPlan         string   `json:"developmentPlan"`
	PracticalApplications   []string `json:"practicalApplications"`
	Confidence              int      `json:"confidence"`
}

// IsEmpty reports whether the narrative carries no text at all.
func (n Narrative) IsEmpty() bool {
	return n.PersonalizedInsights == "" && n.StrengthsDescription == "" && n.ChallengesGuidance == "" &&
		n.DevelopmentPlan == "" && len(n.MinistryRecommendations) == 0 && len(n.PracticalApplications) == 0
}

// AnalysisKey identifies a cached analysis.
type AnalysisKey struct {
	Identity    string `json:"identity"`
	Fingerprint string `json:"fingerprint"`
	Locale      string `json:"locale"`
}

// String renders the key for logs and flat key-value stores.
func (k AnalysisKey) String() string {
	return k.Identity + ":" + k.Fingerprint + ":" + k.Locale
}

// CachedAnalysis is a stored narrative for an AnalysisKey.
type CachedAnalysis struct {
	Key        AnalysisKey `json:"key"`
	Narrative  Narrative   `json:"narrative"`
	Confidence int         `json:"confidence"`
	Provider   string      `json:"provider"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// AnalysisResult is the final structured output handed to presentation.
type AnalysisResult struct {
	Fingerprint          string                   `json:"fingerprint"`
	Locale               string                   `json:"locale"`
	Ranked               []GiftScore              `json:"ranked"`
	TopGifts             []GiftKey                `json:"topGifts"`
	Compatibilities      []CompatibilityPair      `json:"compatibilities"`
	OverallCompatibility float64                  `json:"overallCompatibility"`
	Synergy              string                   `json:"synergy"`
	Ministries           []MinistryRecommendation `json:"ministries"`
	Narrative            Narrative                `json:"narrative"`
	Confidence           int                      `json:"confidence"`
	Provider             string                   `json:"provider"`
	Tier                 string                   `json:"tier"`
	Cached               bool                     `json:"cached"`
	GeneratedAt          time.Time                `json:"generatedAt"`
}
