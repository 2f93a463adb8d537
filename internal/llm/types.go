package llm

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider-neutral completion.
type Response struct {
	Content      string
	Model        string
	Usage        TokenUsage
	FinishReason string
}

// ProviderConfig is an explicit provider entry; keys are never looked up implicitly.
type ProviderConfig struct {
	Name        string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// Configured reports whether the entry carries credentials.
func (c ProviderConfig) Configured() bool {
	return c.APIKey != ""
}
