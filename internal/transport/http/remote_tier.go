package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/insight"
)

// RemoteTier calls a server's /api/v1/insights endpoint on behalf of an identified user.
type RemoteTier struct {
	baseURL string
	client  *http.Client
}

func NewRemoteTier(baseURL string, timeout time.Duration) *RemoteTier {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &RemoteTier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *RemoteTier) Narrative(ctx context.Context, req insight.ServerRequest) (domain.CachedAnalysis, error) {
	body, err := json.Marshal(insightRequest{
		Locale:     req.Locale,
		Regenerate: req.Regenerate,
		Scores:     req.Scores.Ranked(),
	})
	if err != nil {
		return domain.CachedAnalysis{}, fmt.Errorf("encode insight request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/v1/insights", bytes.NewReader(body))
	if err != nil {
		return domain.CachedAnalysis{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return domain.CachedAnalysis{}, fmt.Errorf("insight server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.CachedAnalysis{}, fmt.Errorf("read insight response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.CachedAnalysis{}, fmt.Errorf("insight server returned %d: %s", resp.StatusCode, raw)
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.CachedAnalysis{}, fmt.Errorf("decode insight response: %w", err)
	}
	return domain.CachedAnalysis{
		Narrative:  result.Narrative,
		Confidence: result.Confidence,
		Provider:   result.Provider,
		CreatedAt:  result.GeneratedAt,
		UpdatedAt:  result.GeneratedAt,
	}, nil
}
