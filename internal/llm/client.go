package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gifts-assessment-service/internal/logger"
)

const maxResponseBytes = 4 << 20

// Client performs completions against a single configured provider.
type Client struct {
	provider   Provider
	cfg        ProviderConfig
	httpClient *http.Client
	log        *logger.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for cfg. It fails for unknown providers and for entries without a key.
func NewClient(cfg ProviderConfig, log *logger.Logger, opts ...ClientOption) (*Client, error) {
	provider, ok := LookupProvider(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Name)
	}
	if !cfg.Configured() {
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrNotConfigured)
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		provider:   provider,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log.With("component", "llm", "provider", cfg.Name),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.provider.Name()
}

// Complete sends messages and returns the provider's reply text.
func (c *Client) Complete(ctx context.Context, messages []Message) (*Response, error) {
	var temperature *float64
	if c.cfg.Temperature > 0 {
		t := c.cfg.Temperature
		temperature = &t
	}
	body, err := c.provider.BuildRequestBody(c.cfg.Model, messages, temperature, c.cfg.MaxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.BuildURL(c.cfg.BaseURL, c.cfg.Model), bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(req, c.cfg.APIKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, NewTransientError(fmt.Errorf("%s request: %w", c.provider.Name(), err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read %s response: %w", c.provider.Name(), err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(c.provider.Name(), resp.StatusCode, raw)
	}

	out, err := c.provider.ParseResponse(raw)
	if err != nil {
		return nil, NewFatalError(err)
	}
	c.log.Debug("completion received", "model", out.Model, "tokens", out.Usage.TotalTokens, "elapsed", time.Since(started))
	return out, nil
}
