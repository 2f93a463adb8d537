package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/llm"
	"gifts-assessment-service/internal/logger"
	"gifts-assessment-service/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTopN            = 3
	DefaultProviderTimeout = 30 * time.Second
	DefaultServerTimeout   = 45 * time.Second
)

// AnalysisCache stores narratives by (identity, fingerprint, locale).
type AnalysisCache interface {
	Lookup(ctx context.Context, key domain.AnalysisKey) (domain.CachedAnalysis, bool, error)
	Upsert(ctx context.Context, key domain.AnalysisKey, entry domain.CachedAnalysis) error
}

// ServerRequest is what a privileged remote tier needs to produce a narrative.
type ServerRequest struct {
	Identity   string
	Token      string
	Locale     string
	Scores     domain.ScoreVector
	Regenerate bool
}

// ServerTier produces a narrative on behalf of an authenticated identity.
type ServerTier interface {
	Narrative(ctx context.Context, req ServerRequest) (domain.CachedAnalysis, error)
}

// Completer is a chat-completion backend for the client tier.
type Completer interface {
	Name() string
	Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error)
}

// AnalysisRequest asks for the interpretation of a score vector. Identity is empty
// for anonymous callers.
type AnalysisRequest struct {
	Scores     domain.ScoreVector
	Identity   string
	Token      string
	Locale     string
	Regenerate bool
}

// Options tune the analyzer.
type Options struct {
	TopN            int
	ProviderTimeout time.Duration
	ServerTimeout   time.Duration
}

// Analyzer turns ranked gift scores into compatibility, ministry and narrative insight.
type Analyzer struct {
	tables  *Tables
	compat  CompatibilitySource
	cache   AnalysisCache
	server  ServerTier
	client  Completer
	opts    Options
	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu       sync.Mutex
	seq      uint64
	inflight map[string]flight
}

type flight struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithCache(c AnalysisCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithServerTier enables the privileged remote tier for identified callers.
func WithServerTier(s ServerTier) Option {
	return func(a *Analyzer) { a.server = s }
}

func WithCompleter(c Completer) Option {
	return func(a *Analyzer) { a.client = c }
}

func WithCompatibility(s CompatibilitySource) Option {
	return func(a *Analyzer) { a.compat = s }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(tables *Tables, opts Options, log *logger.Logger, options ...Option) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.ServerTimeout <= 0 {
		opts.ServerTimeout = DefaultServerTimeout
	}
	a := &Analyzer{
		tables:   tables,
		compat:   NewTableSource(tables),
		opts:     opts,
		log:      log.With("component", "analyzer"),
		tracer:   otel.Tracer("gifts-assessment-service/insight"),
		now:      time.Now,
		inflight: make(map[string]flight),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// SelectCompleter returns a client for the first provider in priority order that has
// credentials, or nil when none is configured.
func SelectCompleter(providers []llm.ProviderConfig, log *logger.Logger, opts ...llm.ClientOption) Completer {
	for _, p := range providers {
		if !p.Configured() {
			continue
		}
		c, err := llm.NewClient(p, log, opts...)
		if err != nil {
			if log != nil {
				log.Warn("skipping provider", "provider", p.Name, "error", err)
			}
			continue
		}
		return c
	}
	return nil
}

type tierResult struct {
	narrative  domain.Narrative
	confidence int
	provider   string
	tier       string
	cached     bool
}

// Analyze runs the full analysis. It fails only for an empty score vector, a
// superseded request or caller cancellation.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (domain.AnalysisResult, error) {
	if req.Scores.Len() == 0 {
		return domain.AnalysisResult{}, domain.ErrEmptyScores
	}
	locale := a.tables.NormalizeLocale(req.Locale)
	key := domain.AnalysisKey{Identity: req.Identity, Fingerprint: Fingerprint(req.Scores), Locale: locale}

	ctx, span := a.tracer.Start(ctx, "insight.Analyze", trace.WithAttributes(
		attribute.String("fingerprint", key.Fingerprint),
		attribute.String("locale", locale),
		attribute.Bool("anonymous", req.Identity == ""),
		attribute.Bool("regenerate", req.Regenerate),
	))
	defer span.End()

	runCtx, release := a.begin(ctx, key)
	defer release()

	ranked := req.Scores.Ranked()
	top := ranked
	if len(top) > a.opts.TopN {
		top = top[:a.opts.TopN]
	}
	topKeys := make([]domain.GiftKey, len(top))
	for i, s := range top {
		topKeys[i] = s.Gift
	}

	pairs := LookupPairs(runCtx, a.compat, topKeys, a.log)
	ministries := MatchMinistries(a.tables.Ministries, topKeys, req.Scores, locale)

	res, err := a.narrative(runCtx, req, key, top, topKeys, ministries)
	if err == nil {
		err = interruption(runCtx)
	}
	if err != nil {
		span.RecordError(err)
		return domain.AnalysisResult{}, err
	}
	span.SetAttributes(attribute.String("tier", res.tier), attribute.Int("confidence", res.confidence))
	a.metrics.AnalysisCompleted(res.tier)

	result := domain.AnalysisResult{
		Fingerprint:          key.Fingerprint,
		Locale:               locale,
		Ranked:               ranked,
		TopGifts:             topKeys,
		Compatibilities:      pairs,
		OverallCompatibility: OverallCompatibility(pairs),
		Ministries:           ministries,
		Narrative:            res.narrative,
		Confidence:           res.confidence,
		Provider:             res.provider,
		Tier:                 res.tier,
		Cached:               res.cached,
		GeneratedAt:          a.now().UTC(),
	}
	if len(pairs) > 0 {
		result.Synergy = pairs[0].Synergy
		result.Compatibilities[0].Insight = pairInsight(pairs[0], res.narrative)
	}
	return result, nil
}

func (a *Analyzer) narrative(ctx context.Context, req AnalysisRequest, key domain.AnalysisKey, top []domain.GiftScore, topKeys []domain.GiftKey, ministries []domain.MinistryRecommendation) (tierResult, error) {
	if key.Identity != "" && !req.Regenerate && a.cache != nil {
		entry, ok, err := a.cache.Lookup(ctx, key)
		if err != nil {
			a.log.Warn("analysis cache lookup failed", "identity", key.Identity, "error", err)
		}
		a.metrics.CacheLookup(ok)
		if ok && !entry.Narrative.IsEmpty() {
			return tierResult{narrative: entry.Narrative, confidence: entry.Confidence, provider: entry.Provider, tier: domain.TierCache, cached: true}, nil
		}
	}
	if err := interruption(ctx); err != nil {
		return tierResult{}, err
	}

	if key.Identity != "" && req.Token != "" && a.server != nil {
		res, err := a.callServer(ctx, req, key.Locale)
		if err == nil {
			return res, nil
		}
		if stop := interruption(ctx); stop != nil {
			return tierResult{}, stop
		}
		a.log.Warn("server tier failed, falling back to client tier", "error", err)
	}

	if a.client != nil {
		text, err := a.callClient(ctx, top, key.Locale)
		if stop := interruption(ctx); stop != nil {
			return tierResult{}, stop
		}
		switch {
		case err != nil:
			a.log.Warn("client tier failed, using template", "provider", a.client.Name(), "error", err)
		case strings.TrimSpace(text) == "":
			a.log.Warn("client tier returned empty text, using template", "provider", a.client.Name())
		default:
			n, perr := ParseNarrative(text)
			if perr == nil {
				res := tierResult{narrative: n, confidence: domain.ConfidenceParsed, provider: a.client.Name(), tier: domain.TierClient}
				a.writeThrough(ctx, key, res)
				return res, nil
			}
			a.log.Info("provider response not parseable, trying heuristic", "error", perr)
			if n, ok := ExtractHeuristic(text); ok {
				res := tierResult{narrative: n, confidence: domain.ConfidenceHeuristic, provider: a.client.Name(), tier: domain.TierHeuristic}
				a.writeThrough(ctx, key, res)
				return res, nil
			}
		}
	}

	return tierResult{
		narrative:  TemplateNarrative(a.tables, topKeys, ministries, key.Locale),
		confidence: domain.ConfidenceTemplate,
		provider:   "template",
		tier:       domain.TierTemplate,
	}, nil
}

func (a *Analyzer) callServer(ctx context.Context, req AnalysisRequest, locale string) (tierResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ServerTimeout)
	defer cancel()
	ctx, span := a.tracer.Start(ctx, "insight.ServerTier")
	defer span.End()

	started := a.now()
	entry, err := a.server.Narrative(ctx, ServerRequest{
		Identity:   req.Identity,
		Token:      req.Token,
		Locale:     locale,
		Scores:     req.Scores,
		Regenerate: req.Regenerate,
	})
	a.metrics.ProviderCall("server", started, err)
	if err != nil {
		span.RecordError(err)
		return tierResult{}, err
	}
	if entry.Narrative.IsEmpty() {
		return tierResult{}, errors.New("server tier returned an empty narrative")
	}
	return tierResult{narrative: entry.Narrative, confidence: entry.Confidence, provider: entry.Provider, tier: domain.TierServer}, nil
}

func (a *Analyzer) callClient(ctx context.Context, top []domain.GiftScore, locale string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ProviderTimeout)
	defer cancel()
	ctx, span := a.tracer.Start(ctx, "insight.ClientTier", trace.WithAttributes(attribute.String("provider", a.client.Name())))
	defer span.End()

	started := a.now()
	resp, err := a.client.Complete(ctx, BuildPrompt(a.tables, top, locale))
	a.metrics.ProviderCall(a.client.Name(), started, err)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return resp.Content, nil
}

// writeThrough caches a client-tier result for a known identity. Failures are logged only.
func (a *Analyzer) writeThrough(ctx context.Context, key domain.AnalysisKey, res tierResult) {
	if key.Identity == "" || a.cache == nil {
		return
	}
	now := a.now().UTC()
	entry := domain.CachedAnalysis{
		Key:        key,
		Narrative:  res.narrative,
		Confidence: res.confidence,
		Provider:   res.provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.cache.Upsert(ctx, key, entry); err != nil {
		a.log.Warn("analysis cache write failed", "identity", key.Identity, "error", err)
	}
}

// begin registers a run for key, superseding any run already in flight for it.
// Anonymous runs have no subject and never supersede each other.
func (a *Analyzer) begin(ctx context.Context, key domain.AnalysisKey) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)
	if key.Identity == "" {
		return runCtx, func() { cancel(nil) }
	}
	subject := key.String()

	a.mu.Lock()
	a.seq++
	id := a.seq
	if prev, ok := a.inflight[subject]; ok {
		prev.cancel(domain.ErrAnalysisSuperseded)
	}
	a.inflight[subject] = flight{id: id, cancel: cancel}
	a.mu.Unlock()

	return runCtx, func() {
		a.mu.Lock()
		if f, ok := a.inflight[subject]; ok && f.id == id {
			delete(a.inflight, subject)
		}
		a.mu.Unlock()
		cancel(nil)
	}
}

// interruption reports why ctx stopped: superseded, or the caller's own error.
func interruption(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if errors.Is(context.Cause(ctx), domain.ErrAnalysisSuperseded) {
		return domain.ErrAnalysisSuperseded
	}
	return ctx.Err()
}

func pairInsight(p domain.CompatibilityPair, n domain.Narrative) string {
	parts := make([]string, 0, 2)
	if p.Synergy != "" {
		parts = append(parts, p.Synergy)
	}
	if n.StrengthsDescription != "" {
		parts = append(parts, n.StrengthsDescription)
	} else if n.PersonalizedInsights != "" {
		parts = append(parts, n.PersonalizedInsights)
	}
	return strings.Join(parts, " ")
}
