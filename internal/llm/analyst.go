package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/legalyze/internal/cache"
	"github.com/ppiankov/legalyze/internal/metrics"
)

// Operation names used for cache namespaces and metrics
const (
	OpSummary      = "summary"
	OpInsights     = "insights"
	OpClauseReview = "clause_review"
)

// Limiter throttles requests per API host
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// AnalystConfig tunes requests made by an Analyst
type AnalystConfig struct {
	MaxTokens     int
	Temperature   float32 // insight extraction; summary and clause review use fixed values
	MaxInputChars int
	MaxRetries    int
	RetryDelay    time.Duration
	CacheTTL      time.Duration
}

// Analyst produces the narrative parts of a report: a summary, key insights
// and an optional clause review. Either provider may be nil to disable its
// operations.
type Analyst struct {
	summary  Provider
	insights Provider
	cfg      AnalystConfig
	cache    cache.Cache
	limiter  Limiter
	logger   *slog.Logger
}

// Option configures an Analyst
type Option func(*Analyst)

// WithCache stores responses in c
func WithCache(c cache.Cache) Option {
	return func(a *Analyst) { a.cache = c }
}

// WithLimiter throttles requests through l
func WithLimiter(l Limiter) Option {
	return func(a *Analyst) { a.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyst) { a.logger = l }
}

// NewAnalyst creates an analyst over the given providers
func NewAnalyst(summary, insights Provider, cfg AnalystConfig, opts ...Option) *Analyst {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	a := &Analyst{
		summary:  summary,
		insights: insights,
		cfg:      cfg,
		cache:    cache.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the outcome of one analyst operation
type Result struct {
	Text       string
	Provider   string
	Model      string
	TokensUsed int
	Cached     bool
	Truncated  bool
}

// IsEnabled reports whether any provider is configured
func (a *Analyst) IsEnabled() bool {
	return a != nil && (a.summary != nil || a.insights != nil)
}

// SummaryProvider returns the summary provider name, or "" when disabled
func (a *Analyst) SummaryProvider() string {
	if a == nil || a.summary == nil {
		return ""
	}
	return a.summary.Name()
}

// InsightsProvider returns the insights provider name, or "" when disabled
func (a *Analyst) InsightsProvider() string {
	if a == nil || a.insights == nil {
		return ""
	}
	return a.insights.Name()
}

// Summarize produces a legal summary of text
func (a *Analyst) Summarize(ctx context.Context, text string) (*Result, error) {
	if a == nil {
		return nil, ErrDisabled
	}
	return a.run(ctx, OpSummary, a.summary, CompletionRequest{
		System:      summarySystemPrompt,
		Prompt:      SummaryPrompt(text),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: summaryTemperature,
	})
}

// ExtractInsights lists key insights from text
func (a *Analyst) ExtractInsights(ctx context.Context, text string) (*Result, error) {
	if a == nil {
		return nil, ErrDisabled
	}
	return a.run(ctx, OpInsights, a.insights, CompletionRequest{
		Prompt:      InsightsPrompt(text),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
}

// ReviewClauses asks the summary provider to assess each clause
func (a *Analyst) ReviewClauses(ctx context.Context, clauses []string) (*Result, error) {
	if a == nil {
		return nil, ErrDisabled
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%s: no clauses", OpClauseReview)
	}
	return a.run(ctx, OpClauseReview, a.summary, CompletionRequest{
		System:      clauseReviewSystemPrompt,
		Prompt:      ClauseReviewPrompt(clauses),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: clauseReviewTemperature,
	})
}

type cachedResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

func (a *Analyst) run(ctx context.Context, op string, p Provider, req CompletionRequest) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDisabled)
	}

	prompt, truncated := Truncate(req.Prompt, a.cfg.MaxInputChars)
	if truncated {
		a.logger.Warn("document too long, truncating for API", "operation", op, "provider", p.Name(), "max_chars", a.cfg.MaxInputChars)
	}
	req.Prompt = prompt

	key := cache.CacheKey(op, p.Name(), modelOf(p, req), req.System, req.Prompt)
	if data, ok := a.cache.Get(key); ok {
		var cached cachedResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.LLMCacheHits.WithLabelValues(op).Inc()
			a.logger.Info("using cached LLM response", "operation", op, "provider", p.Name())
			return &Result{
				Text:      cached.Text,
				Provider:  p.Name(),
				Model:     cached.Model,
				Cached:    true,
				Truncated: truncated,
			}, nil
		}
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, limiterKey(p)); err != nil {
			return nil, fmt.Errorf("%s: rate limit wait: %w", op, err)
		}
	}

	start := time.Now()
	resp, err := completeWithRetry(ctx, p, req, a.cfg.MaxRetries, a.cfg.RetryDelay)
	metrics.ObserveLLM(p.Name(), op, err)
	if err != nil {
		a.logger.Error("LLM request failed", "operation", op, "provider", p.Name(), "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.logger.Debug("LLM request complete", "operation", op, "provider", p.Name(), "model", resp.Model,
		"tokens", resp.TokensUsed, "elapsed", time.Since(start))

	if data, err := json.Marshal(cachedResponse{Text: resp.Text, Model: resp.Model}); err == nil {
		if err := a.cache.Set(key, data, a.cfg.CacheTTL); err != nil {
			a.logger.Warn("failed to cache LLM response", "operation", op, "error", err)
		}
	}

	return &Result{
		Text:       resp.Text,
		Provider:   p.Name(),
		Model:      resp.Model,
		TokensUsed: resp.TokensUsed,
		Truncated:  truncated,
	}, nil
}

// modelOf identifies the model a request will use, for cache keys
func modelOf(p Provider, req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	if m, ok := p.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// limiterKey groups requests by API endpoint
func limiterKey(p Provider) string {
	if b, ok := p.(interface{ BaseURL() string }); ok {
		return b.BaseURL()
	}
	return p.Name()
}
