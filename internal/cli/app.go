package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalyze/internal/cache"
	"github.com/ppiankov/legalyze/internal/graph"
	"github.com/ppiankov/legalyze/internal/history"
	"github.com/ppiankov/legalyze/internal/llm"
	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/pipeline"
	"github.com/ppiankov/legalyze/internal/score"
	"github.com/ppiankov/legalyze/internal/worker"
)

const (
	// Document downloads are limited per host independently of LLM calls
	fetchRequestsPerSecond = 2
	fetchBurst             = 4
)

// analysisFlags are shared by the commands that run the full pipeline
type analysisFlags struct {
	formats      []string
	outputDir    string
	engine       string
	noLLM        bool
	clauseReview bool
	noHistory    bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.formats, "formats", nil, "export formats: pdf, txt, json, md (default from config)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "output directory for exports (default from config)")
	cmd.Flags().StringVar(&f.engine, "engine", "", "PDF extraction engine: pdftotext or native")
	cmd.Flags().BoolVar(&f.noLLM, "no-llm", false, "skip LLM summary and insights (risk scoring only)")
	cmd.Flags().BoolVar(&f.clauseReview, "clause-review", false, "add an LLM clause-by-clause review")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record the analysis in the local history")
}

// apply overrides configuration values with flags set on the command line
func (f *analysisFlags) apply(cfg *model.Config) error {
	if len(f.formats) > 0 {
		formats := make([]string, 0, len(f.formats))
		for _, format := range f.formats {
			formats = append(formats, strings.ToLower(strings.TrimSpace(format)))
		}
		cfg.PDF.ExportFormats = formats
	}
	if f.outputDir != "" {
		cfg.Export.OutputDir = f.outputDir
	}
	if f.engine != "" {
		cfg.PDF.ExtractionEngine = f.engine
	}
	if f.noLLM {
		cfg.LLM.Enabled = false
	}
	if f.clauseReview {
		cfg.LLM.ClauseReview = true
	}
	if f.noHistory {
		cfg.History.Enabled = false
	}
	return cfg.Validate()
}

// loadScorer builds the scorer over the configured lexicon
func loadScorer(cfg *model.Config) (*score.Scorer, error) {
	if cfg.Risk.LexiconFile == "" {
		return score.NewScorer(nil), nil
	}
	lex, err := score.LoadLexiconFile(cfg.Risk.LexiconFile)
	if err != nil {
		return nil, err
	}
	return score.NewScorer(lex), nil
}

// newAnalyst builds the LLM analyst. A provider that cannot be created (for
// example, a missing API key) is logged and left out; the pipeline then
// records a warning instead of failing.
func newAnalyst(cfg *model.Config, logger *slog.Logger) *llm.Analyst {
	if !cfg.LLM.Enabled {
		return nil
	}

	build := func(op string, pc model.ProviderConfig) llm.Provider {
		p, err := llm.NewProvider(llm.ConfigFromModel(pc, cfg.LLM, cfg.HTTP))
		if err != nil {
			logger.Warn("LLM provider unavailable", "operation", op, "provider", pc.Provider, "error", err)
			return nil
		}
		return p
	}
	summary := build(llm.OpSummary, cfg.LLM.Summary)
	insights := build(llm.OpInsights, cfg.LLM.Insights)
	if summary == nil && insights == nil {
		return nil
	}

	opts := []llm.Option{
		llm.WithLogger(logger),
		llm.WithLimiter(worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, llm.WithCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)))
	}

	return llm.NewAnalyst(summary, insights, llm.AnalystConfig{
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		MaxInputChars: cfg.LLM.MaxInputChars,
		MaxRetries:    cfg.LLM.MaxRetries,
		RetryDelay:    cfg.LLM.RetryDelay,
		CacheTTL:      cfg.Cache.DiskTTL,
	}, opts...)
}

// openStores connects the configured persistence targets. Connection
// failures are logged and the store is skipped.
func openStores(ctx context.Context, cfg *model.Config, logger *slog.Logger) ([]pipeline.Store, func()) {
	var stores []pipeline.Store
	var closers []func()

	if cfg.History.Enabled {
		h, err := history.Open(cfg.History.Dir)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			stores = append(stores, h)
			closers = append(closers, func() { _ = h.Close() })
		}
	}

	if cfg.Neo4j.Enabled {
		g, err := graph.Open(ctx, cfg.Neo4j)
		if err != nil {
			logger.Warn("neo4j disabled", "uri", cfg.Neo4j.URI, "error", err)
		} else {
			stores = append(stores, g)
			closers = append(closers, func() { _ = g.Close(context.Background()) })
		}
	}

	return stores, func() {
		for _, c := range closers {
			c()
		}
	}
}

// buildPipeline wires the scorer, analyst, fetcher and stores from cfg.
// The returned cleanup func releases the stores.
func buildPipeline(ctx context.Context, cfg *model.Config) (*pipeline.Pipeline, func(), error) {
	logger := slog.Default()

	scorer, err := loadScorer(cfg)
	if err != nil {
		return nil, nil, err
	}

	fetcher := pipeline.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy).
		WithLimiter(worker.NewLimiter(fetchRequestsPerSecond, fetchBurst))

	stores, closeStores := openStores(ctx, cfg, logger)

	p, err := pipeline.NewPipeline(cfg, scorer,
		pipeline.WithFetcher(fetcher),
		pipeline.WithAnalyst(newAnalyst(cfg, logger)),
		pipeline.WithStores(stores...),
	)
	if err != nil {
		closeStores()
		return nil, nil, fmt.Errorf("create pipeline: %w", err)
	}
	return p, closeStores, nil
}
