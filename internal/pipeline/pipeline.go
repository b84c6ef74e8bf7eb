// Package pipeline runs one legal document through extraction, risk scoring,
// language-model analysis, export and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/legalyze/internal/export"
	"github.com/ppiankov/legalyze/internal/extract"
	"github.com/ppiankov/legalyze/internal/llm"
	"github.com/ppiankov/legalyze/internal/logging"
	"github.com/ppiankov/legalyze/internal/metrics"
	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

// Store persists a finished report. Failures are reported as warnings.
type Store interface {
	Name() string
	Save(ctx context.Context, r *model.Report) error
}

// Pipeline orchestrates the analysis of one document
type Pipeline struct {
	extractor    *extract.Extractor
	fetcher      *Fetcher
	scorer       *score.Scorer
	analyst      *llm.Analyst // nil when LLM analysis is disabled
	stores       []Store
	formats      []string
	outputDir    string
	clauseReview bool

	now   func() time.Time
	newID func() string
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithAnalyst enables summary and insight generation
func WithAnalyst(a *llm.Analyst) Option {
	return func(p *Pipeline) { p.analyst = a }
}

// WithStores adds persistence targets (graph, history)
func WithStores(stores ...Store) Option {
	return func(p *Pipeline) { p.stores = append(p.stores, stores...) }
}

// WithFetcher replaces the URL fetcher
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithExtractor replaces the text extractor
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithFormats overrides the configured export formats
func WithFormats(formats ...string) Option {
	return func(p *Pipeline) {
		if len(formats) > 0 {
			p.formats = formats
		}
	}
}

// WithOutputDir overrides the configured export directory
func WithOutputDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.outputDir = dir
		}
	}
}

// NewPipeline creates a pipeline from configuration
func NewPipeline(cfg *model.Config, scorer *score.Scorer, opts ...Option) (*Pipeline, error) {
	extractor, err := extract.New(cfg.PDF.ExtractionEngine)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		extractor:    extractor,
		fetcher:      NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		scorer:       scorer,
		formats:      cfg.PDF.ExportFormats,
		outputDir:    cfg.Export.OutputDir,
		clauseReview: cfg.LLM.ClauseReview,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result is a processed document and the files written for it
type Result struct {
	Report  *model.Report
	Outputs []string
}

// Process runs the full analysis for source: analyse, export, persist
func (p *Pipeline) Process(ctx context.Context, source string) (*Result, error) {
	start := time.Now()

	report, err := p.Analyze(ctx, source)
	if err != nil {
		metrics.ObserveDocument(metrics.StatusError, "", 0, time.Since(start))
		return nil, err
	}
	ctx = logging.WithAnalysisID(ctx, report.ID)
	logger := logging.L(ctx)

	outputs, err := p.Export(report)
	if err != nil {
		logger.Error("export failed", "document", report.Document.Name, "error", err)
		report.Warn(fmt.Sprintf("export: %v", err))
	}
	for _, path := range outputs {
		logger.Info("exported analysis", "path", path)
	}

	p.Persist(ctx, report)

	level := score.LevelFor(report.Risk.TotalScore)
	metrics.ObserveDocument(metrics.StatusOK, level.String(), report.Risk.TotalScore, time.Since(start))
	logger.Info("analysis completed", "document", report.Document.Name, "risk_score", report.Risk.TotalScore,
		"risk_level", level, "elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{Report: report, Outputs: outputs}, nil
}

// Analyze extracts, scores and (when enabled) summarises one document
func (p *Pipeline) Analyze(ctx context.Context, source string) (*model.Report, error) {
	id := p.newID()
	ctx = logging.WithAnalysisID(ctx, id)
	logger := logging.L(ctx)

	logger.Info("extracting text", "source", source)
	doc, err := p.load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", source, err)
	}

	clauses := score.SplitClauses(doc.Text)
	risk := p.scorer.Calculate(clauses)
	level := score.LevelFor(risk.TotalScore)
	logger.Info("risk assessment", "risk_score", risk.TotalScore, "risk_level", level,
		"clauses", len(clauses), "flagged", len(risk.Records))

	report := &model.Report{
		ID: id,
		Document: model.DocumentMeta{
			Name:       model.DocumentName(source),
			Source:     source,
			Format:     doc.Format,
			Engine:     doc.Engine,
			Characters: len([]rune(doc.Text)),
			Clauses:    len(clauses),
			AnalyzedAt: p.now(),
		},
		Risk: risk,
	}

	p.narrate(ctx, report, doc.Text, clauses)
	return report, nil
}

// load reads a local file or downloads a URL and extracts its text
func (p *Pipeline) load(ctx context.Context, source string) (*extract.Document, error) {
	if !IsURL(source) {
		return p.extractor.Extract(ctx, source)
	}

	fetched, err := p.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return nil, err
	}

	format := extract.FormatForContentType(fetched.ContentType)
	if format == "" {
		if u, err := url.Parse(fetched.FinalURL); err == nil {
			format = extract.FormatOf(u.Path)
		}
	}
	if format == "" {
		return nil, fmt.Errorf("%w: content type %q", extract.ErrUnsupportedFormat, fetched.ContentType)
	}
	return p.extractor.ExtractBytes(ctx, fetched.Body, format)
}

// narrate fills the summary, insights and optional clause review. The
// requests run concurrently and never affect the risk score; failures become
// report warnings.
func (p *Pipeline) narrate(ctx context.Context, report *model.Report, text string, clauses []string) {
	if !p.analyst.IsEnabled() {
		report.Warn("LLM analysis disabled")
		return
	}

	meta := &model.LLMMeta{}
	var mu sync.Mutex
	record := func(res *llm.Result) {
		mu.Lock()
		defer mu.Unlock()
		meta.TokensUsed += res.TokensUsed
		if res.Cached {
			meta.CacheHits++
		}
	}
	warn := func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		logging.L(ctx).Warn("LLM analysis failed", "operation", op, "error", err)
		report.Warn(fmt.Sprintf("%s unavailable: %v", op, err))
	}

	var g errgroup.Group

	g.Go(func() error {
		res, err := p.analyst.Summarize(ctx, text)
		if err != nil {
			warn(llm.OpSummary, err)
			return nil
		}
		record(res)
		report.Summary = res.Text
		meta.SummaryProvider, meta.SummaryModel = res.Provider, res.Model
		return nil
	})

	g.Go(func() error {
		res, err := p.analyst.ExtractInsights(ctx, text)
		if err != nil {
			warn(llm.OpInsights, err)
			return nil
		}
		record(res)
		report.Insights = res.Text
		meta.InsightsProvider, meta.InsightsModel = res.Provider, res.Model
		return nil
	})

	if p.clauseReview && len(clauses) > 0 {
		g.Go(func() error {
			res, err := p.analyst.ReviewClauses(ctx, clauses)
			if err != nil {
				warn(llm.OpClauseReview, err)
				return nil
			}
			record(res)
			report.ClauseReview = res.Text
			return nil
		})
	}

	_ = g.Wait()
	report.LLM = meta
}

// Export writes the report in every configured format
func (p *Pipeline) Export(report *model.Report) ([]string, error) {
	if len(p.formats) == 0 {
		return nil, nil
	}
	return export.ExportAll(report, p.formats, p.outputDir)
}

// Persist saves the report to every store. Store failures are logged and
// recorded as warnings; the analysis itself still succeeds.
func (p *Pipeline) Persist(ctx context.Context, report *model.Report) {
	logger := logging.L(ctx)
	for _, store := range p.stores {
		if err := store.Save(ctx, report); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("persist canceled", "store", store.Name())
			} else {
				logger.Error("persist failed", "store", store.Name(), "error", err)
			}
			report.Warn(fmt.Sprintf("%s storage failed: %v", store.Name(), err))
			continue
		}
		logger.Info("stored analysis", "store", store.Name(), "document", report.Document.Name)
	}
}
