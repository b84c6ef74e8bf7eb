package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/legalyze/internal/metrics"
	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/pipeline"
)

// Processor runs the full analysis for one document source
type Processor interface {
	Process(ctx context.Context, source string) (*pipeline.Result, error)
}

// DocumentJob analyses one source
type DocumentJob struct {
	Index     int
	Source    string
	Processor Processor
	onResult  func(*DocumentResult)
}

// Execute runs the job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	metrics.BatchInFlight.Inc()
	defer metrics.BatchInFlight.Dec()

	start := time.Now()
	res, err := j.Processor.Process(ctx, j.Source)

	out := &DocumentResult{
		Index:   j.Index,
		Source:  j.Source,
		Elapsed: time.Since(start),
		Error:   err,
	}
	if err == nil && res != nil {
		out.Report = res.Report
		out.Outputs = res.Outputs
	}

	if j.onResult != nil {
		j.onResult(out)
	}
	return out
}

// DocumentResult is the outcome of one DocumentJob
type DocumentResult struct {
	Index   int
	Source  string
	Report  *model.Report
	Outputs []string
	Elapsed time.Duration
	Error   error
}

// GetError returns the processing error, if any
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses many documents concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int

	mu       sync.Mutex
	onResult func(*DocumentResult)
}

// NewBatchProcessor creates a batch processor running concurrency documents at a time
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// OnResult registers a callback invoked as each document finishes.
// Calls are serialized.
func (b *BatchProcessor) OnResult(fn func(*DocumentResult)) {
	b.onResult = fn
}

func (b *BatchProcessor) notify(r *DocumentResult) {
	if b.onResult == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onResult(r)
}

// ProcessSources analyses sources and returns results in input order
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*DocumentResult {
	if len(sources) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	for i, source := range sources {
		pool.Submit(&DocumentJob{
			Index:     i,
			Source:    source,
			Processor: b.processor,
			onResult:  b.notify,
		})
	}

	results := pool.Wait()

	docResults := make([]*DocumentResult, len(sources))
	for _, result := range results {
		r := result.(*DocumentResult)
		docResults[r.Index] = r
	}

	// jobs never started because the context was cancelled
	for i, r := range docResults {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("not processed")
			}
			docResults[i] = &DocumentResult{Index: i, Source: sources[i], Error: err}
		}
	}

	return docResults
}

// ProcessPath analyses every supported document under a directory, or every
// source listed in a file
func (b *BatchProcessor) ProcessPath(ctx context.Context, path string, supported func(string) bool) ([]*DocumentResult, error) {
	sources, err := CollectSources(path, supported)
	if err != nil {
		return nil, err
	}
	return b.ProcessSources(ctx, sources), nil
}

// Tally counts successes and failures
func Tally(results []*DocumentResult) (successful, failed int) {
	for _, r := range results {
		if r.Error != nil {
			failed++
		} else {
			successful++
		}
	}
	return successful, failed
}

// CollectSources lists the documents to process for path. A directory yields
// its supported files (not recursive, sorted by name); a regular file is read
// as a source list.
func CollectSources(path string, supported func(string) bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		sources, err := ReadSourcesFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sources: %w", err)
		}
		return sources, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if supported != nil && !supported(entry.Name()) {
			continue
		}
		sources = append(sources, filepath.Join(path, entry.Name()))
	}
	return sources, nil
}

// ReadSourcesFromFile reads document paths or URLs, one per line.
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
