package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalyze/internal/metrics"
	"github.com/ppiankov/legalyze/internal/score"
	"github.com/ppiankov/legalyze/internal/worker"
)

var (
	batchFlags   analysisFlags
	concurrency  int
	batchTimeout time.Duration
	metricsAddr  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|file>",
	Short: "Analyze many documents in parallel",
	Long: `Batch analyzes every supported document (pdf, txt, md, html) in a
directory, or every path and URL listed in a file (one per line, # comments
allowed). Documents are processed concurrently; each gets its own exports.

Example:
  legalyze batch ./contracts
  legalyze batch sources.txt --concurrency 8 --output-dir ./reports
  legalyze batch ./contracts --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFlags.register(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of documents processed at once (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := setup()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := batchFlags.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	sources, err := worker.CollectSources(path, analyzable)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no supported documents found in %s", path)
	}

	startMetrics(ctx, cfg.Metrics.Addr)

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(os.Stderr, "Processing %d documents with %d workers...\n\n", len(sources), cfg.Concurrency.Workers)

	out := cmd.OutOrStdout()
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	processor.OnResult(func(r *worker.DocumentResult) {
		if r.Error != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", r.Source, r.Error)
			return
		}
		fmt.Fprintf(out, "✓ %s  risk %d (%s)  %s\n", r.Report.Document.Name, r.Report.Risk.TotalScore,
			score.LevelFor(r.Report.Risk.TotalScore), r.Elapsed.Round(time.Millisecond))
	})

	results := processor.ProcessSources(ctx, sources)
	successful, failed := worker.Tally(results)

	fmt.Fprintf(out, "\nBatch processing complete: %d successful, %d failed\n", successful, failed)
	return nil
}

// startMetrics serves /metrics in the background until ctx is done
func startMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, slog.Default()); err != nil {
			slog.Error("metrics endpoint failed", "addr", addr, "error", err)
		}
	}()
}
