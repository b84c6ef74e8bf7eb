package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalyze/internal/pipeline"
)

var (
	analyzeFlags   analysisFlags
	analyzeTimeout time.Duration
	topRisks       int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Analyze a single legal document",
	Long: `Analyze extracts the text of one document (PDF, text or HTML, local or
by URL) and:
- Splits it into clauses and scores each against the risk lexicon
- Asks the configured LLMs for a summary and key insights
- Exports the analysis (pdf, txt, json, md)
- Records it in the local history and, when enabled, in Neo4j

Example:
  legalyze analyze contract.pdf
  legalyze analyze lease.pdf --formats pdf,json --output-dir ./reports
  legalyze analyze https://example.com/terms.html --no-llm`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().IntVar(&topRisks, "top", pipeline.DefaultTopRisks, "number of highest-risk clauses to print")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := analyzeFlags.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n\n", source)
	}

	result, err := p.Process(ctx, source)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	pipeline.NewRenderer(topRisks).RenderSummary(cmd.OutOrStdout(), result.Report, result.Outputs)
	return nil
}
