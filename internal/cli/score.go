package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalyze/internal/extract"
	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

var (
	scoreJSON   bool
	scoreEngine string
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <file|->",
	Short: "Score a document's legal risk without LLM analysis",
	Long: `Score runs only the lexical risk engine: the document is split into
clauses and every clause is matched against the risk lexicon. Nothing is
exported, sent to an LLM or stored. Use - to read plain text from stdin.

Example:
  legalyze score contract.pdf
  cat terms.txt | legalyze score - --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the breakdown as JSON")
	scoreCmd.Flags().StringVar(&scoreEngine, "engine", "", "PDF extraction engine: pdftotext or native")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if scoreEngine != "" {
		cfg.PDF.ExtractionEngine = scoreEngine
	}

	scorer, err := loadScorer(cfg)
	if err != nil {
		return err
	}

	text, err := readText(cmd, args[0], cfg.PDF.ExtractionEngine)
	if err != nil {
		return err
	}

	return writeScore(cmd.OutOrStdout(), scorer.CalculateText(text), scoreJSON)
}

// readText extracts the document at source, or reads stdin for "-"
func readText(cmd *cobra.Command, source, engine string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
	}

	extractor, err := extract.New(engine)
	if err != nil {
		return "", err
	}
	doc, err := extractor.Extract(cmd.Context(), source)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", source, err)
	}
	return doc.Text, nil
}

type scoreOutput struct {
	Score   int                `json:"score"`
	Level   string             `json:"level"`
	Records []model.ClauseRisk `json:"records"`
}

// writeScore prints the risk breakdown as text or JSON
func writeScore(w io.Writer, result model.RiskResult, asJSON bool) error {
	level := score.LevelFor(result.TotalScore)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scoreOutput{Score: result.TotalScore, Level: level.String(), Records: result.Records})
	}

	fmt.Fprintf(w, "Risk Score: %d (%s Risk)\n", result.TotalScore, level)
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No risk terms found.")
		return nil
	}

	fmt.Fprintln(w)
	for i, rec := range result.Records {
		fmt.Fprintf(w, "%d. [%d] %s\n", i+1, rec.ClauseScore, strings.Join(strings.Fields(rec.Excerpt), " "))
		for _, m := range rec.Matches {
			fmt.Fprintf(w, "   - %s (%s, %d)\n", m.Term, m.Category, m.Weight)
		}
	}
	return nil
}
