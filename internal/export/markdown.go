package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/legalyze/internal/model"
)

// MarkdownExporter writes a markdown report
type MarkdownExporter struct{}

// Format returns "md"
func (e *MarkdownExporter) Format() string { return FormatMarkdown }

// Write renders a metadata table, the narrative content and a breakdown table
func (e *MarkdownExporter) Write(w io.Writer, r *model.Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Legal Document Analysis\n\n")
	fmt.Fprintf(bw, "| | |\n|---|---|\n")
	fmt.Fprintf(bw, "| **Document** | %s |\n", cell(r.Document.Name))
	fmt.Fprintf(bw, "| **Analysis Date** | %s |\n", r.Document.AnalyzedAt.Format(DateLayout))
	fmt.Fprintf(bw, "| **Risk Score** | %s |\n\n", riskLine(r))

	fmt.Fprint(bw, strings.TrimSpace(r.Content()))

	fmt.Fprintf(bw, "\n\n# Risk Breakdown\n\n")
	if len(r.Risk.Records) == 0 {
		fmt.Fprintf(bw, "No risk terms found.\n")
	} else {
		fmt.Fprintf(bw, "| # | Clause | Score | Matches |\n|---|---|---|---|\n")
		for i, rec := range r.Risk.Records {
			fmt.Fprintf(bw, "| %d | %s | %d | %s |\n", i+1, cell(rec.Excerpt), rec.ClauseScore, cell(matchList(rec.Matches)))
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(bw, "\n## Warnings\n\n")
		for _, warning := range r.Warnings {
			fmt.Fprintf(bw, "- %s\n", warning)
		}
	}

	return bw.Flush()
}

// cell makes text safe inside a markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
