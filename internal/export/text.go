package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ppiankov/legalyze/internal/model"
)

// TextExporter writes a plain-text report
type TextExporter struct{}

// Format returns "txt"
func (e *TextExporter) Format() string { return FormatText }

// Write renders the header block, the narrative content and the risk breakdown
func (e *TextExporter) Write(w io.Writer, r *model.Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "LEGAL DOCUMENT ANALYSIS\n")
	fmt.Fprintf(bw, "======================\n\n")
	fmt.Fprintf(bw, "Document: %s\n", r.Document.Name)
	fmt.Fprintf(bw, "Analysis Date: %s\n", r.Document.AnalyzedAt.Format(DateLayout))
	fmt.Fprintf(bw, "Risk Score: %s\n\n", riskLine(r))

	fmt.Fprint(bw, r.Content())

	fmt.Fprintf(bw, "\n\nRisk Breakdown\n--------------\n")
	if len(r.Risk.Records) == 0 {
		fmt.Fprintf(bw, "No risk terms found.\n")
	}
	for i, rec := range r.Risk.Records {
		fmt.Fprintf(bw, "%d. [%d] %s\n", i+1, rec.ClauseScore, rec.Excerpt)
		fmt.Fprintf(bw, "   %s\n", matchList(rec.Matches))
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(bw, "\nWarnings\n--------\n")
		for _, warning := range r.Warnings {
			fmt.Fprintf(bw, "- %s\n", warning)
		}
	}

	return bw.Flush()
}
