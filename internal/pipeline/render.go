package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

// DefaultTopRisks is how many clauses the terminal summary lists
const DefaultTopRisks = 5

// Renderer prints reports to a terminal
type Renderer struct {
	topRisks int
}

// NewRenderer creates a renderer listing up to topRisks clauses
func NewRenderer(topRisks int) *Renderer {
	if topRisks <= 0 {
		topRisks = DefaultTopRisks
	}
	return &Renderer{topRisks: topRisks}
}

// levelColors are ANSI 256 colors for each risk level
var levelColors = map[score.Level]lipgloss.Color{
	score.LevelLow:    lipgloss.Color("42"),
	score.LevelMedium: lipgloss.Color("214"),
	score.LevelHigh:   lipgloss.Color("196"),
}

// RenderSummary prints the risk level, the highest-scoring clauses and any
// files written. Colors are dropped when w is not a terminal.
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report, outputs []string) {
	re := lipgloss.NewRenderer(w)
	bold := re.NewStyle().Bold(true)
	dim := re.NewStyle().Foreground(lipgloss.Color("241"))

	level := score.LevelFor(report.Risk.TotalScore)
	levelStyle := re.NewStyle().Bold(true).Foreground(levelColors[level])

	fmt.Fprintf(w, "%s  %s\n",
		bold.Render(report.Document.Name),
		levelStyle.Render(fmt.Sprintf("Risk: %d (%s)", report.Risk.TotalScore, level)))
	fmt.Fprintf(w, "  %s\n", dim.Render(fmt.Sprintf("%d clauses, %d flagged, %d matches",
		report.Document.Clauses, len(report.Risk.Records), report.Risk.MatchCount())))

	if top := TopRisks(report.Risk.Records, r.topRisks); len(top) > 0 {
		fmt.Fprintf(w, "\n  %s\n", bold.Render("Top risks:"))
		for _, rec := range top {
			recStyle := re.NewStyle().Foreground(levelColors[score.LevelFor(rec.ClauseScore)])
			fmt.Fprintf(w, "    %s %s\n", recStyle.Render(fmt.Sprintf("[%2d]", rec.ClauseScore)), oneLine(rec.Excerpt))
			fmt.Fprintf(w, "         %s\n", dim.Render(matchTerms(rec.Matches)))
		}
	}

	if report.LLM != nil && report.LLM.SummaryProvider != "" {
		fmt.Fprintf(w, "\n  %s\n", dim.Render(fmt.Sprintf("Summary: %s/%s", report.LLM.SummaryProvider, report.LLM.SummaryModel)))
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "  %s %s\n", re.NewStyle().Foreground(lipgloss.Color("214")).Render("!"), warning)
	}

	if len(outputs) > 0 {
		fmt.Fprintln(w)
		for _, path := range outputs {
			fmt.Fprintf(w, "  ✓ Wrote %s\n", path)
		}
	}
}

// TopRisks returns up to n records ordered by clause score, highest first.
// Ties keep document order.
func TopRisks(records []model.ClauseRisk, n int) []model.ClauseRisk {
	top := append([]model.ClauseRisk(nil), records...)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].ClauseScore > top[j].ClauseScore
	})
	if n > 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func matchTerms(matches []model.RiskMatch) string {
	terms := make([]string, len(matches))
	for i, m := range matches {
		terms[i] = m.Term
	}
	return strings.Join(terms, ", ")
}
