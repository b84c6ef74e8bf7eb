package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

// JSONExporter writes the structured report
type JSONExporter struct{}

type jsonReport struct {
	Document jsonDocument   `json:"document"`
	Risk     jsonRisk       `json:"risk"`
	Content  string         `json:"content"`
	LLM      *model.LLMMeta `json:"llm,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

type jsonDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	Format       string    `json:"format,omitempty"`
	Engine       string    `json:"engine,omitempty"`
	Characters   int       `json:"characters"`
	Clauses      int       `json:"clauses"`
	AnalysisDate time.Time `json:"analysis_date"`
}

type jsonRisk struct {
	Score   int                `json:"score"`
	Level   string             `json:"level"`
	Details []model.ClauseRisk `json:"details"`
}

// Format returns "json"
func (e *JSONExporter) Format() string { return FormatJSON }

// Write encodes the report as indented JSON
func (e *JSONExporter) Write(w io.Writer, r *model.Report) error {
	details := r.Risk.Records
	if details == nil {
		details = []model.ClauseRisk{}
	}

	out := jsonReport{
		Document: jsonDocument{
			ID:           r.ID,
			Name:         r.Document.Name,
			Source:       r.Document.Source,
			Format:       r.Document.Format,
			Engine:       r.Document.Engine,
			Characters:   r.Document.Characters,
			Clauses:      r.Document.Clauses,
			AnalysisDate: r.Document.AnalyzedAt,
		},
		Risk: jsonRisk{
			Score:   r.Risk.TotalScore,
			Level:   score.LevelFor(r.Risk.TotalScore).String(),
			Details: details,
		},
		Content:  r.Content(),
		LLM:      r.LLM,
		Warnings: r.Warnings,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
