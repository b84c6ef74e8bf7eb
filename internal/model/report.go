package model

import (
	"strings"
	"time"
)

// Report is the complete analysis of one legal document
type Report struct {
	ID       string       `json:"id"`       // Analysis run ID (uuid)
	Document DocumentMeta `json:"document"` // Source document metadata
	Risk     RiskResult   `json:"risk"`     // Lexical risk breakdown (level is derived, never stored)

	Summary      string `json:"summary,omitempty"`       // LLM summary
	Insights     string `json:"insights,omitempty"`      // LLM key insights
	ClauseReview string `json:"clause_review,omitempty"` // Optional LLM clause-by-clause review

	LLM      *LLMMeta `json:"llm,omitempty"`      // Providers used (nil when LLM disabled)
	Warnings []string `json:"warnings,omitempty"` // Non-fatal problems during analysis
}

// DocumentMeta describes the analysed document
type DocumentMeta struct {
	Name       string    `json:"name"`        // File name without extension
	Source     string    `json:"source"`      // Path or URL the text came from
	Format     string    `json:"format"`      // pdf, txt, html
	Engine     string    `json:"engine"`      // Extraction engine used
	Characters int       `json:"characters"`  // Extracted text length
	Clauses    int       `json:"clauses"`     // Number of segmented clauses
	AnalyzedAt time.Time `json:"analyzed_at"` // When the analysis ran
}

// LLMMeta records which models produced the narrative sections
type LLMMeta struct {
	SummaryProvider  string `json:"summary_provider,omitempty"`
	SummaryModel     string `json:"summary_model,omitempty"`
	InsightsProvider string `json:"insights_provider,omitempty"`
	InsightsModel    string `json:"insights_model,omitempty"`
	CacheHits        int    `json:"cache_hits"`
	TokensUsed       int    `json:"tokens_used"`
}

// Content returns the full narrative analysis as markdown
func (r *Report) Content() string {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\n# Key Insights\n\n")
	b.WriteString(r.Insights)
	if r.ClauseReview != "" {
		b.WriteString("\n\n# Clause Review\n\n")
		b.WriteString(r.ClauseReview)
	}
	return b.String()
}

// Warn appends a non-fatal warning to the report
func (r *Report) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// DocumentName derives a document name from a path or URL
func DocumentName(source string) string {
	name := source
	if i := strings.IndexAny(name, "?#"); i >= 0 && strings.Contains(source, "://") {
		name = name[:i]
	}
	name = strings.TrimRight(name, "/\\")
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "document"
	}
	return name
}
