package llm

import (
	"fmt"
	"strings"
)

// TruncationMarker is appended to prompts cut at the input limit
const TruncationMarker = "\n[Document truncated due to length]"

// DefaultMaxInputChars bounds the user prompt length
const DefaultMaxInputChars = 24000

const summarySystemPrompt = `You are a legal document analysis assistant. Analyze the provided document and create a comprehensive summary that includes:
1. Key contract terms and obligations
2. Important deadlines and dates
3. Potential legal risks or ambiguities
4. Rights and responsibilities of each party
5. Termination conditions
6. Jurisdiction Handling: Recognize and interpret jurisdiction-specific legal terminology.
Your summary should be detailed yet concise, focusing on legally significant elements.`

const clauseReviewSystemPrompt = `You are a legal expert analyzing contract clauses. For each clause:
1. Identify the type of clause (e.g., indemnification, termination, confidentiality)
2. Rate the risk level (Low, Medium, High)
3. Explain potential issues or concerns
4. Suggest improvements if applicable`

// Fixed sampling temperatures per operation
const (
	summaryTemperature      float32 = 0.3
	clauseReviewTemperature float32 = 0.2
)

// SummaryPrompt builds the user prompt for document summarization
func SummaryPrompt(text string) string {
	return "Please summarize the following legal document:\n\n" + text
}

// InsightsPrompt builds the user prompt for insight extraction
func InsightsPrompt(text string) string {
	return "Extract insights from: " + text
}

// ClauseReviewPrompt numbers clauses from 1 and joins them with blank lines
func ClauseReviewPrompt(clauses []string) string {
	formatted := make([]string, len(clauses))
	for i, clause := range clauses {
		formatted[i] = fmt.Sprintf("Clause %d: %s", i+1, clause)
	}
	return "Please analyze these contract clauses:\n\n" + strings.Join(formatted, "\n\n")
}

// Truncate cuts prompt to max characters and appends TruncationMarker.
// The second result reports whether anything was cut.
func Truncate(prompt string, max int) (string, bool) {
	if max <= 0 {
		return prompt, false
	}
	runes := []rune(prompt)
	if len(runes) <= max {
		return prompt, false
	}
	return string(runes[:max]) + TruncationMarker, true
}
