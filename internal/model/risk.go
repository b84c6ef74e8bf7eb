package model

// RiskTier is the lexicon category a term belongs to.
// It is a reporting label only; weight alone drives the score.
type RiskTier string

const (
	TierHigh   RiskTier = "high"
	TierMedium RiskTier = "medium"
	TierLow    RiskTier = "low"
)

// Valid reports whether t is one of the known tiers
func (t RiskTier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	default:
		return false
	}
}

// RiskMatch is one lexicon phrase found inside a clause
type RiskMatch struct {
	Term     string   `json:"term"`     // Matched lexicon phrase
	Category RiskTier `json:"category"` // Tier the phrase came from
	Weight   int      `json:"weight"`   // Contribution to the clause score
}

// ClauseRisk is the risk breakdown for a single clause with at least one match
type ClauseRisk struct {
	Excerpt     string      `json:"excerpt"`      // Clause text, truncated to 100 chars + "..."
	Matches     []RiskMatch `json:"matches"`      // Matches in lexicon order
	ClauseScore int         `json:"clause_score"` // Sum of match weights
}

// RiskResult is the document-level outcome of risk scoring
type RiskResult struct {
	TotalScore int          `json:"total_score"` // Sum of all clause scores
	Records    []ClauseRisk `json:"records"`     // Risk-bearing clauses in document order
}

// MatchCount returns the total number of matches across all records
func (r RiskResult) MatchCount() int {
	n := 0
	for _, rec := range r.Records {
		n += len(rec.Matches)
	}
	return n
}
