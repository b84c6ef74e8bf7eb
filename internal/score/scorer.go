package score

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/legalyze/internal/model"
)

const (
	// MinClauseLength is the shortest clause (in characters) that gets scored
	MinClauseLength = 5

	// ExcerptLength is the number of characters kept in a record excerpt
	ExcerptLength = 100

	excerptMarker = "..."
)

// Scorer calculates document risk from clauses using a lexicon.
// It holds no mutable state and may be shared across goroutines.
type Scorer struct {
	lexicon *Lexicon
}

// NewScorer creates a scorer over the given lexicon (nil uses DefaultLexicon)
func NewScorer(lexicon *Lexicon) *Scorer {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Scorer{lexicon: lexicon}
}

// Lexicon returns the lexicon the scorer matches against
func (s *Scorer) Lexicon() *Lexicon {
	return s.lexicon
}

// Calculate scores clauses in order and returns the document result.
// Short clauses and clauses without matches are omitted; it never fails.
func (s *Scorer) Calculate(clauses []string) model.RiskResult {
	result := model.RiskResult{Records: []model.ClauseRisk{}}

	for _, clause := range clauses {
		record, ok := s.scoreClause(clause)
		if !ok {
			continue
		}
		result.TotalScore += record.ClauseScore
		result.Records = append(result.Records, record)
	}

	return result
}

// CalculateText segments raw document text and scores the clauses
func (s *Scorer) CalculateText(text string) model.RiskResult {
	return s.Calculate(SplitClauses(text))
}

// scoreClause matches every lexicon phrase against one clause.
// Matching is plain substring containment on the lowercased text, so
// "notice" also matches inside "noticeable".
func (s *Scorer) scoreClause(clause string) (model.ClauseRisk, bool) {
	if utf8.RuneCountInString(clause) < MinClauseLength {
		return model.ClauseRisk{}, false
	}

	lower := strings.ToLower(clause)

	var matches []model.RiskMatch
	clauseScore := 0
	for _, tt := range s.lexicon.tiers {
		for _, term := range tt.Terms {
			if !strings.Contains(lower, term.Phrase) {
				continue
			}
			clauseScore += term.Weight
			matches = append(matches, model.RiskMatch{
				Term:     term.Phrase,
				Category: tt.Tier,
				Weight:   term.Weight,
			})
		}
	}

	if clauseScore == 0 {
		return model.ClauseRisk{}, false
	}

	return model.ClauseRisk{
		Excerpt:     Excerpt(clause),
		Matches:     matches,
		ClauseScore: clauseScore,
	}, true
}

// Excerpt truncates a clause to ExcerptLength characters, appending "..."
// when anything was cut.
func Excerpt(clause string) string {
	if utf8.RuneCountInString(clause) <= ExcerptLength {
		return clause
	}
	runes := []rune(clause)
	return string(runes[:ExcerptLength]) + excerptMarker
}
