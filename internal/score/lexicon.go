package score

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/legalyze/internal/model"
	"gopkg.in/yaml.v3"
)

// Term is a lexicon phrase with its weight
type Term struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Weight int    `yaml:"weight" json:"weight"`
}

// TierTerms groups the terms of one tier in table order
type TierTerms struct {
	Tier  model.RiskTier `yaml:"tier" json:"tier"`
	Terms []Term         `yaml:"terms" json:"terms"`
}

// Lexicon is an immutable table of risk terms grouped by tier.
// It is safe for concurrent use once constructed.
type Lexicon struct {
	tiers []TierTerms
}

// NewLexicon validates the given tiers and builds a lexicon.
// Phrases are lowercased; a phrase repeated inside one tier is rejected.
func NewLexicon(tiers ...TierTerms) (*Lexicon, error) {
	lex := &Lexicon{tiers: make([]TierTerms, 0, len(tiers))}

	for _, tt := range tiers {
		if !tt.Tier.Valid() {
			return nil, fmt.Errorf("unknown risk tier %q (expected high, medium or low)", tt.Tier)
		}

		seen := make(map[string]bool, len(tt.Terms))
		terms := make([]Term, 0, len(tt.Terms))
		for _, term := range tt.Terms {
			phrase := strings.ToLower(strings.TrimSpace(term.Phrase))
			if phrase == "" {
				return nil, fmt.Errorf("tier %s: empty phrase", tt.Tier)
			}
			if term.Weight <= 0 {
				return nil, fmt.Errorf("tier %s: phrase %q: weight must be positive, got %d", tt.Tier, phrase, term.Weight)
			}
			if seen[phrase] {
				return nil, fmt.Errorf("tier %s: duplicate phrase %q", tt.Tier, phrase)
			}
			seen[phrase] = true
			terms = append(terms, Term{Phrase: phrase, Weight: term.Weight})
		}

		lex.tiers = append(lex.tiers, TierTerms{Tier: tt.Tier, Terms: terms})
	}

	return lex, nil
}

// DefaultLexicon returns the built-in legal risk table
func DefaultLexicon() *Lexicon {
	lex, err := NewLexicon(
		TierTerms{Tier: model.TierHigh, Terms: []Term{
			{"penalty", 10}, {"breach", 10}, {"termination", 8}, {"indemnity", 9},
			{"liability", 8}, {"lawsuit", 10}, {"dispute", 7}, {"litigation", 9},
			{"damages", 8}, {"waive", 7},
		}},
		TierTerms{Tier: model.TierMedium, Terms: []Term{
			{"confidentiality", 5}, {"late payment", 5}, {"disclosure", 4},
			{"approval", 3}, {"extension", 3}, {"amendment", 4}, {"compliance", 5},
			{"third party", 4}, {"representation", 3},
		}},
		TierTerms{Tier: model.TierLow, Terms: []Term{
			{"notice", 2}, {"delivery", 1}, {"payment terms", 2}, {"schedule", 1},
		}},
	)
	if err != nil {
		panic(fmt.Sprintf("default lexicon is invalid: %v", err))
	}
	return lex
}

// Tiers returns a copy of the lexicon tiers in table order
func (l *Lexicon) Tiers() []TierTerms {
	out := make([]TierTerms, len(l.tiers))
	for i, tt := range l.tiers {
		out[i] = TierTerms{Tier: tt.Tier, Terms: append([]Term(nil), tt.Terms...)}
	}
	return out
}

// Len returns the number of terms across all tiers
func (l *Lexicon) Len() int {
	n := 0
	for _, tt := range l.tiers {
		n += len(tt.Terms)
	}
	return n
}

// LoadLexiconFile reads a YAML lexicon from disk
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer func() { _ = f.Close() }()

	lex, err := LoadLexicon(f)
	if err != nil {
		return nil, fmt.Errorf("load lexicon %s: %w", path, err)
	}
	return lex, nil
}

// LoadLexicon parses a YAML lexicon of the form
//
//	high:
//	  penalty: 10
//	medium:
//	  disclosure: 4
//
// Tier and phrase order follow the document.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty lexicon")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: lexicon must be a mapping of tiers", root.Line)
	}

	var tiers []TierTerms
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: tier %s must map phrases to weights", val.Line, key.Value)
		}

		tt := TierTerms{Tier: model.RiskTier(strings.ToLower(key.Value))}
		for j := 0; j+1 < len(val.Content); j += 2 {
			phrase, weight := val.Content[j], val.Content[j+1]
			w, err := strconv.Atoi(weight.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: weight for %q is not an integer: %s", weight.Line, phrase.Value, weight.Value)
			}
			tt.Terms = append(tt.Terms, Term{Phrase: phrase.Value, Weight: w})
		}
		tiers = append(tiers, tt)
	}

	return NewLexicon(tiers...)
}

// MarshalYAML writes the lexicon in the same shape LoadLexicon reads
func (l *Lexicon) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, tt := range l.tiers {
		terms := &yaml.Node{Kind: yaml.MappingNode}
		for _, term := range tt.Terms {
			terms.Content = append(terms.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: term.Phrase},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(term.Weight)},
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(tt.Tier)},
			terms,
		)
	}
	return root, nil
}
