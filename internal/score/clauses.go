package score

import "strings"

// clauseSeparator is the blank-line boundary between paragraphs
const clauseSeparator = "\n\n"

// SplitClauses splits extracted document text into candidate clauses.
// Segments that are blank after trimming are dropped; the remaining
// segments keep their original, untrimmed text and document order.
func SplitClauses(text string) []string {
	clauses := []string{}
	for _, segment := range strings.Split(text, clauseSeparator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		clauses = append(clauses, segment)
	}
	return clauses
}
