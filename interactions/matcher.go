// Package interactions checks every unordered pair of a medication list against the
// interaction table of a reference store.
package interactions

import (
	"strings"

	"github.com/giygas/rxscan-api/reference"
)

// Match is an interaction record plus the two input names that hit it.
type Match struct {
	reference.Interaction
	InputA string `json:"input_a"`
	InputB string `json:"input_b"`
}

// Report is the outcome of a pairwise check.
type Report struct {
	PairsChecked int     `json:"pairs_checked"`
	Matches      []Match `json:"matches"`
}

// HasMatches reports whether any pair interacts.
func (r Report) HasMatches() bool {
	return len(r.Matches) > 0
}

// Matcher checks name lists against one store snapshot.
type Matcher struct {
	store *reference.Store
}

// NewMatcher creates a matcher. A nil store behaves as an empty one.
func NewMatcher(store *reference.Store) *Matcher {
	if store == nil {
		store = reference.Empty()
	}
	return &Matcher{store: store}
}

// Check enumerates pairs (i, j), i < j, over the trimmed, lower-cased non-empty names in
// input order and reports every pair with a recorded interaction. Names are not
// deduplicated here.
func (m *Matcher) Check(names []string) Report {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if key := strings.ToLower(strings.TrimSpace(n)); key != "" {
			cleaned = append(cleaned, key)
		}
	}

	report := Report{Matches: []Match{}}
	for i := 0; i < len(cleaned); i++ {
		for j := i + 1; j < len(cleaned); j++ {
			report.PairsChecked++
			if rec, ok := m.store.Interaction(cleaned[i], cleaned[j]); ok {
				report.Matches = append(report.Matches, Match{
					Interaction: rec,
					InputA:      cleaned[i],
					InputB:      cleaned[j],
				})
			}
		}
	}
	return report
}
