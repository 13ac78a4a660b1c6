// Package reference holds the static drug vocabulary, the interaction table and the
// per-drug reference details the rest of the service resolves against.
package reference

import (
	"slices"
	"strings"
)

// Drug is a canonical drug name together with every lower-cased key that maps to it.
type Drug struct {
	Name      string   `json:"name"`
	AliasKeys []string `json:"alias_keys"`
}

// Interaction is a recorded interaction between an unordered pair of drugs.
type Interaction struct {
	DrugA    string `json:"drug_a"`
	DrugB    string `json:"drug_b"`
	Severity string `json:"severity"`
	Note     string `json:"note"`
}

// Key returns the order-independent pair key of the interaction.
func (i Interaction) Key() string {
	return PairKey(i.DrugA, i.DrugB)
}

// DrugInfo carries the structured reference fields shown for a drug.
type DrugInfo struct {
	Name        string `json:"name"`
	Purpose     string `json:"purpose,omitempty"`
	Indications string `json:"indications,omitempty"`
	Dosage      string `json:"dosage,omitempty"`
	Warnings    string `json:"warnings,omitempty"`
}

// IsZero reports whether none of the displayable fields are set.
func (d DrugInfo) IsZero() bool {
	return d.Purpose == "" && d.Indications == "" && d.Dosage == "" && d.Warnings == ""
}

// normalizeKey is the single lookup-key form used across the store.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PairKey builds the lookup key for an unordered pair: both names trimmed,
// lower-cased and sorted, so PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	pair := []string{normalizeKey(a), normalizeKey(b)}
	slices.Sort(pair)
	return pair[0] + "\x00" + pair[1]
}
