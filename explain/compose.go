// Package explain renders resolved medications and their interactions as Markdown.
// Output is built only from reference data; nothing is generated.
package explain

import (
	"strings"

	"github.com/giygas/rxscan-api/interactions"
	"github.com/giygas/rxscan-api/reference"
)

// Fixed lines of the composed explanation.
const (
	NoDetailsLine       = "No reference details available."
	InteractionsHeading = "## Drug Interactions Found"
	NoInteractionsLine  = "## No known dangerous interactions found in database."
)

// InfoLookup supplies reference details for a drug name. *reference.Store implements it.
type InfoLookup interface {
	Info(name string) (reference.DrugInfo, bool)
}

// Compose renders one section per name followed by the interaction listing.
// A nil lookup behaves as one that knows nothing.
func Compose(names []string, matches []interactions.Match, lookup InfoLookup) string {
	var lines []string

	for _, name := range names {
		lines = append(lines, "## "+name)

		info, ok := lookupInfo(lookup, name)
		if !ok || info.IsZero() {
			lines = append(lines, NoDetailsLine, "")
			continue
		}

		lines = appendField(lines, "Purpose", info.Purpose)
		lines = appendField(lines, "Indications", info.Indications)
		lines = appendField(lines, "Dosage", info.Dosage)
		lines = appendField(lines, "Warnings", info.Warnings)
		lines = append(lines, "")
	}

	if len(matches) == 0 {
		lines = append(lines, NoInteractionsLine)
		return strings.Join(lines, "\n")
	}

	lines = append(lines, InteractionsHeading)
	for _, m := range matches {
		lines = append(lines, bullet(m))
		if m.Note != "" {
			lines = append(lines, "  "+m.Note)
		}
	}
	return strings.Join(lines, "\n")
}

func lookupInfo(lookup InfoLookup, name string) (reference.DrugInfo, bool) {
	if lookup == nil {
		return reference.DrugInfo{}, false
	}
	return lookup.Info(name)
}

func appendField(lines []string, label, value string) []string {
	if value == "" {
		return lines
	}
	return append(lines, "**"+label+":** "+value)
}

func bullet(m interactions.Match) string {
	a, b := m.DrugA, m.DrugB
	if a == "" {
		a = m.InputA
	}
	if b == "" {
		b = m.InputB
	}
	line := "- **" + a + " + " + b + "**"
	if m.Severity != "" {
		line += ": " + m.Severity
	}
	return line
}
