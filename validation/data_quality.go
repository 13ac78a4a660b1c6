package validation

import (
	"github.com/giygas/rxscan-api/reference"
)

// maxListed caps the example names kept in a report
const maxListed = 10

// DataQualityReport summarizes cross-table inconsistencies in a reference store
type DataQualityReport struct {
	InteractionsWithUnknownDrugs int      `json:"interactions_with_unknown_drugs"`
	UnknownInteractionDrugs      []string `json:"unknown_interaction_drugs"`
	OrphanInfoRows               int      `json:"orphan_info_rows"`
	OrphanInfoNames              []string `json:"orphan_info_names"`
	DrugsWithoutInfo             int      `json:"drugs_without_info"`
}

// ReportDataQuality checks that interaction endpoints and drug info rows refer to known
// drugs. Only the first ten offending names of each kind are listed.
func ReportDataQuality(store *reference.Store) *DataQualityReport {
	report := &DataQualityReport{
		UnknownInteractionDrugs: []string{},
		OrphanInfoNames:         []string{},
	}

	listed := make(map[string]bool)
	for _, rec := range store.Interactions() {
		unknown := false
		for _, name := range []string{rec.DrugA, rec.DrugB} {
			if _, ok := store.ResolveExact(name); ok {
				continue
			}
			unknown = true
			if !listed[name] && len(report.UnknownInteractionDrugs) < maxListed {
				listed[name] = true
				report.UnknownInteractionDrugs = append(report.UnknownInteractionDrugs, name)
			}
		}
		if unknown {
			report.InteractionsWithUnknownDrugs++
		}
	}

	for _, row := range store.InfoRows() {
		if _, ok := store.ResolveExact(row.Name); ok {
			continue
		}
		report.OrphanInfoRows++
		if len(report.OrphanInfoNames) < maxListed {
			report.OrphanInfoNames = append(report.OrphanInfoNames, row.Name)
		}
	}

	for _, name := range store.Names() {
		if _, ok := store.Info(name); !ok {
			report.DrugsWithoutInfo++
		}
	}

	return report
}
