package reference

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/rxscan-api/logging"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Accepted header spellings, in priority order.
var (
	nameColumns        = []string{"name", "drug", "generic_name"}
	aliasColumns       = []string{"aliases", "alias", "brand_names"}
	drugAColumns       = []string{"drug_a", "drug1", "drug_1"}
	drugBColumns       = []string{"drug_b", "drug2", "drug_2"}
	severityColumns    = []string{"severity"}
	noteColumns        = []string{"note", "description", "interaction"}
	purposeColumns     = []string{"purpose"}
	indicationsColumns = []string{"indications", "indications_and_usage"}
	dosageColumns      = []string{"dosage", "dosage_and_administration"}
	warningsColumns    = []string{"warnings"}
)

// aliasSeparator splits alias cells on ; , / | or on runs of two or more spaces.
var aliasSeparator = regexp.MustCompile(`[;,/|]|\s{2,}`)

// table is a parsed CSV file with a case-insensitive header index.
type table struct {
	columns map[string]int
	rows    [][]string
}

// column returns the index of the first header found among names, or -1.
func (t *table) column(names []string) int {
	for _, n := range names {
		if idx, ok := t.columns[n]; ok {
			return idx
		}
	}
	return -1
}

// cell returns a trimmed, NFC-normalized field, or "" when the row is short or idx is -1.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(row[idx]))
}

// readTable parses CSV content. Files that are not valid UTF-8 are decoded as ISO-8859-1,
// which is what spreadsheet exports of the reference lists commonly use.
func readTable(r io.Reader) (*table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}

	var src io.Reader
	if utf8.Valid(raw) {
		src = bytes.NewReader(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	} else {
		src = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw))
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reference CSV has no header")
	}

	t := &table{columns: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	return t, nil
}

// splitAliases turns an alias cell into lower-cased alias keys.
func splitAliases(cellValue string) []string {
	if cellValue == "" {
		return nil
	}
	var keys []string
	for _, fragment := range aliasSeparator.Split(cellValue, -1) {
		if key := normalizeKey(fragment); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// LoadDrugs parses the drug vocabulary. It never fails: unreadable content or a
// missing name column yields an empty vocabulary.
func LoadDrugs(r io.Reader) []Drug {
	t, err := readTable(r)
	if err != nil {
		logging.Warn("Drug vocabulary unusable, continuing without it", "error", err)
		return nil
	}

	nameIdx := t.column(nameColumns)
	if nameIdx < 0 {
		logging.Warn("Drug vocabulary has no name column, continuing without it", "accepted", nameColumns)
		return nil
	}
	aliasIdx := t.column(aliasColumns)

	drugs := make([]Drug, 0, len(t.rows))
	skipped := 0
	for _, row := range t.rows {
		name := cell(row, nameIdx)
		if name == "" {
			skipped++
			continue
		}
		keys := append([]string{normalizeKey(name)}, splitAliases(cell(row, aliasIdx))...)
		drugs = append(drugs, Drug{Name: name, AliasKeys: keys})
	}

	if skipped > 0 {
		logging.Debug("Drug vocabulary rows skipped", "empty_name", skipped, "rows_parsed", len(drugs))
	}
	return drugs
}

// LoadInteractions parses the interaction table. Rows missing either endpoint are skipped.
func LoadInteractions(r io.Reader) []Interaction {
	t, err := readTable(r)
	if err != nil {
		logging.Warn("Interaction table unusable, continuing without it", "error", err)
		return nil
	}

	aIdx, bIdx := t.column(drugAColumns), t.column(drugBColumns)
	if aIdx < 0 || bIdx < 0 {
		logging.Warn("Interaction table is missing drug columns, continuing without it",
			"accepted_a", drugAColumns, "accepted_b", drugBColumns)
		return nil
	}
	sevIdx, noteIdx := t.column(severityColumns), t.column(noteColumns)

	records := make([]Interaction, 0, len(t.rows))
	skipped := 0
	for _, row := range t.rows {
		a, b := cell(row, aIdx), cell(row, bIdx)
		if a == "" || b == "" {
			skipped++
			continue
		}
		records = append(records, Interaction{
			DrugA:    a,
			DrugB:    b,
			Severity: cell(row, sevIdx),
			Note:     cell(row, noteIdx),
		})
	}

	if skipped > 0 {
		logging.Debug("Interaction rows skipped", "missing_endpoint", skipped, "rows_parsed", len(records))
	}
	return records
}

// LoadDrugInfo parses the per-drug reference details.
func LoadDrugInfo(r io.Reader) []DrugInfo {
	t, err := readTable(r)
	if err != nil {
		logging.Warn("Drug info table unusable, continuing without it", "error", err)
		return nil
	}

	nameIdx := t.column(nameColumns)
	if nameIdx < 0 {
		logging.Warn("Drug info table has no name column, continuing without it", "accepted", nameColumns)
		return nil
	}
	purposeIdx := t.column(purposeColumns)
	indicationsIdx := t.column(indicationsColumns)
	dosageIdx := t.column(dosageColumns)
	warningsIdx := t.column(warningsColumns)

	rows := make([]DrugInfo, 0, len(t.rows))
	for _, row := range t.rows {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		rows = append(rows, DrugInfo{
			Name:        name,
			Purpose:     cell(row, purposeIdx),
			Indications: cell(row, indicationsIdx),
			Dosage:      cell(row, dosageIdx),
			Warnings:    cell(row, warningsIdx),
		})
	}
	return rows
}

// openOptional opens a reference file, logging instead of failing when it is absent.
func openOptional(path, what string) (*os.File, bool) {
	if path == "" {
		logging.Warn("No reference file configured", "table", what)
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		logging.Warn("Reference file unavailable, continuing without it", "table", what, "path", path, "error", err)
		return nil, false
	}
	return f, true
}

func closeQuietly(f *os.File) {
	if err := f.Close(); err != nil {
		logging.Warn("Failed to close reference file", "path", f.Name(), "error", err)
	}
}

// LoadDrugsFile reads the drug vocabulary from disk.
func LoadDrugsFile(path string) []Drug {
	f, ok := openOptional(path, "drugs")
	if !ok {
		return nil
	}
	defer closeQuietly(f)
	return LoadDrugs(f)
}

// LoadInteractionsFile reads the interaction table from disk.
func LoadInteractionsFile(path string) []Interaction {
	f, ok := openOptional(path, "interactions")
	if !ok {
		return nil
	}
	defer closeQuietly(f)
	return LoadInteractions(f)
}

// LoadDrugInfoFile reads the drug details table from disk.
func LoadDrugInfoFile(path string) []DrugInfo {
	f, ok := openOptional(path, "drug_info")
	if !ok {
		return nil
	}
	defer closeQuietly(f)
	return LoadDrugInfo(f)
}
