package reference

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const drugsCSV = `Name,Brand_Names
Aspirin,ASA; Bayer Aspirin
Warfarin,
Acetaminophen,Tylenol / Panadol|Paracetamol
,orphan alias
Ibuprofen,Advil  Motrin
`

const interactionsCSV = `drug1,drug2,severity,description
Aspirin,Warfarin,major,Increased bleeding risk
ibuprofen,WARFARIN,moderate,Bleeding risk
,Warfarin,minor,missing endpoint
warfarin,aspirin,major,Bleeding risk (updated)
`

func TestLoadDrugs(t *testing.T) {
	drugs := LoadDrugs(strings.NewReader(drugsCSV))

	if len(drugs) != 4 {
		t.Fatalf("Expected 4 drugs (empty name skipped), got %d", len(drugs))
	}

	tests := []struct {
		name string
		keys []string
	}{
		{"Aspirin", []string{"aspirin", "asa", "bayer aspirin"}},
		{"Warfarin", []string{"warfarin"}},
		{"Acetaminophen", []string{"acetaminophen", "tylenol", "panadol", "paracetamol"}},
		{"Ibuprofen", []string{"ibuprofen", "advil", "motrin"}},
	}

	for i, tt := range tests {
		if drugs[i].Name != tt.name {
			t.Errorf("drug %d: expected name %q, got %q", i, tt.name, drugs[i].Name)
		}
		if !slices.Equal(drugs[i].AliasKeys, tt.keys) {
			t.Errorf("drug %q: expected keys %v, got %v", tt.name, tt.keys, drugs[i].AliasKeys)
		}
	}
}

func TestLoadDrugsColumnSynonyms(t *testing.T) {
	drugs := LoadDrugs(strings.NewReader("GENERIC_NAME,alias\nMetformin,Glucophage\n"))
	if len(drugs) != 1 || drugs[0].Name != "Metformin" {
		t.Fatalf("Expected Metformin, got %+v", drugs)
	}
	if !slices.Contains(drugs[0].AliasKeys, "glucophage") {
		t.Errorf("Expected alias glucophage, got %v", drugs[0].AliasKeys)
	}
}

func TestLoadDrugsDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing name column", "brand,aliases\nfoo,bar\n"},
		{"empty input", ""},
		{"header only", "name,aliases\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drugs := LoadDrugs(strings.NewReader(tt.input))
			if len(drugs) != 0 {
				t.Errorf("Expected empty vocabulary, got %d drugs", len(drugs))
			}
		})
	}
}

func TestLoadDrugsLatin1(t *testing.T) {
	// "Cafféine" encoded as ISO-8859-1
	raw := []byte("name\nCaff\xe9ine\n")
	drugs := LoadDrugs(strings.NewReader(string(raw)))
	if len(drugs) != 1 || drugs[0].Name != "Cafféine" {
		t.Fatalf("Expected decoded Cafféine, got %+v", drugs)
	}
}

func TestLoadInteractions(t *testing.T) {
	records := LoadInteractions(strings.NewReader(interactionsCSV))
	if len(records) != 3 {
		t.Fatalf("Expected 3 records (missing endpoint skipped), got %d", len(records))
	}
	if records[0].Severity != "major" || records[0].Note != "Increased bleeding risk" {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
}

func TestLoadInteractionsMissingColumns(t *testing.T) {
	records := LoadInteractions(strings.NewReader("a,b\nx,y\n"))
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestStoreResolveExact(t *testing.T) {
	store := New(LoadDrugs(strings.NewReader(drugsCSV)), nil, nil)

	tests := []struct {
		key      string
		expected string
		found    bool
	}{
		{"Aspirin", "Aspirin", true},
		{"  aSpIrIn  ", "Aspirin", true},
		{"ASA", "Aspirin", true},
		{"bayer aspirin", "Aspirin", true},
		{"tylenol", "Acetaminophen", true},
		{"motrin", "Ibuprofen", true},
		{"orphan alias", "", false},
		{"unknown", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := store.ResolveExact(tt.key)
			if ok != tt.found || got != tt.expected {
				t.Errorf("ResolveExact(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.expected, tt.found)
			}
		})
	}
}

func TestStoreAliasCollisionLastWriteWins(t *testing.T) {
	store := New([]Drug{
		{Name: "Alpha", AliasKeys: []string{"alpha", "shared"}},
		{Name: "Beta", AliasKeys: []string{"beta", "shared"}},
	}, nil, nil)

	if got, _ := store.ResolveExact("shared"); got != "Beta" {
		t.Errorf("Expected last write to win for shared alias, got %q", got)
	}
}

func TestStoreInteractionOrderIndependent(t *testing.T) {
	store := New(nil, LoadInteractions(strings.NewReader(interactionsCSV)), nil)

	if store.InteractionCount() != 2 {
		t.Fatalf("Expected 2 distinct pairs, got %d", store.InteractionCount())
	}

	ab, ok := store.Interaction("Aspirin", "Warfarin")
	if !ok {
		t.Fatal("Expected aspirin/warfarin interaction")
	}
	ba, _ := store.Interaction("WARFARIN", " aspirin ")
	if ab != ba {
		t.Errorf("Expected symmetric lookup, got %+v and %+v", ab, ba)
	}
	if ab.Note != "Bleeding risk (updated)" {
		t.Errorf("Expected later duplicate to overwrite, got %q", ab.Note)
	}
}

func TestPairKey(t *testing.T) {
	if PairKey("b", "A") != PairKey(" a ", "B") {
		t.Error("Expected PairKey to be order and case independent")
	}
	if PairKey("ab", "c") == PairKey("a", "bc") {
		t.Error("Expected PairKey to keep endpoints distinct")
	}
}

func TestStoreInfo(t *testing.T) {
	store := New(
		[]Drug{{Name: "Acetaminophen", AliasKeys: []string{"acetaminophen", "tylenol"}}},
		nil,
		[]DrugInfo{
			{Name: "acetaminophen", Purpose: "Pain reliever"},
			{Name: "Acetaminophen", Purpose: "ignored duplicate"},
		},
	)

	info, ok := store.Info("Tylenol")
	if !ok || info.Purpose != "Pain reliever" {
		t.Errorf("Expected info through alias, got %+v (%v)", info, ok)
	}
	if _, ok := store.Info("Nothing"); ok {
		t.Error("Expected no info for unknown drug")
	}
}

func TestEmptyStore(t *testing.T) {
	for name, store := range map[string]*Store{"empty": Empty(), "nil": nil} {
		t.Run(name, func(t *testing.T) {
			if !store.IsEmpty() {
				t.Error("Expected empty store")
			}
			if _, ok := store.ResolveExact("anything"); ok {
				t.Error("Expected miss on empty store")
			}
			if _, ok := store.Interaction("a", "b"); ok {
				t.Error("Expected no interaction on empty store")
			}
			if names := store.Names(); names == nil || len(names) != 0 {
				t.Errorf("Expected empty non-nil names, got %v", names)
			}
		})
	}
}

func TestLoaderMissingFiles(t *testing.T) {
	store := Loader{
		DrugsPath:        filepath.Join(t.TempDir(), "missing.csv"),
		InteractionsPath: "",
		InfoPath:         filepath.Join(t.TempDir(), "missing_info.csv"),
	}.Load()

	if store == nil || !store.IsEmpty() {
		t.Fatal("Expected a non-nil empty store when files are missing")
	}
}

func TestLoaderReadsFiles(t *testing.T) {
	dir := t.TempDir()
	drugsPath := filepath.Join(dir, "drugs.csv")
	interactionsPath := filepath.Join(dir, "interactions.csv")
	if err := os.WriteFile(drugsPath, []byte(drugsCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(interactionsPath, []byte(interactionsCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	store := Loader{DrugsPath: drugsPath, InteractionsPath: interactionsPath}.Load()
	if store.DrugCount() != 4 || store.InteractionCount() != 2 {
		t.Errorf("Expected 4 drugs and 2 interactions, got %d and %d", store.DrugCount(), store.InteractionCount())
	}
}
