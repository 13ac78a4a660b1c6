package reference

import "slices"

// Store is the immutable in-memory reference built once from the reference files.
// Every query is defined on an empty store: lookups miss and the candidate pool is empty.
type Store struct {
	names        []string
	aliases      map[string]string
	interactions map[string]Interaction
	info         map[string]DrugInfo
}

// Empty returns a store with no data. It is what callers get when the reference
// files are missing or unusable.
func Empty() *Store {
	return New(nil, nil, nil)
}

// New builds a store. Alias collisions and duplicate interaction pairs are resolved
// last-write-wins; for drug info the first row per name is kept.
func New(drugs []Drug, interactions []Interaction, info []DrugInfo) *Store {
	s := &Store{
		names:        make([]string, 0, len(drugs)),
		aliases:      make(map[string]string, len(drugs)*2),
		interactions: make(map[string]Interaction, len(interactions)),
		info:         make(map[string]DrugInfo, len(info)),
	}

	seen := make(map[string]struct{}, len(drugs))
	for _, d := range drugs {
		if d.Name == "" {
			continue
		}
		if _, dup := seen[d.Name]; !dup {
			seen[d.Name] = struct{}{}
			s.names = append(s.names, d.Name)
		}

		s.aliases[normalizeKey(d.Name)] = d.Name
		for _, alias := range d.AliasKeys {
			if key := normalizeKey(alias); key != "" {
				s.aliases[key] = d.Name
			}
		}
	}

	for _, rec := range interactions {
		if normalizeKey(rec.DrugA) == "" || normalizeKey(rec.DrugB) == "" {
			continue
		}
		s.interactions[rec.Key()] = rec
	}

	for _, row := range info {
		key := normalizeKey(row.Name)
		if key == "" {
			continue
		}
		if _, exists := s.info[key]; !exists {
			s.info[key] = row
		}
	}

	return s
}

// ResolveExact looks a key up in the alias table (trimmed, case-insensitive).
func (s *Store) ResolveExact(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.aliases[normalizeKey(key)]
	return name, ok
}

// Names returns a copy of the canonical names in load order.
func (s *Store) Names() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Interaction returns the record for the unordered pair {a, b}.
func (s *Store) Interaction(a, b string) (Interaction, bool) {
	if s == nil {
		return Interaction{}, false
	}
	rec, ok := s.interactions[PairKey(a, b)]
	return rec, ok
}

// Info returns the reference details for a drug. Names are looked up directly,
// then through the alias table so brand names reach their generic's row.
func (s *Store) Info(name string) (DrugInfo, bool) {
	if s == nil {
		return DrugInfo{}, false
	}
	key := normalizeKey(name)
	if row, ok := s.info[key]; ok {
		return row, true
	}
	if canonical, ok := s.aliases[key]; ok {
		row, found := s.info[normalizeKey(canonical)]
		return row, found
	}
	return DrugInfo{}, false
}

// Interactions returns every interaction record ordered by pair key.
func (s *Store) Interactions() []Interaction {
	if s == nil {
		return []Interaction{}
	}
	keys := make([]string, 0, len(s.interactions))
	for k := range s.interactions {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Interaction, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.interactions[k])
	}
	return out
}

// InfoRows returns every drug info row ordered by lower-cased name.
func (s *Store) InfoRows() []DrugInfo {
	if s == nil {
		return []DrugInfo{}
	}
	keys := make([]string, 0, len(s.info))
	for k := range s.info {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]DrugInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.info[k])
	}
	return out
}

// DrugCount returns the number of canonical names.
func (s *Store) DrugCount() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// AliasCount returns the number of alias keys, canonical names included.
func (s *Store) AliasCount() int {
	if s == nil {
		return 0
	}
	return len(s.aliases)
}

// InteractionCount returns the number of distinct unordered pairs.
func (s *Store) InteractionCount() int {
	if s == nil {
		return 0
	}
	return len(s.interactions)
}

// InfoCount returns the number of drugs with reference details.
func (s *Store) InfoCount() int {
	if s == nil {
		return 0
	}
	return len(s.info)
}

// IsEmpty reports whether the store carries no vocabulary and no interactions.
func (s *Store) IsEmpty() bool {
	return s.DrugCount() == 0 && s.InteractionCount() == 0
}
