// Package resolver maps noisy, possibly misspelled medication names onto the canonical
// names of a reference store.
package resolver

import (
	"regexp"
	"strings"

	"github.com/giygas/rxscan-api/fuzzy"
	"github.com/giygas/rxscan-api/reference"
)

const (
	// DefaultThreshold is the floor for a single, already segmented candidate.
	DefaultThreshold = 88
	// DefaultTextThreshold is the floor for n-grams scanned out of free text.
	DefaultTextThreshold = 90

	minTokenLength = 3
	maxGramSize    = 3
)

// Resolution methods.
const (
	MethodExact      = "exact"
	MethodFuzzy      = "fuzzy"
	MethodUnresolved = "unresolved"
)

var textCleaner = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)

// Resolution describes how a single candidate was resolved.
type Resolution struct {
	Input  string `json:"input"`
	Name   string `json:"name"`
	Method string `json:"method"`
	Score  int    `json:"score"`
}

// Resolved reports whether the candidate was mapped onto a canonical name.
func (r Resolution) Resolved() bool {
	return r.Method != MethodUnresolved
}

// Resolver resolves candidates against one store snapshot. It is safe for concurrent use.
type Resolver struct {
	store         *reference.Store
	names         []string
	scorer        fuzzy.Scorer
	threshold     int
	textThreshold int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScorer replaces the similarity scorer.
func WithScorer(s fuzzy.Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithThresholds sets the single-candidate and free-text acceptance floors.
func WithThresholds(single, text int) Option {
	return func(r *Resolver) {
		r.threshold = single
		r.textThreshold = text
	}
}

// New creates a resolver over store. A nil store behaves as an empty one.
func New(store *reference.Store, opts ...Option) *Resolver {
	if store == nil {
		store = reference.Empty()
	}
	r := &Resolver{
		store:         store,
		names:         store.Names(),
		scorer:        fuzzy.Default,
		threshold:     DefaultThreshold,
		textThreshold: DefaultTextThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the exact-then-fuzzy decision for one candidate.
func (r *Resolver) Resolve(candidate string) Resolution {
	res := Resolution{Input: candidate, Name: candidate, Method: MethodUnresolved}
	if candidate == "" {
		return res
	}

	if name, ok := r.store.ResolveExact(candidate); ok {
		res.Name, res.Method, res.Score = name, MethodExact, 100
		return res
	}

	match, ok := fuzzy.ExtractOne(candidate, r.names, r.scorer)
	if !ok {
		return res
	}
	res.Score = match.Score
	if match.Score >= r.threshold {
		res.Name, res.Method = match.Value, MethodFuzzy
	}
	return res
}

// Normalize returns the canonical name for candidate, or candidate unchanged.
func (r *Resolver) Normalize(candidate string) string {
	return r.Resolve(candidate).Name
}

// NormalizeMany normalizes every candidate and removes case-insensitive duplicates,
// keeping the first occurrence in input order.
func (r *Resolver) NormalizeMany(candidates []string) []string {
	return Distinct(r.ResolveMany(candidates))
}

// ResolveMany resolves every candidate, keeping duplicates so callers can report
// per-input outcomes.
func (r *Resolver) ResolveMany(candidates []string) []Resolution {
	out := make([]Resolution, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, r.Resolve(c))
	}
	return out
}

// Distinct returns the resolved names with case-insensitive duplicates removed,
// first occurrence kept.
func Distinct(resolutions []Resolution) []string {
	names := make([]string, 0, len(resolutions))
	for _, res := range resolutions {
		names = append(names, res.Name)
	}
	return DistinctNames(names)
}

// DistinctNames removes case-insensitive duplicates, keeping the first occurrence.
func DistinctNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		out = appendUnique(out, seen, name)
	}
	return out
}

// FindInText scans unstructured text for drug names. Exact alias hits on single
// tokens come first, then fuzzy hits on 1 to 3 token n-grams at the stricter text
// threshold. An empty store finds nothing.
func (r *Resolver) FindInText(text string) []string {
	if text == "" || len(r.names) == 0 {
		return []string{}
	}

	tokens := tokenize(text)
	var found []string

	for _, t := range tokens {
		if name, ok := r.store.ResolveExact(t); ok {
			found = append(found, name)
		}
	}

	for _, gram := range ngrams(tokens, maxGramSize) {
		match, ok := fuzzy.ExtractOne(gram, r.names, r.scorer)
		if ok && match.Score >= r.textThreshold {
			found = append(found, match.Value)
		}
	}

	return DistinctNames(found)
}

func tokenize(text string) []string {
	cleaned := textCleaner.ReplaceAllString(text, " ")
	var tokens []string
	for _, t := range strings.Fields(cleaned) {
		if len([]rune(t)) >= minTokenLength {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// ngrams returns all single tokens, then all pairs, then all triples of consecutive tokens.
func ngrams(tokens []string, maxSize int) []string {
	var grams []string
	for size := 1; size <= maxSize; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+size], " "))
		}
	}
	return grams
}

func appendUnique(out []string, seen map[string]struct{}, name string) []string {
	key := strings.ToLower(name)
	if _, dup := seen[key]; dup {
		return out
	}
	seen[key] = struct{}{}
	return append(out, name)
}
