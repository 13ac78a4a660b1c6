// Package analysis runs the full prescription check: image preparation, extraction,
// name resolution, interaction matching, explanation and translation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giygas/rxscan-api/explain"
	"github.com/giygas/rxscan-api/imaging"
	"github.com/giygas/rxscan-api/interactions"
	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/metrics"
	"github.com/giygas/rxscan-api/reference"
	"github.com/giygas/rxscan-api/resolver"
	"github.com/google/uuid"
)

// DefaultLang is the language reports are composed in
const DefaultLang = "en"

var (
	ErrNoImage              = errors.New("no image provided")
	ErrUnsupportedImage     = imaging.ErrUnsupportedImage
	ErrExtractorUnavailable = errors.New("image extraction is not configured")
)

// Report is the outcome of one analysis
type Report struct {
	ID            string                `json:"id"`
	Lang          string                `json:"lang"`
	RawText       string                `json:"raw_text"`
	CandidateMeds []string              `json:"candidate_meds"`
	ResolvedNames []string              `json:"resolved_names"`
	Resolutions   []resolver.Resolution `json:"resolutions"`
	CheckedPairs  int                   `json:"checked_pairs"`
	Interactions  []interactions.Match  `json:"interactions"`
	Summary       string                `json:"summary"`
	Explanation   string                `json:"explanation"`
	AIExplanation bool                  `json:"ai_explanation"`
	Translated    bool                  `json:"translated"`
}

// Service wires the pipeline stages. Only the data store is required: without an
// extractor image analysis is unavailable, without an explainer the composed summary is
// the explanation, and without a translator output stays in English.
type Service struct {
	data       interfaces.DataStore
	extractor  interfaces.Extractor
	explainer  interfaces.Explainer
	translator interfaces.Translator
	resolveOps []resolver.Option
}

// Option configures a Service
type Option func(*Service)

// WithExtractor enables image analysis through a vision model
func WithExtractor(e interfaces.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithExplainer replaces the composed explanation with model prose when the call succeeds
func WithExplainer(e interfaces.Explainer) Option {
	return func(s *Service) { s.explainer = e }
}

// WithTranslator translates reports requested in a language other than English
func WithTranslator(t interfaces.Translator) Option {
	return func(s *Service) { s.translator = t }
}

// WithThresholds sets the resolver's single-candidate and free-text floors
func WithThresholds(single, text int) Option {
	return func(s *Service) {
		s.resolveOps = append(s.resolveOps, resolver.WithThresholds(single, text))
	}
}

// NewService creates an analysis service reading reference data from data
func NewService(data interfaces.DataStore, opts ...Option) *Service {
	s := &Service{data: data}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanExtract reports whether image analysis is available
func (s *Service) CanExtract() bool {
	return s.extractor != nil
}

// Snapshot returns a resolver and matcher over the current store. Both see the same
// store for their whole lifetime, whatever reloads happen meanwhile.
func (s *Service) Snapshot() (*resolver.Resolver, *interactions.Matcher, *reference.Store) {
	store := s.data.GetStore()
	return resolver.New(store, s.resolveOps...), interactions.NewMatcher(store), store
}

// AnalyzeImage prepares and reads a prescription photo, then analyzes the names found.
// When the extractor returns no names, the raw text is scanned for them instead.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, contentType, lang string) (*Report, error) {
	if s.extractor == nil {
		return nil, ErrExtractorUnavailable
	}
	if len(image) == 0 {
		return nil, ErrNoImage
	}

	prepared, err := imaging.Prepare(image, contentType)
	if err != nil {
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	extraction, err := s.extractor.Extract(ctx, prepared, imaging.OutputMIMEType)
	if err != nil {
		return nil, fmt.Errorf("extracting medications: %w", err)
	}

	res, matcher, store := s.Snapshot()

	candidates := extraction.Candidates
	if len(candidates) == 0 && extraction.RawText != "" {
		candidates = res.FindInText(extraction.RawText)
		logging.Debug("No names extracted, scanned raw text instead", "found", len(candidates))
	}

	return s.analyze(ctx, res, matcher, store, candidates, extraction.RawText, lang), nil
}

// AnalyzeNames analyzes an explicit name list plus any names found in text
func (s *Service) AnalyzeNames(ctx context.Context, names []string, text, lang string) *Report {
	res, matcher, store := s.Snapshot()

	candidates := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			candidates = append(candidates, n)
		}
	}
	if text != "" {
		candidates = append(candidates, res.FindInText(text)...)
	}

	return s.analyze(ctx, res, matcher, store, candidates, text, lang)
}

func (s *Service) analyze(ctx context.Context, res *resolver.Resolver, matcher *interactions.Matcher, store *reference.Store, candidates []string, rawText, lang string) *Report {
	lang = NormalizeLang(lang)
	if candidates == nil {
		candidates = []string{}
	}

	resolutions := res.ResolveMany(candidates)
	for _, r := range resolutions {
		metrics.ObserveResolution(r.Method)
	}
	names := resolver.Distinct(resolutions)

	check := matcher.Check(names)
	severities := make([]string, 0, len(check.Matches))
	for _, m := range check.Matches {
		severities = append(severities, m.Severity)
	}
	metrics.ObserveInteractionCheck(check.PairsChecked, severities)

	summary := explain.Compose(names, check.Matches, store)

	report := &Report{
		ID:            uuid.NewString(),
		Lang:          lang,
		RawText:       rawText,
		CandidateMeds: candidates,
		ResolvedNames: names,
		Resolutions:   resolutions,
		CheckedPairs:  check.PairsChecked,
		Interactions:  check.Matches,
		Summary:       summary,
		Explanation:   summary,
	}

	if s.explainer != nil && len(names) > 0 {
		text, err := s.explainer.Explain(ctx, names, check.Matches)
		if err != nil {
			logging.Warn("AI explanation failed, using composed summary", "report_id", report.ID, "error", err)
		} else {
			report.Explanation = text
			report.AIExplanation = true
		}
	}

	if lang != DefaultLang && s.translator != nil {
		s.translate(ctx, report)
	}

	logging.Info("Analysis completed",
		"report_id", report.ID,
		"candidates", len(candidates),
		"resolved", len(names),
		"pairs_checked", report.CheckedPairs,
		"interactions", len(report.Interactions),
		"lang", lang,
	)
	return report
}

// translate replaces the explanation and raw text with translations. Any failure
// leaves both in English.
func (s *Service) translate(ctx context.Context, report *Report) {
	explanation, err := s.translator.Translate(ctx, report.Explanation, report.Lang)
	if err != nil {
		logging.Warn("Translation failed, keeping English", "report_id", report.ID, "lang", report.Lang, "error", err)
		return
	}
	rawText, err := s.translator.Translate(ctx, report.RawText, report.Lang)
	if err != nil {
		logging.Warn("Raw text translation failed, keeping English", "report_id", report.ID, "lang", report.Lang, "error", err)
		return
	}

	report.Explanation = explanation
	report.RawText = rawText
	report.Translated = true
}

// NormalizeLang lower-cases and trims lang, defaulting to English
func NormalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return DefaultLang
	}
	return lang
}
