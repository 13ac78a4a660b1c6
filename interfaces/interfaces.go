// Package interfaces defines the contracts between the service's components
// so handlers, the scheduler and the analysis pipeline can be tested with fakes.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/rxscan-api/interactions"
	"github.com/giygas/rxscan-api/reference"
)

// DataStore holds the current reference store snapshot.
// Readers take one snapshot per request; reloads swap the whole store.
type DataStore interface {
	GetStore() *reference.Store
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateStore(store *reference.Store)
	BeginUpdate() bool
	EndUpdate()
}

// ReferenceLoader builds a complete reference store from its sources.
// It never fails: unusable sources produce an empty store.
type ReferenceLoader interface {
	Load() *reference.Store
}

// Scheduler manages the reference data lifecycle and background monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health.
type HealthChecker interface {
	// HealthCheck returns the current status, its details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled reload, zero when reloads are disabled
	CalculateNextUpdate() time.Time
}

// Extraction is what a vision model read from a prescription image.
type Extraction struct {
	RawText    string   `json:"raw_text"`
	Candidates []string `json:"meds"`
}

// Extractor reads medication names from an image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (Extraction, error)
}

// Explainer writes general prose about a medication list and its interactions.
type Explainer interface {
	Explain(ctx context.Context, names []string, matches []interactions.Match) (string, error)
}

// Translator translates text into the language given by an ISO code.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Speaker synthesizes speech, returning MP3 audio.
type Speaker interface {
	Speak(ctx context.Context, text, lang string) ([]byte, error)
}

// InputValidator validates user-supplied values before they reach the pipeline.
type InputValidator interface {
	// ValidateInput checks a single free-text value such as a drug name
	ValidateInput(input string) error

	// ValidateLanguage checks an ISO language code
	ValidateLanguage(lang string) error

	// ValidateNameList checks the size and every entry of a name list
	ValidateNameList(names []string) error

	// ValidateText checks free text submitted for scanning
	ValidateText(text string) error

	// ValidateSpeechText checks text sent for speech synthesis
	ValidateSpeechText(text string) error
}
