// Package handlers provides the HTTP request handlers of the prescription checking API.
// Handlers take their collaborators as interfaces so each can be tested with fakes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/rxscan-api/analysis"
	"github.com/giygas/rxscan-api/imaging"
	"github.com/giygas/rxscan-api/interactions"
	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/reference"
	"github.com/giygas/rxscan-api/resolver"
	"github.com/giygas/rxscan-api/speech"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is kept in memory before spilling to disk
const multipartMemory = 8 << 20

// Analyzer runs the prescription pipeline
type Analyzer interface {
	CanExtract() bool
	AnalyzeImage(ctx context.Context, image []byte, contentType, lang string) (*analysis.Report, error)
	AnalyzeNames(ctx context.Context, names []string, text, lang string) *analysis.Report
	Snapshot() (*resolver.Resolver, *interactions.Matcher, *reference.Store)
}

// HTTPHandlerImpl serves the API routes
type HTTPHandlerImpl struct {
	analyzer      Analyzer
	validator     interfaces.InputValidator
	speaker       interfaces.Speaker
	healthChecker interfaces.HealthChecker
	dataStore     interfaces.DataStore
	maxUpload     int64
}

// NewHTTPHandler creates a handler. speaker may be nil, in which case speech requests
// answer 503.
func NewHTTPHandler(
	analyzer Analyzer,
	validator interfaces.InputValidator,
	speaker interfaces.Speaker,
	healthChecker interfaces.HealthChecker,
	dataStore interfaces.DataStore,
	maxUpload int64,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		analyzer:      analyzer,
		validator:     validator,
		speaker:       speaker,
		healthChecker: healthChecker,
		dataStore:     dataStore,
		maxUpload:     maxUpload,
	}
}

// CheckRequest is the body of POST /check
type CheckRequest struct {
	Names []string `json:"names"`
	Text  string   `json:"text"`
	Lang  string   `json:"lang"`
}

// SpeechRequest is the body of POST /tts/{lang}
type SpeechRequest struct {
	Text string `json:"text"`
}

// ResolveResponse is a single resolution plus the reference details of the resolved drug
type ResolveResponse struct {
	resolver.Resolution
	Info *reference.DrugInfo `json:"info,omitempty"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// CheckImage reads a prescription photo from the multipart field "file" and returns the
// analysis report. The language comes from the {lang} path segment or the lang query.
func (h *HTTPHandlerImpl) CheckImage(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.requestLang(w, r)
	if !ok {
		return
	}

	if !h.analyzer.CanExtract() {
		RespondWithError(w, http.StatusServiceUnavailable, analysis.ErrExtractorUnavailable.Error())
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, analysis.ErrNoImage.Error())
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffContentType(image)
	}

	report, err := h.analyzer.AnalyzeImage(r.Context(), image, contentType, lang)
	if err != nil {
		code, message := analysisErrorStatus(err)
		if code >= http.StatusInternalServerError {
			logging.Error("Image analysis failed", "error", err, "filename", header.Filename, "size", len(image))
		} else {
			logging.Warn("Rejected image upload", "error", err, "content_type", contentType, "size", len(image))
		}
		RespondWithError(w, code, message)
		return
	}

	RespondWithJSON(w, http.StatusOK, report)
}

// Check analyzes an explicit name list and free text without an image
func (h *HTTPHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validator.ValidateNameList(req.Names); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.ValidateText(req.Text); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Lang != "" {
		if err := h.validator.ValidateLanguage(req.Lang); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if !hasContent(req.Names) && strings.TrimSpace(req.Text) == "" {
		RespondWithError(w, http.StatusBadRequest, "Provide names or text to check")
		return
	}

	RespondWithJSON(w, http.StatusOK, h.analyzer.AnalyzeNames(r.Context(), req.Names, req.Text, req.Lang))
}

// Resolve maps one name onto the reference vocabulary
func (h *HTTPHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing name")
		return
	}
	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "name", name, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, _, store := h.analyzer.Snapshot()
	resp := ResolveResponse{Resolution: res.Resolve(name)}
	if resp.Resolved() {
		if info, ok := store.Info(resp.Name); ok {
			resp.Info = &info
		}
	}

	RespondWithJSON(w, http.StatusOK, resp)
}

// Speak synthesizes MP3 audio for the posted text
func (h *HTTPHandlerImpl) Speak(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.requestLang(w, r)
	if !ok {
		return
	}
	if h.speaker == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Speech synthesis is not configured")
		return
	}

	var req SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.ValidateSpeechText(req.Text); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	audio, err := h.speaker.Speak(r.Context(), req.Text, lang)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Error("Speech synthesis failed", "error", err, "lang", lang)
		RespondWithError(w, http.StatusBadGateway, "Speech synthesis failed")
		return
	}

	w.Header().Set("Content-Type", speech.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="explanation.mp3"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		logging.Debug("Failed to write audio response", "error", err)
	}
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, details, httpStatus := h.healthChecker.HealthCheck()

	var uptime time.Duration
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	response := HealthResponse{
		Status:        status,
		Uptime:        FormatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}

// requestLang reads and validates the optional language of a request. It writes the
// error response itself and returns false when the language is invalid.
func (h *HTTPHandlerImpl) requestLang(w http.ResponseWriter, r *http.Request) (string, bool) {
	lang := chi.URLParam(r, "lang")
	if lang == "" {
		lang = r.URL.Query().Get("lang")
	}
	if lang == "" {
		return analysis.DefaultLang, true
	}

	lang = analysis.NormalizeLang(lang)
	if err := h.validator.ValidateLanguage(lang); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return lang, true
}

// analysisErrorStatus maps pipeline errors to a status code and client message
func analysisErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrNoImage), errors.Is(err, imaging.ErrEmptyImage):
		return http.StatusBadRequest, analysis.ErrNoImage.Error()
	case errors.Is(err, imaging.ErrUnsupportedImage):
		return http.StatusBadRequest, imaging.ErrUnsupportedImage.Error()
	case errors.Is(err, imaging.ErrInvalidImage):
		return http.StatusBadRequest, "Could not decode image"
	case errors.Is(err, analysis.ErrExtractorUnavailable):
		return http.StatusServiceUnavailable, analysis.ErrExtractorUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Medication extraction timed out"
	default:
		return http.StatusBadGateway, "Medication extraction failed"
	}
}

// sniffContentType guesses the type of an upload sent without one. HEIC has no
// signature in the standard sniffer, so its ftyp brand is checked first.
func sniffContentType(data []byte) string {
	if imaging.IsHEIC(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}

func hasContent(names []string) bool {
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			return true
		}
	}
	return false
}
