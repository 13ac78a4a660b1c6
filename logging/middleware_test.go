package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newCapturingLogger() (*slog.Logger, *strings.Builder) {
	var out strings.Builder
	return slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo})), &out
}

func TestLoggingMiddlewareSkipsProbes(t *testing.T) {
	logger, out := newCapturingLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			out.Reset()
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}
			if out.Len() != 0 {
				t.Errorf("expected no logs for %s, got: %s", path, out.String())
			}
		})
	}
}

func TestLoggingMiddlewareLogsRequests(t *testing.T) {
	logger, out := newCapturingLogger()

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(logger))
	r.Get("/resolve/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/resolve/asa?verbose=1", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-789"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	logs := out.String()
	for _, want := range []string{"HTTP request", "request_id=req-789", "path=/resolve/asa", "route=/resolve/{name}", "query=", "verbose=1", "bytes_written=2"} {
		if !strings.Contains(logs, want) {
			t.Errorf("log should contain %q, got: %s", want, logs)
		}
	}
}

func TestLoggingMiddlewareRequestIDFallback(t *testing.T) {
	logger, out := newCapturingLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, 12345))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(out.String(), "request_id=unknown") {
		t.Errorf("log should contain request_id=unknown for non-string ID, got: %s", out.String())
	}
	if strings.Contains(out.String(), "query=") {
		t.Errorf("log should not contain query when empty, got: %s", out.String())
	}
}

func TestLoggingMiddlewareServerErrorLevel(t *testing.T) {
	logger, out := newCapturingLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ocr/check-image", nil))

	if !strings.Contains(out.String(), "level=ERROR") || !strings.Contains(out.String(), "status_code=502") {
		t.Errorf("expected error-level log with status 502, got: %s", out.String())
	}
}

func TestResponseWriterWrapper(t *testing.T) {
	recorder := httptest.NewRecorder()
	wrapper := &responseWriterWrapper{ResponseWriter: recorder, statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusNotFound)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}

	data := []byte("test data")
	n, err := wrapper.Write(data)
	if err != nil || n != len(data) {
		t.Errorf("Write returned (%d, %v)", n, err)
	}

	wrapper.WriteHeader(http.StatusInternalServerError)
	if wrapper.statusCode != http.StatusNotFound {
		t.Error("Status should not change after the first WriteHeader")
	}
	if wrapper.bytesWritten != len(data) {
		t.Errorf("Expected bytesWritten %d, got %d", len(data), wrapper.bytesWritten)
	}
}
