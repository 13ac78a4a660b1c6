package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giygas/rxscan-api/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		expectedCost int64
	}{
		{"Metrics endpoint", "/metrics", 0},
		{"Health endpoint", "/health", 5},
		{"Check", "/check", 20},
		{"Image check", "/ocr/check-image", 200},
		{"Image check with language", "/ocr/check-image/fr", 200},
		{"Speech", "/tts/en", 100},
		{"Resolve", "/resolve/aspirin", 10},
		{"MCP", "/mcp", 20},
		{"Default endpoint", "/unknown", 5},
		{"Root path", "/", 5},
		{"Prefix lookalike", "/ocr/check-imagex", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("Expected cost %d for path %s, got %d", tt.expectedCost, tt.path, cost)
			}
		})
	}
}

func TestRateLimiterExhaustion(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()
	handler := rl.Middleware(okHandler)

	// Image checks cost 200 of the 1000 token capacity
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/ocr/check-image", nil)
		req.RemoteAddr = "203.0.113.7"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/ocr/check-image", nil)
	req.RemoteAddr = "203.0.113.7"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after exhausting the bucket, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected retry headers, got %v", rr.Header())
	}

	// Other clients keep their own bucket
	other := httptest.NewRequest(http.MethodPost, "/ocr/check-image", nil)
	other.RemoteAddr = "198.51.100.2"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected a different client to pass, got %d", rr.Code)
	}

	// Free endpoints skip the bucket entirely
	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsReq.RemoteAddr = "203.0.113.7"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, metricsReq)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected free endpoint to pass, got %d", rr.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	rl.getBucket("idle").TakeAvailable(0)
	rl.getBucket("busy").TakeAvailable(500)
	rl.cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.clients["idle"]; ok {
		t.Error("Expected full bucket to be removed")
	}
	if _, ok := rl.clients["busy"]; !ok {
		t.Error("Expected drained bucket to be kept")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter()
	rl.StartCleanup(rateLimitCleanupInterval)
	rl.Stop()
	rl.Stop()
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		expected   string
	}{
		{"single forwarded IP", "203.0.113.1", "192.168.1.1:12345", "203.0.113.1"},
		{"forwarded chain takes first", "203.0.113.1, 10.0.0.1", "192.168.1.1:12345", "203.0.113.1"},
		{"no header strips port", "", "192.168.1.1:12345", "192.168.1.1"},
		{"no header without port", "", "192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}

			var seen string
			RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			})).ServeHTTP(httptest.NewRecorder(), req)

			if seen != tt.expected {
				t.Errorf("Expected RemoteAddr %q, got %q", tt.expected, seen)
			}
		})
	}
}

func TestBlockDirectAccessMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		remoteAddr   string
		header       string
		expectedCode int
	}{
		{"localhost IPv4", "127.0.0.1:12345", "", http.StatusOK},
		{"localhost IPv6", "[::1]:12345", "", http.StatusOK},
		{"direct public IP", "203.0.113.5:12345", "", http.StatusForbidden},
		{"via proxy X-Forwarded-For", "203.0.113.5:12345", "X-Forwarded-For", http.StatusOK},
		{"via proxy X-Real-IP", "203.0.113.5:12345", "X-Real-IP", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set(tt.header, "198.51.100.1")
			}

			rr := httptest.NewRecorder()
			BlockDirectAccessMiddleware(okHandler).ServeHTTP(rr, req)
			if rr.Code != tt.expectedCode {
				t.Errorf("Expected %d, got %d", tt.expectedCode, rr.Code)
			}
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 100, MaxHeaderSize: 200}
	handler := RequestSizeMiddleware(cfg)(okHandler)

	tests := []struct {
		name         string
		body         string
		headerValue  string
		expectedCode int
	}{
		{"exactly max size", strings.Repeat("a", 100), "", http.StatusOK},
		{"exceeds max size", strings.Repeat("a", 101), "", http.StatusRequestEntityTooLarge},
		{"no body", "", "", http.StatusOK},
		{"headers too large", "", strings.Repeat("h", 300), http.StatusRequestHeaderFieldsTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(tt.body))
			if tt.headerValue != "" {
				req.Header.Set("X-Padding", tt.headerValue)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.expectedCode {
				t.Errorf("Expected %d, got %d", tt.expectedCode, rr.Code)
			}
		})
	}
}

func TestRequestSizeMiddlewareCapsChunkedBodies(t *testing.T) {
	cfg := &config.Config{MaxRequestBody: 10, MaxHeaderSize: 1024}

	var readErr error
	handler := RequestSizeMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(strings.Repeat("a", 50)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil || readErr.Error() != "http: request body too large" {
		t.Errorf("Expected the body read to be capped, got %v", readErr)
	}
}
