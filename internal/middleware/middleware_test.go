package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

// =========================================================================
// LOGGER TESTS
// =========================================================================

func TestLogger_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := chimiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))

	out := buf.String()
	for _, want := range []string{"request completed", "path=/api/products", "status=418", "bytes=15", "requestID=", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

// =========================================================================
// RATE LIMITER TESTS
// =========================================================================

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, discardLogger())
	defer rl.Close()
	h := rl.Handler(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests {
			if rec.Header().Get("Retry-After") == "" {
				t.Error("429 without Retry-After")
			}
			if !strings.Contains(rec.Body.String(), `"rate_limited"`) {
				t.Errorf("429 body = %s", rec.Body.String())
			}
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("status codes = %v, want %v", codes, want)
		}
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1, discardLogger())
	defer rl.Close()
	h := rl.Handler(okHandler)

	for _, addr := range []string{"198.51.100.1:1", "198.51.100.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("first request from %s = %d, want 200", addr, rec.Code)
		}
	}
	if rl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", rl.Len())
	}
}

func TestRateLimiter_CleanupForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(60, 1, discardLogger())
	defer rl.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("idle")
	now = now.Add(11 * time.Minute)
	rl.getLimiter("fresh")

	rl.Cleanup()
	if rl.Len() != 1 {
		t.Fatalf("Len() = %d after cleanup, want 1", rl.Len())
	}
	if _, ok := rl.limiters["fresh"]; !ok {
		t.Error("fresh client was removed")
	}
}

// =========================================================================
// CONTENT TYPE TESTS
// =========================================================================

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"json body", http.MethodPost, "application/json", `{"name":"Tea"}`, http.StatusOK},
		{"json with charset", http.MethodPut, "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"text/plain form body", http.MethodPost, "text/plain", `{"name":"Pwned"}`, http.StatusUnsupportedMediaType},
		{"urlencoded form", http.MethodPost, "application/x-www-form-urlencoded", `name=x`, http.StatusUnsupportedMediaType},
		{"missing type", http.MethodPost, "", `{"name":"x"}`, http.StatusUnsupportedMediaType},
		{"empty body", http.MethodPost, "text/plain", ``, http.StatusOK},
		{"delete without body", http.MethodDelete, "", ``, http.StatusOK},
		{"get ignores type", http.MethodGet, "text/plain", ``, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/categories", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			RequireJSON(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnsupportedMediaType && !strings.Contains(rec.Body.String(), "application/json") {
				t.Errorf("body = %q, want a message naming application/json", rec.Body.String())
			}
		})
	}
}
