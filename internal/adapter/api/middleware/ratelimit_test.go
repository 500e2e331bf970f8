package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := LoginRateLimit(60, 3, logger)(next)

	attempt := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("Burst Allowed Then Throttled", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if code := attempt("203.0.113.7:4000"); code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i+1, code)
			}
		}
		if code := attempt("203.0.113.7:4000"); code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 past the burst, got %d", code)
		}
	})

	t.Run("Limits Are Per Client", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			attempt("203.0.113.8:4000")
		}
		if code := attempt("203.0.113.9:4000"); code != http.StatusOK {
			t.Fatalf("a fresh client must not inherit another client's limit, got %d", code)
		}
	})

	t.Run("Port Does Not Split The Bucket", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			attempt("203.0.113.10:1111")
		}
		if code := attempt("203.0.113.10:2222"); code != http.StatusTooManyRequests {
			t.Fatalf("same IP on a new port must share the bucket, got %d", code)
		}
	})
}
