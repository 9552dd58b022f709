package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, addr, workspace string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = addr
	if workspace != "" {
		req = req.WithContext(WithWorkspaceID(req.Context(), workspace))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	handler := NewRateLimiter(10, 10).Handler(okHandler())
	for i := range 10 {
		if rec := hit(handler, "192.168.1.1:5000", ""); rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	handler := NewRateLimiter(10, 5).Handler(okHandler())
	for range 5 {
		hit(handler, "192.168.1.1:5000", "")
	}

	rec := hit(handler, "192.168.1.1:5000", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterSetsHeaders(t *testing.T) {
	rec := hit(NewRateLimiter(10, 10).Handler(okHandler()), "192.168.1.1:5000", "")
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
}

func TestRateLimiterPerClientAndWorkspace(t *testing.T) {
	handler := NewRateLimiter(10, 2).Handler(okHandler())
	for range 2 {
		hit(handler, "10.0.0.1:1", "ws-a")
	}

	if rec := hit(handler, "10.0.0.1:1", "ws-a"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("exhausted client: expected 429, got %d", rec.Code)
	}
	if rec := hit(handler, "10.0.0.2:1", "ws-a"); rec.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", rec.Code)
	}
	if rec := hit(handler, "10.0.0.1:1", "ws-b"); rec.Code != http.StatusOK {
		t.Errorf("other workspace: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return clock }
	handler := rl.Handler(okHandler())

	hit(handler, "10.0.0.1:1", "")
	if rec := hit(handler, "10.0.0.1:1", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 before refill, got %d", rec.Code)
	}
	clock = clock.Add(time.Second)
	if rec := hit(handler, "10.0.0.1:1", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after refill, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return clock }
	hit(rl.Handler(okHandler()), "10.0.0.1:1", "")

	clock = clock.Add(time.Hour)
	rl.cleanup(time.Minute)
	if rl.Len() != 0 {
		t.Fatalf("expected idle bucket removed, have %d", rl.Len())
	}
}
