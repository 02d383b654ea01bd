package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	rl.now = c.now
	t.Cleanup(rl.Stop)
	return rl, c
}

func TestAllowWindow(t *testing.T) {
	rl, c := newTestLimiter(t, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients have their own budget")
	}
	if got := rl.RetryAfter("a"); got != 60 {
		t.Fatalf("RetryAfter = %d, want 60", got)
	}

	c.t = c.t.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("budget should reset after a minute")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, c := newTestLimiter(t, 5)
	rl.Allow("a")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("b")
	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, MutatingOnly, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("GET %d limited: %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expenses", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first POST: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/expenses/1", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second mutation should be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}
