package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(2, 10*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !l.Allow("c1", base) || !l.Allow("c1", base.Add(time.Second)) {
		t.Fatal("first events under the limit rejected")
	}
	if l.Allow("c1", base.Add(2*time.Second)) {
		t.Fatal("event over the limit allowed")
	}

	// Another client has its own window.
	if !l.Allow("c2", base.Add(2*time.Second)) {
		t.Fatal("independent client throttled")
	}

	// Once the first event slides out of the window, capacity returns.
	if !l.Allow("c1", base.Add(11*time.Second)) {
		t.Fatal("event after window expiry rejected")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(0, 0)
	if l.Window() != defaultRateWindow {
		t.Fatalf("window=%v want=%v", l.Window(), defaultRateWindow)
	}
	now := time.Now()
	for i := 0; i < defaultRateEvents; i++ {
		if !l.Allow("c", now) {
			t.Fatalf("event %d under default limit rejected", i)
		}
	}
	if l.Allow("c", now) {
		t.Fatal("event over default limit allowed")
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:54321"
	if got := clientKey(r); got != "10.0.0.7" {
		t.Fatalf("clientKey=%q want=10.0.0.7", got)
	}

	r.RemoteAddr = "weird-no-port"
	if got := clientKey(r); got != "weird-no-port" {
		t.Fatalf("clientKey=%q want passthrough", got)
	}
}
