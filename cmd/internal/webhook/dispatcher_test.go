package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchSkipsUnconfiguredTarget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	d := NewDispatcher(testLogger(), nil)

	cases := []struct {
		name   string
		target Target
	}{
		{"empty", Target{}},
		{"url_only", Target{URL: srv.URL}},
		{"token_only", Target{Token: "tk"}},
	}
	for _, tc := range cases {
		if got := d.Dispatch(context.Background(), tc.target, Envelope{SessionID: "s1"}); got != OutcomeSkipped {
			t.Fatalf("%s: outcome=%q want=%q", tc.name, got, OutcomeSkipped)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("calls=%d want=0: unconfigured target must not hit the network", calls.Load())
	}
}

func TestDispatchPostsEnvelopeWithToken(t *testing.T) {
	t.Parallel()

	var (
		gotEnv   Envelope
		gotToken string
		gotCT    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s want=POST", r.Method)
		}
		gotToken = r.Header.Get(TokenHeader)
		gotCT = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotEnv); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(testLogger(), nil)
	env := Envelope{
		SessionID: "s1",
		From:      "15551234567",
		Text:      "hi",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		MessageID: "m1",
	}

	if got := d.Dispatch(context.Background(), Target{URL: srv.URL, Token: "tk"}, env); got != OutcomeOK {
		t.Fatalf("outcome=%q want=%q", got, OutcomeOK)
	}
	if gotToken != "tk" {
		t.Fatalf("token=%q want=tk", gotToken)
	}
	if gotCT != "application/json; charset=utf-8" {
		t.Fatalf("content-type=%q", gotCT)
	}
	if gotEnv.SessionID != "s1" || gotEnv.MessageID != "m1" || gotEnv.Text != "hi" {
		t.Fatalf("envelope=%+v", gotEnv)
	}
}

func TestDispatchNon2xxIsFailedNotFatal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(testLogger(), nil)
	if got := d.Dispatch(context.Background(), Target{URL: srv.URL, Token: "tk"}, Envelope{SessionID: "s1"}); got != OutcomeFailed {
		t.Fatalf("outcome=%q want=%q", got, OutcomeFailed)
	}
	// Single attempt only, no retry.
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want=1", calls.Load())
	}
}

func TestDispatchUnreachableEndpointIsFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // now refuses connections

	d := NewDispatcher(testLogger(), &http.Client{Timeout: time.Second})
	if got := d.Dispatch(context.Background(), Target{URL: srv.URL, Token: "tk"}, Envelope{SessionID: "s1"}); got != OutcomeFailed {
		t.Fatalf("outcome=%q want=%q", got, OutcomeFailed)
	}
}
