package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandlerOutputWithoutColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false)
	log := slog.New(h)

	log.Info("session.connect", "session_id", "s1", "generation", 3)

	out := buf.String()
	for _, want := range []string{"lvl=[INFO]", "msg=session.connect", "session_id=s1", "generation=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color escapes emitted with color disabled: %q", out)
	}
}

func TestPrettyHandlerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error disabled at warn level")
	}
}

func TestPrettyHandlerGroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, nil, false)
	log := slog.New(h).With("component", "session").WithGroup("req")

	log.Info("http.request", "path", "/v1/sessions")

	out := buf.String()
	if !strings.Contains(out, "component=session") {
		t.Fatalf("WithAttrs attr missing: %s", out)
	}
	if !strings.Contains(out, "req.path=/v1/sessions") {
		t.Fatalf("group prefix missing: %s", out)
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", `""`},
		{"two words", `"two words"`},
		{`has"quote`, `"has\"quote"`},
		{"k=v", `"k=v"`},
	}
	for _, tc := range cases {
		if got := quoteIfNeeded(tc.in); got != tc.want {
			t.Fatalf("quoteIfNeeded(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestColorizeStatusCode(t *testing.T) {
	t.Parallel()

	if got := colorizeStatusCode(200, false); got != "200" {
		t.Fatalf("no-color=%q want=200", got)
	}
	if got := colorizeStatusCode(500, true); !strings.Contains(got, "500") || !strings.Contains(got, ansiRed) {
		t.Fatalf("colored 500=%q", got)
	}
	if got := colorizeStatusCode(404, true); !strings.Contains(got, ansiYellow) {
		t.Fatalf("colored 404=%q", got)
	}
}
