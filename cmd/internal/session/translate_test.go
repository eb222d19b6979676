package session

import (
	"testing"
	"time"

	"courier/cmd/internal/transport"
)

func TestTranslateFilters(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  transport.RawMessage
		want bool
	}{
		{"notify_inbound", transport.RawMessage{Kind: "notify", Conversation: "hi"}, true},
		{"from_me", transport.RawMessage{Kind: "notify", FromMe: true, Conversation: "hi"}, false},
		{"append_batch", transport.RawMessage{Kind: "append", Conversation: "hi"}, false},
		{"empty_kind", transport.RawMessage{Conversation: "hi"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, ok := Translate("s1", tc.msg); ok != tc.want {
				t.Fatalf("ok=%v want=%v", ok, tc.want)
			}
		})
	}
}

func TestTranslateTextExtraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  transport.RawMessage
		want string
	}{
		{"conversation", transport.RawMessage{Kind: "notify", Conversation: "plain"}, "plain"},
		{"extended_text", transport.RawMessage{Kind: "notify", ExtendedText: "quoted reply"}, "quoted reply"},
		{"image_caption", transport.RawMessage{Kind: "notify", ImageCaption: "look at this"}, "look at this"},
		{"video_caption", transport.RawMessage{Kind: "notify", VideoCaption: "clip"}, "clip"},
		{"conversation_wins", transport.RawMessage{Kind: "notify", Conversation: "a", ImageCaption: "b"}, "a"},
		{"no_content", transport.RawMessage{Kind: "notify"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env, ok := Translate("s1", tc.msg)
			if !ok {
				t.Fatal("translated=false want=true")
			}
			if env.Text != tc.want {
				t.Fatalf("text=%q want=%q", env.Text, tc.want)
			}
		})
	}
}

func TestTranslateEnvelopeFields(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	env, ok := Translate("s1", transport.RawMessage{
		MessageID:    "m1",
		Kind:         "notify",
		From:         "15551234567@s.whatsapp.net",
		To:           "me@s.whatsapp.net",
		PushName:     "Bob",
		Timestamp:    ts,
		Conversation: "hi",
		Payload:      []byte(`{"k":"v"}`),
	})
	if !ok {
		t.Fatal("translated=false want=true")
	}
	if env.SessionID != "s1" || env.From != "15551234567" || env.MessageID != "m1" {
		t.Fatalf("envelope=%+v", env)
	}
	if env.ContactName != "Bob" || !env.Timestamp.Equal(ts) {
		t.Fatalf("envelope=%+v", env)
	}
	if string(env.Raw) != `{"k":"v"}` {
		t.Fatalf("raw=%s", env.Raw)
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"15551234567@s.whatsapp.net", "15551234567"},
		{"15551234567", "15551234567"},
		{"", ""},
		{"@s.whatsapp.net", ""},
	}
	for _, tc := range cases {
		if got := NormalizeAddress(tc.in); got != tc.want {
			t.Fatalf("NormalizeAddress(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}
