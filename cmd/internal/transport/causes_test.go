package transport

import "testing"

func TestCloseCauseTerminal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cause    CloseCause
		terminal bool
	}{
		{CauseLoggedOut, true},
		{CauseReplaced, true},
		{CauseNetworkError, false},
		{CauseStreamError, false},
		{CauseUnknown, false},
		{CloseCause(""), false},
	}
	for _, tc := range cases {
		if got := tc.cause.Terminal(); got != tc.terminal {
			t.Fatalf("Terminal(%q)=%v want=%v", tc.cause, got, tc.terminal)
		}
	}
}

func TestCloseCauseString(t *testing.T) {
	t.Parallel()

	if got := CloseCause("").String(); got != "unknown" {
		t.Fatalf("empty cause string=%q want=unknown", got)
	}
	if got := CauseLoggedOut.String(); got != "logged_out" {
		t.Fatalf("string=%q want=logged_out", got)
	}
}
