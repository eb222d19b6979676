package transport

// CloseCause classifies why a connection went away.
type CloseCause string

const (
	// CauseLoggedOut means the account was deauthorized on the network
	// side. Reconnecting is pointless until a new pairing completes.
	CauseLoggedOut CloseCause = "logged_out"

	// CauseReplaced means another client took over the session.
	CauseReplaced CloseCause = "replaced"

	// CauseNetworkError covers transient transport failures.
	CauseNetworkError CloseCause = "network_error"

	// CauseStreamError covers protocol-level stream resets.
	CauseStreamError CloseCause = "stream_error"

	// CauseUnknown is the fallback for unclassified closes.
	CauseUnknown CloseCause = "unknown"
)

// Terminal reports whether reconnecting after this cause is pointless.
// Everything non-terminal is retried by the session manager.
func (c CloseCause) Terminal() bool {
	switch c {
	case CauseLoggedOut, CauseReplaced:
		return true
	default:
		return false
	}
}

func (c CloseCause) String() string {
	if c == "" {
		return string(CauseUnknown)
	}
	return string(c)
}
