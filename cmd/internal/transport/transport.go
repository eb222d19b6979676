// Package transport defines the boundary to the external messaging network.
//
// The real protocol implementation (handshake, encryption, wire framing)
// lives behind Dialer/Conn. The session manager only sees the event stream
// and the send/logout surface defined here.
package transport

import (
	"context"
	"encoding/json"
	"time"
)

// AuthState is the per-session authentication material handed to the dialer.
// The blob is opaque to the core; only the credential store and the protocol
// implementation interpret it.
type AuthState struct {
	SessionID string
	Blob      []byte

	// Registered is true when the blob carries a completed pairing.
	// A fresh (unpaired) state makes the connection emit a pairing code.
	Registered bool
}

// Identity describes the network account behind an open connection.
type Identity struct {
	NetworkID   string
	DisplayName string
}

// SendResult is returned by outbound sends.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// MediaInput describes an outbound media send.
type MediaInput struct {
	To       string
	Data     []byte
	MimeType string
	Caption  string
}

// Conn is one live connection to the messaging network.
//
// Contract for implementations:
//   - Events are delivered to the EventHandler serially, in emission order.
//   - After HandleClosed fires, no further events are delivered and the
//     Conn must not be used for sends.
type Conn interface {
	SendText(ctx context.Context, to, text string) (SendResult, error)
	SendMedia(ctx context.Context, in MediaInput) (SendResult, error)
	Logout(ctx context.Context) error
}

// Dialer opens connections from loaded auth state.
//
// Event delivery starts only after Open returns: implementations must not
// invoke the handler synchronously from inside Open, or they will deadlock
// against the manager's per-session serialization.
type Dialer interface {
	Open(ctx context.Context, in OpenInput) (Conn, error)
}

// OpenInput carries everything a dialer needs to establish a connection.
type OpenInput struct {
	SessionID string
	Auth      AuthState
	Handler   EventHandler
}

// EventHandler receives connection lifecycle events, one method per kind.
// Implementations must tolerate events arriving after they have initiated
// a disconnect (the connection may race them out).
type EventHandler interface {
	// HandlePairingCode fires when the network challenges an unpaired
	// session with a one-time code to scan.
	HandlePairingCode(code string)

	// HandleConnected fires once the connection is open and authenticated.
	HandleConnected(id Identity)

	// HandleClosed fires exactly once when the connection is gone.
	HandleClosed(cause CloseCause)

	// HandleMessage fires for every inbound raw message batch entry.
	HandleMessage(msg RawMessage)

	// HandleCredentials fires when the protocol layer updated the auth
	// material and wants it persisted.
	HandleCredentials(auth AuthState)
}

// RawMessage is the unparsed inbound message shape at the boundary.
// Content variants mirror the network payload: exactly the fields the
// translator knows how to extract a text body from.
type RawMessage struct {
	MessageID string
	Kind      string // batch kind; only "notify" batches are real messages
	FromMe    bool
	From      string // network address, possibly with an @domain suffix
	To        string
	PushName  string
	Timestamp time.Time

	Conversation string
	ExtendedText string
	ImageCaption string
	VideoCaption string

	Payload json.RawMessage
}
