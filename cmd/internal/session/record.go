// Package session contains the registry and lifecycle manager for courier's
// messaging-network sessions.
package session

import (
	"time"

	"courier/cmd/internal/transport"
	"courier/cmd/internal/webhook"
)

// Status is the observable lifecycle state of a session.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusConnecting     Status = "connecting"
	StatusPairingPending Status = "pairing_pending"
	StatusConnected      Status = "connected"
	StatusDisconnected   Status = "disconnected"
	StatusErrored        Status = "errored"
)

// PairingChallenge is the one-time code the user must scan to authorize a
// new session, plus its rendered image.
type PairingChallenge struct {
	Code  string
	Image string
}

// Record is the registry's per-session state.
//
// Ownership model:
// - The Registry owns all Records; access goes through Registry methods.
// - Only the Manager mutates Records (via Registry.Update).
//
// Invariants:
//   - Conn is non-nil iff Status is Connecting, PairingPending or Connected.
//   - Pairing is non-nil only while Status is PairingPending.
//   - Identity is non-nil only while Status is Connected.
type Record struct {
	SessionID string
	Status    Status

	Conn     transport.Conn
	Pairing  *PairingChallenge
	Identity *transport.Identity
	Webhook  webhook.Target

	// Generation increments on every explicit connect and disconnect.
	// Connection event handlers and scheduled reconnects carry the
	// generation they were created under and no-op when it has moved on.
	Generation uint64

	CreatedAt time.Time
	UpdatedAt time.Time

	// LastError holds the failure that moved the session to Errored.
	LastError string
}

// Snapshot is an immutable copy of a Record safe to hand to readers.
// The connection handle is deliberately not exposed.
type Snapshot struct {
	SessionID  string
	Status     Status
	Pairing    *PairingChallenge
	Identity   *transport.Identity
	Webhook    webhook.Target
	Generation uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastError  string
}

func (r *Record) snapshot() Snapshot {
	s := Snapshot{
		SessionID:  r.SessionID,
		Status:     r.Status,
		Webhook:    r.Webhook,
		Generation: r.Generation,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		LastError:  r.LastError,
	}
	if r.Pairing != nil {
		p := *r.Pairing
		s.Pairing = &p
	}
	if r.Identity != nil {
		id := *r.Identity
		s.Identity = &id
	}
	return s
}

// Connected reports whether the snapshot carries an authenticated identity.
func (s Snapshot) Connected() bool { return s.Status == StatusConnected }
