// Package credentials persists per-session authentication material.
//
// The blob inside transport.AuthState is opaque here; stores move it to and
// from stable storage without interpreting it.
package credentials

import (
	"context"
	"errors"

	"courier/cmd/internal/transport"
)

var (
	ErrInvalidInput = errors.New("credentials: invalid input")
	ErrNotFound     = errors.New("credentials: not found")
)

// Store loads and persists auth state per session id.
//
// Requirements:
//   - Load returns a fresh unregistered AuthState when nothing is stored;
//     ErrNotFound is reserved for Delete-style lookups, not Load.
//   - Save overwrites atomically per session id.
type Store interface {
	Load(ctx context.Context, sessionID string) (transport.AuthState, error)
	Save(ctx context.Context, auth transport.AuthState) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
