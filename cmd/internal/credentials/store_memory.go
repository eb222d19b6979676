package credentials

import (
	"context"
	"strings"
	"sync"

	"courier/cmd/internal/transport"
)

// InMemoryStore is a dev-only fallback when DB is not configured.
// Credentials are lost on restart, which forces re-pairing; acceptable for
// local development, not for operation.
type InMemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// Load returns stored auth state, or a fresh unregistered state when absent.
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (transport.AuthState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return transport.AuthState{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return transport.AuthState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.blobs[sessionID]
	if !ok {
		return transport.AuthState{SessionID: sessionID}, nil
	}
	cp := append([]byte(nil), blob...)
	return transport.AuthState{SessionID: sessionID, Blob: cp, Registered: true}, nil
}

// Save overwrites the stored blob for the session.
func (s *InMemoryStore) Save(ctx context.Context, auth transport.AuthState) error {
	if strings.TrimSpace(auth.SessionID) == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[auth.SessionID] = append([]byte(nil), auth.Blob...)
	return nil
}

// Delete removes stored material for the session.
func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, sessionID)
	return nil
}
