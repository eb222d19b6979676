package session

import "errors"

var (
	ErrInvalidInput = errors.New("session: invalid input")
	ErrNotFound     = errors.New("session: not found")

	// ErrNotConnected means a send was attempted without an open,
	// authenticated connection. Surfaced to the caller, never retried.
	ErrNotConnected = errors.New("session: not connected")
)
