package session

import "time"

const (
	// Fixed delay before an automatic reconnect attempt. Retries are
	// unbounded in count; a terminal close cause suppresses them entirely.
	defaultReconnectDelay = 2 * time.Second

	// Max message text length (runes) accepted for outbound sends.
	maxMessageChars = 4000

	// Batch kind that carries real inbound messages. Everything else
	// (history syncs, receipts replayed as batches) is dropped.
	notifyKind = "notify"
)
