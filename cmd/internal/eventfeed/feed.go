// Package eventfeed streams session status transitions to operator clients
// over websockets.
package eventfeed

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"courier/cmd/internal/session"
)

// Version is the feed envelope contract version.
const Version = 1

// TypeSessionStatus is the only event type currently emitted.
const TypeSessionStatus = "session.status"

// Envelope is the wire shape sent to feed subscribers.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// StatusPayload is the payload for TypeSessionStatus envelopes.
type StatusPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Cause     string `json:"cause,omitempty"`
}

// Feed is an in-memory subscriber set with non-blocking fanout.
//
// Concurrency guarantees:
// - Join/Leave are safe under concurrent Broadcast.
// - Broadcast never blocks (drops under backpressure).
// - Broadcast is panic-safe because Client.Send is never closed here.
//
// Feed implements session.StatusSink so the manager can publish directly.
type Feed struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewFeed constructs a Feed.
func NewFeed(log *slog.Logger) *Feed {
	return &Feed{
		log:     log,
		clients: make(map[string]*Client),
	}
}

// SessionStatus publishes a status transition to all subscribers.
func (f *Feed) SessionStatus(ev session.StatusEvent) {
	payload, err := json.Marshal(StatusPayload{
		SessionID: ev.SessionID,
		Status:    string(ev.Status),
		Cause:     ev.Cause,
	})
	if err != nil {
		return
	}
	f.Broadcast(NewEnvelope(TypeSessionStatus, payload, time.Now().UTC()))
}

// Join adds a client to the subscriber set.
func (f *Feed) Join(client *Client) {
	if f == nil || client == nil || client.ID == "" {
		return
	}

	f.mu.Lock()
	f.clients[client.ID] = client
	f.mu.Unlock()

	f.log.Info("feed.client.join", "client_id", client.ID)
}

// Leave removes a client and signals its shutdown.
func (f *Feed) Leave(clientID string) {
	if f == nil || clientID == "" {
		return
	}

	var cl *Client

	f.mu.Lock()
	cl = f.clients[clientID]
	delete(f.clients, clientID)
	f.mu.Unlock()

	// Signal client shutdown after removing from the set, so broadcasters
	// never hold a pointer to a client mid-teardown.
	if cl != nil {
		cl.Close()
	}

	f.log.Info("feed.client.leave", "client_id", clientID)
}

// Broadcast fanouts an envelope to all subscribers.
// Non-blocking: a full queue or a shutting-down client is dropped.
func (f *Feed) Broadcast(env Envelope) {
	if f == nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, c := range f.clients {
		if c == nil {
			continue
		}

		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			// Drop rather than block the publisher.
		}
	}
}

// NewEnvelope builds a feed envelope with a fresh ULID.
func NewEnvelope(typ string, payload json.RawMessage, ts time.Time) Envelope {
	return Envelope{
		V:       Version,
		Type:    typ,
		ID:      newULID(ts),
		TS:      ts,
		Payload: payload,
	}
}

// newULID returns a ULID string; ULIDs sort by time, which keeps feed
// envelopes orderable in logs.
func newULID(now time.Time) string {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		// rand.Reader failing means the process is in much deeper trouble.
		return ulid.Make().String()
	}
	return id.String()
}
