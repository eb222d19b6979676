package session

import (
	"sync"
	"time"

	"courier/cmd/internal/transport"
)

// Registry is the in-memory source of truth for what sessions exist.
//
// Concurrency guarantees:
// - GetOrCreate/Get/List/Update are safe for concurrent use.
// - Update applies the mutator atomically; readers never observe a
//   half-applied mutation.
// - List returns an insertion-ordered snapshot.
//
// Nothing here persists; process restart loses all records (credentials
// survive via the credential store).
type Registry struct {
	mu    sync.RWMutex
	recs  map[string]*Record
	order []string

	now func() time.Time
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		recs: make(map[string]*Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the existing record's snapshot or creates an Idle one.
func (r *Registry) GetOrCreate(sessionID string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(sessionID).snapshot()
}

func (r *Registry) getOrCreateLocked(sessionID string) *Record {
	if rec, ok := r.recs[sessionID]; ok {
		return rec
	}
	now := r.now()
	rec := &Record{
		SessionID: sessionID,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.recs[sessionID] = rec
	r.order = append(r.order, sessionID)
	return rec
}

// Get returns a snapshot of the record, if present.
func (r *Registry) Get(sessionID string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[sessionID]
	if !ok {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// List returns snapshots of all records in insertion order.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		if rec, ok := r.recs[id]; ok {
			out = append(out, rec.snapshot())
		}
	}
	return out
}

// Update applies the mutator atomically, creating the record if absent, and
// bumps UpdatedAt (monotonically non-decreasing). It returns the resulting
// snapshot.
func (r *Registry) Update(sessionID string, mutate func(*Record)) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.getOrCreateLocked(sessionID)
	mutate(rec)

	if now := r.now(); now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}
	return rec.snapshot()
}

// Remove deletes the record. It reports whether the record existed.
// The caller is responsible for tearing down any live connection first.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recs[sessionID]; !ok {
		return false
	}
	delete(r.recs, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// handle returns the live connection handle and current status.
// Manager-internal: the handle must never leak to API readers.
func (r *Registry) handle(sessionID string) (transport.Conn, Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[sessionID]
	if !ok {
		return nil, "", false
	}
	return rec.Conn, rec.Status, true
}
