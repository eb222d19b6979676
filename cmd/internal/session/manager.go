package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"courier/cmd/internal/credentials"
	"courier/cmd/internal/pairing"
	"courier/cmd/internal/transport"
	"courier/cmd/internal/webhook"
)

// StatusEvent describes one observable status transition.
type StatusEvent struct {
	SessionID string
	Status    Status
	Cause     string
}

// StatusSink receives status transitions. Implementations must not block:
// sinks are invoked synchronously from lifecycle handling.
type StatusSink interface {
	SessionStatus(ev StatusEvent)
}

// Manager owns the per-session connection lifecycle.
//
// Concurrency model:
//   - Operations and connection events for one session are serialized by a
//     per-session mutex. Different sessions interleave freely.
//   - State mutations are single atomic Registry.Update calls, so API
//     readers always see a consistent snapshot.
//   - Sends run outside the per-session lock: a slow network send must not
//     stall close/reconnect handling for that session.
//   - Scheduled reconnects carry (sessionID, generation); any explicit
//     connect or disconnect bumps the generation, so a stale timer detects
//     the change and no-ops instead of resurrecting a closed session.
type Manager struct {
	log     *slog.Logger
	reg     *Registry
	creds   credentials.Store
	dialer  transport.Dialer
	disp    *webhook.Dispatcher
	render  pairing.Renderer
	metrics *Metrics
	sinks   []StatusSink

	reconnectDelay time.Duration
	dialTimeout    time.Duration

	opMu sync.Mutex
	ops  map[string]*sync.Mutex
}

// Options wires a Manager. Dialer and Credentials are required.
type Options struct {
	Log         *slog.Logger
	Registry    *Registry
	Credentials credentials.Store
	Dialer      transport.Dialer
	Dispatcher  *webhook.Dispatcher
	Renderer    pairing.Renderer
	Metrics     *Metrics
	Sinks       []StatusSink

	ReconnectDelay time.Duration
	DialTimeout    time.Duration
}

// NewManager constructs a Manager with safe defaults for optional parts.
func NewManager(opts Options) (*Manager, error) {
	if opts.Dialer == nil {
		return nil, errors.New("session: nil dialer")
	}
	if opts.Credentials == nil {
		return nil, errors.New("session: nil credential store")
	}

	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	disp := opts.Dispatcher
	if disp == nil {
		disp = webhook.NewDispatcher(log, nil)
	}
	render := opts.Renderer
	if render == nil {
		render = pairing.QRRenderer{}
	}
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 30 * time.Second
	}

	return &Manager{
		log:            log,
		reg:            reg,
		creds:          opts.Credentials,
		dialer:         opts.Dialer,
		disp:           disp,
		render:         render,
		metrics:        opts.Metrics,
		sinks:          opts.Sinks,
		reconnectDelay: delay,
		dialTimeout:    dialTimeout,
		ops:            make(map[string]*sync.Mutex),
	}, nil
}

// Registry exposes the registry for read paths (API status/QR queries).
func (m *Manager) Registry() *Registry { return m.reg }

// ---- public operations ----

// Connect opens a connection for the session, creating the record if
// absent. Idempotent: while a connection handle exists it returns the
// current record without opening a second connection.
func (m *Manager) Connect(ctx context.Context, sessionID string) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Snapshot{}, ErrInvalidInput
	}

	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return m.connectLocked(ctx, sessionID)
}

// Disconnect logs out and tears down the session's connection. It succeeds
// immediately when no connection is active, and suppresses any pending
// auto-reconnect for this session.
func (m *Manager) Disconnect(ctx context.Context, sessionID string) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Snapshot{}, ErrInvalidInput
	}

	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return m.disconnectLocked(ctx, sessionID), nil
}

// SendText sends a text message through the session's connection.
// Fails with ErrNotConnected unless the session is Connected.
func (m *Manager) SendText(ctx context.Context, sessionID, to, text string) (string, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(to) == "" {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrInvalidInput
	}
	if len([]rune(text)) > maxMessageChars {
		return "", fmt.Errorf("%w: message too long (max %d chars)", ErrInvalidInput, maxMessageChars)
	}

	conn, err := m.liveConn(sessionID)
	if err != nil {
		return "", err
	}

	// Deliberately not under the per-session lock: sending is a suspension
	// point and must not block event handling for this session.
	res, err := conn.SendText(ctx, to, text)
	if err != nil {
		return "", fmt.Errorf("session: send: %w", err)
	}
	m.metrics.messageSent()
	return res.MessageID, nil
}

// SendMedia sends a media message through the session's connection.
func (m *Manager) SendMedia(ctx context.Context, sessionID string, in transport.MediaInput) (string, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(in.To) == "" || len(in.Data) == 0 {
		return "", ErrInvalidInput
	}

	conn, err := m.liveConn(sessionID)
	if err != nil {
		return "", err
	}

	res, err := conn.SendMedia(ctx, in)
	if err != nil {
		return "", fmt.Errorf("session: send media: %w", err)
	}
	m.metrics.messageSent()
	return res.MessageID, nil
}

// SetWebhook updates the session's webhook target, creating the record if
// absent. The target survives reconnects.
func (m *Manager) SetWebhook(sessionID string, target webhook.Target) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Snapshot{}, ErrInvalidInput
	}
	return m.reg.Update(sessionID, func(rec *Record) {
		rec.Webhook = target
	}), nil
}

// Delete disconnects the session and removes its record and credentials.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidInput
	}

	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := m.reg.Get(sessionID); !ok {
		return ErrNotFound
	}

	m.disconnectLocked(ctx, sessionID)
	m.reg.Remove(sessionID)

	if err := m.creds.Delete(ctx, sessionID); err != nil && !errors.Is(err, credentials.ErrNotFound) {
		m.log.Warn("session.delete.credentials.fail", "session_id", sessionID, "err", err)
	}
	return nil
}

// Shutdown logs out every live connection. Used on process stop.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, snap := range m.reg.List() {
		switch snap.Status {
		case StatusConnecting, StatusPairingPending, StatusConnected:
			if _, err := m.Disconnect(ctx, snap.SessionID); err != nil {
				m.log.Warn("session.shutdown.disconnect.fail", "session_id", snap.SessionID, "err", err)
			}
		}
	}
}

// ---- internals ----

func (m *Manager) connectLocked(ctx context.Context, sessionID string) (Snapshot, error) {
	if conn, _, ok := m.reg.handle(sessionID); ok && conn != nil {
		snap, _ := m.reg.Get(sessionID)
		m.log.Debug("session.connect.noop", "session_id", sessionID, "status", snap.Status)
		return snap, nil
	}

	var (
		prev Status
		gen  uint64
	)
	snap := m.reg.Update(sessionID, func(rec *Record) {
		prev = rec.Status
		rec.Generation++
		gen = rec.Generation
		rec.Status = StatusConnecting
		rec.Pairing = nil
		rec.Identity = nil
		rec.LastError = ""
	})
	m.notify(prev, snap, "")
	m.log.Info("session.connect", "session_id", sessionID, "generation", gen)

	auth, err := m.creds.Load(ctx, sessionID)
	if err != nil {
		return m.errored(sessionID, gen, fmt.Errorf("credential load: %w", err)), err
	}

	conn, err := m.dialer.Open(ctx, transport.OpenInput{
		SessionID: sessionID,
		Auth:      auth,
		Handler:   &connHandler{m: m, sessionID: sessionID, generation: gen},
	})
	if err != nil {
		return m.errored(sessionID, gen, fmt.Errorf("transport open: %w", err)), err
	}

	snap = m.reg.Update(sessionID, func(rec *Record) {
		rec.Conn = conn
	})
	return snap, nil
}

func (m *Manager) disconnectLocked(ctx context.Context, sessionID string) Snapshot {
	conn, _, _ := m.reg.handle(sessionID)

	var prev Status
	// Generation bump marks the transition explicit before the handle is
	// cleared, so late close events and pending reconnect timers go stale.
	snap := m.reg.Update(sessionID, func(rec *Record) {
		prev = rec.Status
		rec.Generation++
		rec.Conn = nil
		rec.Pairing = nil
		rec.Identity = nil
		rec.Status = StatusDisconnected
	})
	m.notify(prev, snap, "explicit")

	if conn != nil {
		if err := conn.Logout(ctx); err != nil {
			m.log.Warn("session.logout.fail", "session_id", sessionID, "err", err)
		}
	}
	m.log.Info("session.disconnect", "session_id", sessionID)
	return snap
}

// errored moves the session to Errored (no auto-retry) unless the
// generation moved on while we were failing.
func (m *Manager) errored(sessionID string, gen uint64, cause error) Snapshot {
	var prev Status
	snap := m.reg.Update(sessionID, func(rec *Record) {
		prev = rec.Status
		if rec.Generation != gen {
			return
		}
		rec.Status = StatusErrored
		rec.Conn = nil
		rec.Pairing = nil
		rec.Identity = nil
		rec.LastError = cause.Error()
	})
	if snap.Status == StatusErrored {
		m.notify(prev, snap, snap.LastError)
		m.log.Error("session.errored", "session_id", sessionID, "err", cause)
	}
	return snap
}

func (m *Manager) liveConn(sessionID string) (transport.Conn, error) {
	conn, status, ok := m.reg.handle(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	if status != StatusConnected || conn == nil {
		return nil, ErrNotConnected
	}
	return conn, nil
}

func (m *Manager) opLock(sessionID string) *sync.Mutex {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if l, ok := m.ops[sessionID]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.ops[sessionID] = l
	return l
}

func (m *Manager) notify(prev Status, snap Snapshot, cause string) {
	if prev == snap.Status {
		return
	}
	m.metrics.statusChange(prev, snap.Status)
	for _, s := range m.sinks {
		s.SessionStatus(StatusEvent{SessionID: snap.SessionID, Status: snap.Status, Cause: cause})
	}
}

// ---- connection event handling ----

// connHandler routes one connection's events back into the manager,
// pinned to the generation the connection was opened under.
type connHandler struct {
	m          *Manager
	sessionID  string
	generation uint64
}

func (h *connHandler) HandlePairingCode(code string) {
	h.m.onPairingCode(h.sessionID, h.generation, code)
}

func (h *connHandler) HandleConnected(id transport.Identity) {
	h.m.onConnected(h.sessionID, h.generation, id)
}

func (h *connHandler) HandleClosed(cause transport.CloseCause) {
	h.m.onClosed(h.sessionID, h.generation, cause)
}

func (h *connHandler) HandleMessage(msg transport.RawMessage) {
	h.m.onMessage(h.sessionID, msg)
}

func (h *connHandler) HandleCredentials(auth transport.AuthState) {
	h.m.onCredentials(h.sessionID, auth)
}

func (m *Manager) onPairingCode(sessionID string, gen uint64, code string) {
	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if m.stale(sessionID, gen, "pairing_code") {
		return
	}

	image, err := m.render.Render(code)
	if err != nil {
		// Keep the raw code so callers can still pair by typing it.
		m.log.Warn("session.pairing.render.fail", "session_id", sessionID, "err", err)
		image = ""
	}

	var prev Status
	snap := m.reg.Update(sessionID, func(rec *Record) {
		prev = rec.Status
		rec.Status = StatusPairingPending
		rec.Pairing = &PairingChallenge{Code: code, Image: image}
	})
	m.notify(prev, snap, "")
	m.log.Info("session.pairing", "session_id", sessionID)
}

func (m *Manager) onConnected(sessionID string, gen uint64, id transport.Identity) {
	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if m.stale(sessionID, gen, "connected") {
		return
	}

	var prev Status
	snap := m.reg.Update(sessionID, func(rec *Record) {
		prev = rec.Status
		rec.Status = StatusConnected
		rec.Pairing = nil
		rec.Identity = &id
	})
	m.notify(prev, snap, "")
	m.log.Info("session.connected", "session_id", sessionID, "network_id", id.NetworkID, "display_name", id.DisplayName)
}

func (m *Manager) onClosed(sessionID string, gen uint64, cause transport.CloseCause) {
	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if m.stale(sessionID, gen, "closed") {
		return
	}

	var prev Status
	snap := m.reg.Update(sessionID, func(rec *Record) {
		prev = rec.Status
		rec.Conn = nil
		rec.Pairing = nil
		rec.Identity = nil
		rec.Status = StatusDisconnected
	})
	m.notify(prev, snap, cause.String())

	if cause.Terminal() {
		m.log.Info("session.closed.terminal", "session_id", sessionID, "cause", cause.String())
		return
	}

	m.log.Info("session.closed.retrying", "session_id", sessionID, "cause", cause.String(), "delay", m.reconnectDelay)
	m.metrics.reconnectScheduled()
	time.AfterFunc(m.reconnectDelay, func() {
		m.retry(sessionID, gen)
	})
}

// retry is the deferred reconnect task. It re-checks current state under
// the per-session lock: the generation comparison catches explicit
// disconnects and manual reconnects that happened during the delay.
func (m *Manager) retry(sessionID string, gen uint64) {
	lock := m.opLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snap, ok := m.reg.Get(sessionID)
	if !ok {
		return
	}
	conn, _, _ := m.reg.handle(sessionID)
	if snap.Generation != gen || snap.Status != StatusDisconnected || conn != nil {
		m.log.Debug("session.reconnect.stale", "session_id", sessionID, "generation", gen)
		return
	}

	m.log.Info("session.reconnect", "session_id", sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	defer cancel()

	if _, err := m.connectLocked(ctx, sessionID); err != nil {
		// connectLocked already moved the session to Errored and logged.
		// No retry chain from here: Errored requires explicit reconnect.
		return
	}
}

func (m *Manager) onMessage(sessionID string, msg transport.RawMessage) {
	env, ok := Translate(sessionID, msg)
	if !ok {
		return
	}
	m.metrics.inboundAccepted()

	snap, ok := m.reg.Get(sessionID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	defer cancel()

	outcome := m.disp.Dispatch(ctx, snap.Webhook, env)
	m.metrics.dispatched(outcome)
}

func (m *Manager) onCredentials(sessionID string, auth transport.AuthState) {
	auth.SessionID = sessionID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.creds.Save(ctx, auth); err != nil {
		m.log.Error("session.credentials.save.fail", "session_id", sessionID, "err", err)
	}
}

// stale reports whether an event belongs to a superseded generation.
func (m *Manager) stale(sessionID string, gen uint64, event string) bool {
	snap, ok := m.reg.Get(sessionID)
	if !ok {
		return true
	}
	if snap.Generation != gen {
		m.log.Debug("session.event.stale", "session_id", sessionID, "event", event, "generation", gen)
		return true
	}
	return false
}
