// Package webhook forwards inbound-message envelopes to per-session
// operator endpoints.
//
// Delivery contract: at most one attempt per envelope. Failures are logged
// and swallowed here so they can never disturb the transport event loop.
// Reliable delivery is explicitly not offered.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	// TokenHeader carries the per-session webhook token on every POST.
	TokenHeader = "X-Webhook-Token"

	defaultTimeout = 10 * time.Second
)

// Envelope is the normalized inbound-message notification body.
type Envelope struct {
	SessionID   string          `json:"sessionId"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Text        string          `json:"text"`
	Timestamp   time.Time       `json:"timestamp"`
	MessageID   string          `json:"messageId"`
	ContactName string          `json:"contactName,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Target is the per-session delivery configuration.
// Both fields must be set for delivery to happen; a partially configured
// target is a valid operating mode (skip), not an error.
type Target struct {
	URL   string
	Token string
}

// Configured reports whether the target is complete enough to deliver to.
func (t Target) Configured() bool {
	return t.URL != "" && t.Token != ""
}

// Outcome classifies a dispatch attempt for metrics and tests.
type Outcome string

const (
	OutcomeSkipped Outcome = "skip"
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "fail"
)

// Dispatcher issues single-attempt webhook POSTs.
type Dispatcher struct {
	log    *slog.Logger
	client *http.Client
}

// NewDispatcher constructs a Dispatcher. A nil client gets a default with a
// hard timeout so a slow endpoint cannot pin a session's event handling.
func NewDispatcher(log *slog.Logger, client *http.Client) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Dispatcher{log: log, client: client}
}

// Dispatch POSTs the envelope to the target exactly once.
// It never returns an error: every failure mode is logged and reported as
// an Outcome only.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, env Envelope) Outcome {
	if !target.Configured() {
		d.log.Debug("webhook.skip.unconfigured", "session_id", env.SessionID)
		return OutcomeSkipped
	}

	body, err := json.Marshal(env)
	if err != nil {
		d.log.Error("webhook.encode.fail", "session_id", env.SessionID, "err", err)
		return OutcomeFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		d.log.Error("webhook.request.fail", "session_id", env.SessionID, "err", err)
		return OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set(TokenHeader, target.Token)

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("webhook.dispatch.fail", "session_id", env.SessionID, "message_id", env.MessageID, "err", err)
		return OutcomeFailed
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.log.Warn("webhook.dispatch.fail",
			"session_id", env.SessionID,
			"message_id", env.MessageID,
			"status", resp.StatusCode,
		)
		return OutcomeFailed
	}

	d.log.Debug("webhook.dispatch.ok", "session_id", env.SessionID, "message_id", env.MessageID, "status", resp.StatusCode)
	return OutcomeOK
}
