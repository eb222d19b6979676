package api

import (
	"time"

	"courier/cmd/internal/session"
)

type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

type webhookRequest struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

type sendTextRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type sendMediaRequest struct {
	To         string `json:"to"`
	DataBase64 string `json:"data_base64"`
	MimeType   string `json:"mime_type"`
	Caption    string `json:"caption"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

type qrResponse struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	Image     string `json:"image"`
}

type identityView struct {
	NetworkID   string `json:"network_id"`
	DisplayName string `json:"display_name"`
}

// sessionView is the read model for one session. The webhook token is never
// echoed back; only whether forwarding is configured.
type sessionView struct {
	SessionID  string        `json:"session_id"`
	Status     string        `json:"status"`
	Identity   *identityView `json:"identity,omitempty"`
	WebhookURL string        `json:"webhook_url,omitempty"`
	WebhookSet bool          `json:"webhook_configured"`
	HasPairing bool          `json:"pairing_pending"`
	LastError  string        `json:"last_error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type sessionListResponse struct {
	Sessions []sessionView `json:"sessions"`
}

func viewOf(s session.Snapshot) sessionView {
	v := sessionView{
		SessionID:  s.SessionID,
		Status:     string(s.Status),
		WebhookURL: s.Webhook.URL,
		WebhookSet: s.Webhook.Configured(),
		HasPairing: s.Pairing != nil,
		LastError:  s.LastError,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Identity != nil {
		v.Identity = &identityView{
			NetworkID:   s.Identity.NetworkID,
			DisplayName: s.Identity.DisplayName,
		}
	}
	return v
}
