package session

import (
	"strings"

	"courier/cmd/internal/transport"
	"courier/cmd/internal/webhook"
)

// Translate turns a raw inbound message into a webhook envelope.
//
// It reports false for traffic that must not reach the webhook: self-sent
// messages and non-notify batches. It never touches the registry.
func Translate(sessionID string, msg transport.RawMessage) (webhook.Envelope, bool) {
	if msg.FromMe {
		return webhook.Envelope{}, false
	}
	if msg.Kind != notifyKind {
		return webhook.Envelope{}, false
	}

	return webhook.Envelope{
		SessionID:   sessionID,
		From:        NormalizeAddress(msg.From),
		To:          msg.To,
		Text:        extractText(msg),
		Timestamp:   msg.Timestamp,
		MessageID:   msg.MessageID,
		ContactName: msg.PushName,
		Raw:         msg.Payload,
	}, true
}

// extractText derives the text body from the first populated content
// variant. A message with no known variant yields "", never an absent field.
func extractText(msg transport.RawMessage) string {
	for _, s := range []string{
		msg.Conversation,
		msg.ExtendedText,
		msg.ImageCaption,
		msg.VideoCaption,
	} {
		if s != "" {
			return s
		}
	}
	return ""
}

// NormalizeAddress strips the network-domain suffix from an address:
// "15551234567@s.whatsapp.net" becomes "15551234567". Addresses without a
// suffix pass through unchanged.
func NormalizeAddress(addr string) string {
	if i := strings.IndexByte(addr, '@'); i >= 0 {
		return addr[:i]
	}
	return addr
}
