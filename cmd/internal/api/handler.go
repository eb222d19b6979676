// Package api is the thin HTTP surface over the session registry and
// lifecycle manager. It only translates JSON requests into manager calls;
// all lifecycle semantics live in the session package.
package api

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"courier/cmd/internal/session"
	"courier/cmd/internal/transport"
	"courier/cmd/internal/webhook"
)

// Handler serves the /v1 session API.
type Handler struct {
	log     *slog.Logger
	mgr     *session.Manager
	cfg     Config
	limiter *RateLimiter
}

// NewHandler constructs the API handler.
func NewHandler(log *slog.Logger, mgr *session.Manager, cfg Config) (*Handler, error) {
	if mgr == nil {
		return nil, errors.New("api: nil manager")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		log:     log,
		mgr:     mgr,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RateEvents, cfg.RateWindow),
	}, nil
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", h.auth(h.handleCreate))
	mux.HandleFunc("GET /v1/sessions", h.auth(h.handleList))
	mux.HandleFunc("GET /v1/sessions/{id}", h.auth(h.handleGet))
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.auth(h.handleDelete))
	mux.HandleFunc("GET /v1/sessions/{id}/qr", h.auth(h.handleQR))
	mux.HandleFunc("PUT /v1/sessions/{id}/webhook", h.auth(h.handleWebhook))
	mux.HandleFunc("POST /v1/sessions/{id}/connect", h.auth(h.handleConnect))
	mux.HandleFunc("POST /v1/sessions/{id}/disconnect", h.auth(h.handleDisconnect))
	mux.HandleFunc("POST /v1/sessions/{id}/send", h.auth(h.rateLimited(h.handleSendText)))
	mux.HandleFunc("POST /v1/sessions/{id}/send/media", h.auth(h.rateLimited(h.handleSendMedia)))
}

// ---- middleware ----

func (h *Handler) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.Token == "" {
			next(w, r)
			return
		}

		got := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(got, prefix) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(got, prefix))

		if subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		next(w, r)
	}
}

func (h *Handler) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow(clientKey(r), time.Now().UTC()) {
			writeRateLimited(w, h.limiter.Window())
			return
		}
		next(w, r)
	}
}

// ---- handlers ----

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id is required")
		return
	}

	snap := h.mgr.Registry().GetOrCreate(id)
	writeJSON(w, http.StatusCreated, viewOf(snap))
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	snaps := h.mgr.Registry().List()
	out := sessionListResponse{Sessions: make([]sessionView, 0, len(snaps))}
	for _, s := range snaps {
		out.Sessions = append(out.Sessions, viewOf(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.mgr.Registry().Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(snap))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.mgr.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown session")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", "delete failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, ok := h.mgr.Registry().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	if snap.Pairing == nil {
		writeError(w, http.StatusNotFound, "no_pairing", "no pairing challenge pending")
		return
	}
	writeJSON(w, http.StatusOK, qrResponse{
		SessionID: id,
		Code:      snap.Pairing.Code,
		Image:     snap.Pairing.Image,
	})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	snap, err := h.mgr.SetWebhook(r.PathValue("id"), webhook.Target{
		URL:   strings.TrimSpace(req.URL),
		Token: strings.TrimSpace(req.Token),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(snap))
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	snap, err := h.mgr.Connect(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		// Session is Errored; the snapshot carries the failure for status
		// queries, and the caller learns it failed here.
		h.log.Warn("api.connect.fail", "session_id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusBadGateway, "connect_failed", "connection setup failed")
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(snap))
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	snap, err := h.mgr.Disconnect(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(snap))
}

func (h *Handler) handleSendText(w http.ResponseWriter, r *http.Request) {
	var req sendTextRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	msgID, err := h.mgr.SendText(r.Context(), r.PathValue("id"), req.To, req.Text)
	if err != nil {
		h.writeSendError(w, r.PathValue("id"), err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{MessageID: msgID})
}

func (h *Handler) handleSendMedia(w http.ResponseWriter, r *http.Request) {
	var req sendMediaRequest
	if err := decodeJSON(w, r, h.cfg.MaxMediaBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_media", "data_base64 is not valid base64")
		return
	}

	msgID, err := h.mgr.SendMedia(r.Context(), r.PathValue("id"), transport.MediaInput{
		To:       req.To,
		Data:     data,
		MimeType: strings.TrimSpace(req.MimeType),
		Caption:  req.Caption,
	})
	if err != nil {
		h.writeSendError(w, r.PathValue("id"), err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{MessageID: msgID})
}

func (h *Handler) writeSendError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown session")
	case errors.Is(err, session.ErrNotConnected):
		writeError(w, http.StatusConflict, "not_connected", "session has no active connection")
	case errors.Is(err, session.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		h.log.Warn("api.send.fail", "session_id", sessionID, "err", err)
		writeError(w, http.StatusBadGateway, "send_failed", "transport send failed")
	}
}
