package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/evinta/rsvpd/internal/whatsapp"
)

// MaxWebhookBodyBytes caps webhook payload reads.
const MaxWebhookBodyBytes = 1 << 20

// webhookHandler serves the provider webhook: GET is the subscription
// verification handshake, POST delivers inbound message events.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	challenge, ok := whatsapp.VerifySubscription(r.URL.Query(), s.verifyToken)
	if !ok {
		slog.Warn("Server.verifyWebhook: verification rejected", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusForbidden)
		return
	}
	slog.Info("Server.verifyWebhook: subscription verified")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Server.verifyWebhook: failed to write challenge", "error", err)
	}
}

// receiveWebhook runs every inbound message through the conversation engine.
// Engine errors (storage failures) produce a failed acknowledgment so the
// provider may redeliver; everything else is acknowledged with 200.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBodyBytes))
	if err != nil {
		slog.Warn("Server.receiveWebhook: failed to read body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	messages, err := whatsapp.ParseWebhook(body)
	if err != nil {
		// Malformed payloads are acknowledged: redelivery cannot fix them.
		slog.Warn("Server.receiveWebhook: failed to parse payload", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, msg := range messages {
		if err := s.engine.HandleInbound(r.Context(), msg); err != nil {
			slog.Error("Server.receiveWebhook: engine failed", "from", msg.From, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
