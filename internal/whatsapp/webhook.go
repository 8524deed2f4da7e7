// Package whatsapp provides webhook payload parsing and the verification
// handshake for the Cloud API.
package whatsapp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/evinta/rsvpd/internal/models"
)

// webhookPayload mirrors the Cloud API webhook envelope. Only the message
// fields the engine inspects are decoded.
type webhookPayload struct {
	Entry []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Messages []models.InboundMessage `json:"messages"`
}

// ParseWebhook decodes a webhook POST body into the inbound message events it
// carries. Payloads without messages (status updates, etc.) yield an empty
// slice, not an error.
func ParseWebhook(body []byte) ([]models.InboundMessage, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	var messages []models.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			messages = append(messages, change.Value.Messages...)
		}
	}
	slog.Debug("whatsapp.ParseWebhook decoded payload", "messages", len(messages))
	return messages, nil
}

// VerifySubscription implements the webhook verification handshake: a GET
// request carrying hub.mode, hub.verify_token, and hub.challenge query
// parameters. It returns the challenge to echo back when the token matches.
func VerifySubscription(query url.Values, verifyToken string) (string, bool) {
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "subscribe" && verifyToken != "" && token == verifyToken {
		slog.Info("whatsapp.VerifySubscription: webhook verified")
		return challenge, true
	}
	slog.Warn("whatsapp.VerifySubscription: verification rejected", "mode", mode, "token_matched", token == verifyToken)
	return "", false
}
