package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/evinta/rsvpd/internal/twiliowhatsapp"
)

// TwilioService implements Gateway using the Twilio WhatsApp API. Twilio's Go
// SDK has no named-template send for WhatsApp, so SendTemplate renders a plain
// text equivalent from the template parameters.
type TwilioService struct {
	client *twiliowhatsapp.Client
}

// NewTwilioService creates a Gateway backed by the Twilio client.
func NewTwilioService(client *twiliowhatsapp.Client) *TwilioService {
	return &TwilioService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number to its digits-only form.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

// SendText sends a plain text message via Twilio.
func (s *TwilioService) SendText(ctx context.Context, to, body string) error {
	return s.client.SendMessage(ctx, to, body)
}

// SendTemplate sends a text rendering of the template via Twilio.
func (s *TwilioService) SendTemplate(ctx context.Context, to, template string, params []string) error {
	name := "there"
	if len(params) > 0 && params[0] != "" {
		name = params[0]
	}
	switch template {
	case "rsvp_invite":
		body := fmt.Sprintf("Hi %s! You're invited. Will you be attending? Reply Yes / No / Maybe.", name)
		return s.client.SendMessage(ctx, to, body)
	default:
		body := fmt.Sprintf("Hi %s! %s", name, strings.Join(params, " "))
		return s.client.SendMessage(ctx, to, body)
	}
}
