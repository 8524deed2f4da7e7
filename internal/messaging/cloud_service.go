package messaging

import (
	"context"

	"github.com/evinta/rsvpd/internal/whatsapp"
)

// CloudService implements Gateway using the WhatsApp Cloud API client.
type CloudService struct {
	client *whatsapp.Client
}

// NewCloudService creates a Gateway backed by the Cloud API client.
func NewCloudService(client *whatsapp.Client) *CloudService {
	return &CloudService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number to its digits-only form.
func (s *CloudService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

// SendText sends a plain text message via the Cloud API.
func (s *CloudService) SendText(ctx context.Context, to, body string) error {
	return s.client.SendText(ctx, to, body)
}

// SendTemplate sends a templated message via the Cloud API.
func (s *CloudService) SendTemplate(ctx context.Context, to, template string, params []string) error {
	return s.client.SendTemplate(ctx, to, template, params)
}
