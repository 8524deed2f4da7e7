package whatsapp

import (
	"net/url"
	"testing"

	"github.com/evinta/rsvpd/internal/models"
)

func TestParseWebhookTextMessage(t *testing.T) {
	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"from": "15551234567",
						"type": "text",
						"text": {"body": "Yes definitely"}
					}]
				}
			}]
		}]
	}`)
	messages, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	m := messages[0]
	if m.From != "15551234567" || m.Type != models.MessageTypeText || m.Body() != "Yes definitely" {
		t.Errorf("decoded message mismatch: %+v", m)
	}
	if m.Media() != nil {
		t.Error("text message should carry no media")
	}
}

func TestParseWebhookImageMessage(t *testing.T) {
	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"from": "15551234567",
						"type": "image",
						"image": {"id": "media-123", "mime_type": "image/jpeg"}
					}]
				}
			}]
		}]
	}`)
	messages, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	media := messages[0].Media()
	if media == nil || media.ID != "media-123" {
		t.Errorf("media not decoded: %+v", messages[0])
	}
}

func TestParseWebhookStatusUpdateYieldsNoMessages(t *testing.T) {
	body := []byte(`{"entry": [{"changes": [{"value": {"statuses": [{"id": "x"}]}}]}]}`)
	messages, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("status-only payload should yield no messages, got %d", len(messages))
	}
}

func TestParseWebhookMalformed(t *testing.T) {
	if _, err := ParseWebhook([]byte("not json")); err == nil {
		t.Error("malformed payload should fail")
	}
}

func TestVerifySubscription(t *testing.T) {
	query := url.Values{}
	query.Set("hub.mode", "subscribe")
	query.Set("hub.verify_token", "secret")
	query.Set("hub.challenge", "12345")

	challenge, ok := VerifySubscription(query, "secret")
	if !ok || challenge != "12345" {
		t.Errorf("VerifySubscription = (%q, %v), want (12345, true)", challenge, ok)
	}

	if _, ok := VerifySubscription(query, "other"); ok {
		t.Error("mismatched token must be rejected")
	}
	if _, ok := VerifySubscription(query, ""); ok {
		t.Error("empty configured token must reject all requests")
	}

	query.Set("hub.mode", "unsubscribe")
	if _, ok := VerifySubscription(query, "secret"); ok {
		t.Error("non-subscribe mode must be rejected")
	}
}
