package messaging

import (
	"context"
	"testing"
)

func TestCanonicalizePhoneNumber(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 123-4567", "15551234567", false},
		{"15551234567", "15551234567", false},
		{"whatsapp:+15551234567", "15551234567", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true}, // below minimum digit count
	}
	for _, c := range cases {
		got, err := canonicalizePhoneNumber(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhoneNumber(%q) succeeded, want error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhoneNumber(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("canonicalizePhoneNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMockGatewayFailureModes(t *testing.T) {
	m := NewMockGateway()
	ctx := context.Background()

	m.FailNext = true
	if err := m.SendText(ctx, "15551234567", "hello"); err == nil {
		t.Error("FailNext should fail the first send")
	}
	if err := m.SendText(ctx, "15551234567", "hello"); err != nil {
		t.Errorf("second send should succeed: %v", err)
	}
	if last := m.LastSent(); last == nil || last.Body != "hello" {
		t.Error("successful send not recorded")
	}

	if err := m.SendTemplate(ctx, "15551234567", "rsvp_invite", []string{"Asha"}); err != nil {
		t.Errorf("template send failed: %v", err)
	}
	if last := m.LastSent(); last.Template != "rsvp_invite" {
		t.Errorf("template send not recorded: %+v", last)
	}
}
