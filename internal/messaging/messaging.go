// Package messaging defines the outbound messaging gateway abstraction.
//
// The gateway performs no internal retries: a failed send is reported to the
// caller, which must treat it as "do not commit state" so a redelivered
// inbound event re-runs identically.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// Gateway is a pluggable outbound message delivery abstraction.
type Gateway interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Returns the canonicalized recipient and an error if
	// validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a plain text message to a recipient.
	SendText(ctx context.Context, to, body string) error

	// SendTemplate sends a pre-approved templated message with parameters.
	SendTemplate(ctx context.Context, to, template string, params []string) error
}

// MinPhoneNumberDigits is the minimum digit count for a valid channel address.
const MinPhoneNumberDigits = 6

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// canonicalizePhoneNumber strips non-digits and validates minimum length.
// Shared by all gateway implementations.
func canonicalizePhoneNumber(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinPhoneNumberDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneNumberDigits)
	}
	if recipient != canonical {
		slog.Debug("messaging canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
