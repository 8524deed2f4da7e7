package messaging

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage records one outbound send made through the mock gateway.
type SentMessage struct {
	To       string
	Body     string
	Template string
	Params   []string
}

// MockGateway implements Gateway for tests. It records sends and can be
// configured to fail.
type MockGateway struct {
	mu       sync.Mutex
	Sent     []SentMessage
	FailNext bool
	FailAll  bool
}

// NewMockGateway creates an empty mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// ValidateAndCanonicalizeRecipient applies the shared phone canonicalization.
func (m *MockGateway) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

// SendText records the send, or fails if configured to.
func (m *MockGateway) SendText(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll || m.FailNext {
		m.FailNext = false
		return fmt.Errorf("mock gateway send failure")
	}
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	return nil
}

// SendTemplate records the templated send, or fails if configured to.
func (m *MockGateway) SendTemplate(ctx context.Context, to, template string, params []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll || m.FailNext {
		m.FailNext = false
		return fmt.Errorf("mock gateway send failure")
	}
	m.Sent = append(m.Sent, SentMessage{To: to, Template: template, Params: params})
	return nil
}

// LastSent returns the most recent recorded send, or nil when none exist.
func (m *MockGateway) LastSent() *SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	last := m.Sent[len(m.Sent)-1]
	return &last
}
