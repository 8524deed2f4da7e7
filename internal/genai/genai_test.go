package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
)

// mockChatService returns a canned completion or error.
type mockChatService struct {
	content string
	err     error
	choices int
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	if m.err != nil {
		return openai.ChatCompletion{}, m.err
	}
	completion := openai.ChatCompletion{}
	for i := 0; i < m.choices; i++ {
		choice := openai.ChatCompletionChoice{}
		choice.Message.Content = m.content
		completion.Choices = append(completion.Choices, choice)
	}
	return completion, nil
}

func newTestClient(chat chatService) *Client {
	return &Client{chat: chat, model: DefaultModel, timeout: time.Second}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("NewClient() without API key should fail")
	}
	if _, err := NewClient(WithAPIKey("test-key")); err != nil {
		t.Errorf("NewClient(WithAPIKey) failed: %v", err)
	}
}

func TestComplete(t *testing.T) {
	c := newTestClient(&mockChatService{content: "hello", choices: 1})
	got, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete() = %q, want %q", got, "hello")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := newTestClient(&mockChatService{choices: 0})
	if _, err := c.Complete(context.Background(), "system", "user"); !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("Complete() error = %v, want ErrNoChoicesReturned", err)
	}
}

func TestExtractFields(t *testing.T) {
	raw := `{"reply":"Great, see you there!","rsvp_status":"Yes","guest_count":2,"notes":null}`
	c := newTestClient(&mockChatService{content: raw, choices: 1})
	ex, err := c.ExtractFields(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Reply != "Great, see you there!" {
		t.Errorf("Reply = %q", ex.Reply)
	}
	if ex.RSVPStatus == nil || *ex.RSVPStatus != "Yes" {
		t.Error("RSVPStatus not extracted")
	}
	if ex.GuestCount == nil || *ex.GuestCount != 2 {
		t.Error("GuestCount not extracted")
	}
	if ex.Notes != nil {
		t.Error("Notes should be nil")
	}
}

func TestExtractFieldsMalformed(t *testing.T) {
	c := newTestClient(&mockChatService{content: "sure, sounds good!", choices: 1})
	if _, err := c.ExtractFields(context.Background(), "system", "user"); !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("ExtractFields() error = %v, want ErrMalformedOutput", err)
	}
}

func TestParseExtractionStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"reply\":\"ok\",\"rsvp_status\":null,\"guest_count\":null,\"notes\":\"veg\"}\n```"
	ex, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Reply != "ok" {
		t.Errorf("Reply = %q, want ok", ex.Reply)
	}
	if ex.Notes == nil || *ex.Notes != "veg" {
		t.Error("Notes not extracted from fenced JSON")
	}
}

func TestParseExtractionRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", "{truncated"} {
		if _, err := ParseExtraction(raw); !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("ParseExtraction(%q) error = %v, want ErrMalformedOutput", raw, err)
		}
	}
}
