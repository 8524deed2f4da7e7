// Package genai provides the generative extraction oracle used as a fallback
// intent and field extractor, backed by the OpenAI API.
//
// The oracle is treated as untrusted: its output must parse as strict JSON or
// the caller falls back to a deterministic reply. Every call is bounded by a
// timeout so a slow provider can never stall the conversation flow.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default configuration values.
const (
	// DefaultModel is the chat model used for extraction calls.
	DefaultModel = openai.ChatModelGPT4oMini
	// DefaultTimeout bounds every oracle call.
	DefaultTimeout = 15 * time.Second
)

// Error variables for better error handling and testability
var (
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrMalformedOutput   = errors.New("oracle output is not well-formed JSON")
)

// Extraction is the strict output contract of the oracle. All fields are
// optional; nil means the oracle did not extract that field.
type Extraction struct {
	Reply      string  `json:"reply"`
	RSVPStatus *string `json:"rsvp_status"`
	GuestCount *int    `json:"guest_count"`
	Notes      *string `json:"notes"`
}

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openAIChatService adapts the OpenAI client to the chatService interface.
type openAIChatService struct {
	client openai.Client
}

func (s *openAIChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the oracle client.
type Opts struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Option defines a configuration option for the oracle client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the chat model used for extraction calls.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// Client wraps the OpenAI chat completion service for extraction calls.
type Client struct {
	chat    chatService
	model   string
	timeout time.Duration
}

// NewClient initializes an oracle client. The API key is taken from options
// or the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	slog.Debug("genai.NewClient: oracle client configured", "model", cfg.Model, "timeout", cfg.Timeout)

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &openAIChatService{client: cli}, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Complete sends a system and user prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("genai.Complete: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractFields sends an extraction prompt and parses the response against the
// strict JSON contract. Malformed output returns ErrMalformedOutput so the
// caller can fall back to a generic clarifying reply.
func (c *Client) ExtractFields(ctx context.Context, systemPrompt, userPrompt string) (*Extraction, error) {
	raw, err := c.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	ex, err := ParseExtraction(raw)
	if err != nil {
		slog.Warn("genai.ExtractFields: discarding malformed oracle output", "error", err, "raw_length", len(raw))
		return nil, err
	}
	slog.Debug("genai.ExtractFields: oracle output parsed",
		"has_rsvp", ex.RSVPStatus != nil, "has_guest_count", ex.GuestCount != nil, "has_notes", ex.Notes != nil)
	return ex, nil
}

// ParseExtraction parses oracle output as strict JSON, tolerating markdown
// code fences some models wrap around JSON bodies.
func ParseExtraction(raw string) (*Extraction, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var ex Extraction
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&ex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return &ex, nil
}
