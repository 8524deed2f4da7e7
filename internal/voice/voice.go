// Package voice triggers outbound voice-call campaigns through a batch
// calling provider and keeps the stored batch status in sync.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Constants for the batch calling provider API.
const (
	// DefaultBaseURL is the batch calling provider endpoint prefix.
	DefaultBaseURL = "https://api.elevenlabs.io"
	// DefaultHTTPTimeout bounds every provider API call.
	DefaultHTTPTimeout = 30 * time.Second
)

// Opts holds configuration options for the provider client.
type Opts struct {
	APIKey       string
	AgentID      string
	AgentPhoneID string
	BaseURL      string
	HTTPClient   *http.Client
}

// Option defines a configuration option for the provider client.
type Option func(*Opts)

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithAgentID sets the conversational agent used for the calls.
func WithAgentID(id string) Option {
	return func(o *Opts) {
		o.AgentID = id
	}
}

// WithAgentPhoneID sets the provider phone number the calls originate from.
func WithAgentPhoneID(id string) Option {
	return func(o *Opts) {
		o.AgentPhoneID = id
	}
}

// WithBaseURL overrides the provider endpoint (used in tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = c
	}
}

// Recipient is one callee in a batch submission.
type Recipient struct {
	PhoneNumber string `json:"phone_number"`
}

// BatchInfo is the provider's view of one submitted batch.
type BatchInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Client calls the batch calling provider API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	agentID      string
	agentPhoneID string
}

// NewClient creates a provider client. The API key, agent id, and agent phone
// id fall back to the ELEVENLABS_API_KEY, ELEVENLABS_AGENT_ID, and
// ELEVENLABS_PHONE_ID environment variables.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if cfg.AgentID == "" {
		cfg.AgentID = os.Getenv("ELEVENLABS_AGENT_ID")
	}
	if cfg.AgentPhoneID == "" {
		cfg.AgentPhoneID = os.Getenv("ELEVENLABS_PHONE_ID")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("voice provider API key not set")
	}
	if cfg.AgentID == "" || cfg.AgentPhoneID == "" {
		return nil, fmt.Errorf("voice provider agent id and phone id must be set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{
		httpClient:   cfg.HTTPClient,
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		agentID:      cfg.AgentID,
		agentPhoneID: cfg.AgentPhoneID,
	}, nil
}

// CreateBatchCall submits one calling batch and returns the provider job id.
func (c *Client) CreateBatchCall(ctx context.Context, name string, recipients []Recipient) (string, error) {
	payload := map[string]interface{}{
		"call_name":             name,
		"agent_id":              c.agentID,
		"agent_phone_number_id": c.agentPhoneID,
		"recipients":            recipients,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch payload: %w", err)
	}

	url := c.baseURL + "/v1/convai/batch-calling/submit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit batch: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("batch submission failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var info BatchInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return "", fmt.Errorf("failed to decode batch response: %w", err)
	}
	if info.ID == "" {
		return "", fmt.Errorf("batch response missing job id")
	}
	slog.Info("voice batch submitted", "jobID", info.ID, "recipients", len(recipients))
	return info.ID, nil
}

// GetBatchInfo fetches the current status of a submitted batch.
func (c *Client) GetBatchInfo(ctx context.Context, jobID string) (*BatchInfo, error) {
	url := fmt.Sprintf("%s/v1/convai/batch-calling/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch status: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("batch status fetch failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var info BatchInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("failed to decode batch status: %w", err)
	}
	return &info, nil
}
