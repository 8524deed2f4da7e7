// Package whatsapp wraps the WhatsApp Cloud API (Meta Graph) for rsvpd.
//
// It provides methods for sending text and template messages and for
// resolving and downloading provider-hosted media.
package whatsapp

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

// Constants for WhatsApp Cloud API configuration
const (
	// DefaultBaseURL is the Graph API endpoint prefix including the API version.
	DefaultBaseURL = "https://graph.facebook.com/v21.0"
	// DefaultHTTPTimeout bounds every Graph API call.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultTemplateLanguage is the language code used for template sends.
	DefaultTemplateLanguage = "en_US"
	// MaxMediaDownloadBytes caps document downloads to keep memory bounded.
	MaxMediaDownloadBytes = 25 << 20
)

// Opts holds configuration options for the Cloud API client.
type Opts struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	HTTPClient    *http.Client
}

// Option defines a configuration option for the Cloud API client.
type Option func(*Opts)

// WithAccessToken sets the Graph API bearer token.
func WithAccessToken(token string) Option {
	return func(o *Opts) {
		o.AccessToken = token
	}
}

// WithPhoneNumberID sets the sending phone number id.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) {
		o.PhoneNumberID = id
	}
}

// WithBaseURL overrides the Graph API endpoint (used in tests).
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

// Client is a WhatsApp Cloud API client bound to one sending phone number.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	accessToken   string
	phoneNumberID string
}

// NewClient creates a Cloud API client, applying any provided options.
// The access token and phone number id fall back to the WHATSAPP_TOKEN and
// PHONE_NUMBER_ID environment variables.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("WHATSAPP_TOKEN")
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("PHONE_NUMBER_ID")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("whatsapp access token not set")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number id not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	slog.Debug("whatsapp.NewClient: Cloud API client configured", "base_url", cfg.BaseURL, "phone_number_id_set", cfg.PhoneNumberID != "")
	return &Client{
		httpClient:    cfg.HTTPClient,
		baseURL:       cfg.BaseURL,
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
	}, nil
}

// textMessage is the Cloud API payload for a plain text send.
type textMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textContent `json:"text"`
}

type textContent struct {
	Body string `json:"body"`
}

// templateMessage is the Cloud API payload for a template send.
type templateMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templateContent `json:"template"`
}

type templateContent struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendText sends a plain text message. There are no internal retries; the
// caller decides whether a failed send may be retried.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if body == "" {
		return fmt.Errorf("message body cannot be empty")
	}
	payload := textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textContent{Body: body},
	}
	if err := c.postMessage(ctx, payload); err != nil {
		slog.Error("whatsapp.SendText failed", "error", err, "to", to)
		return fmt.Errorf("failed to send text to %s: %w", to, err)
	}
	slog.Debug("whatsapp.SendText succeeded", "to", to, "body_length", len(body))
	return nil
}

// SendTemplate sends a pre-approved template message with body parameters.
func (c *Client) SendTemplate(ctx context.Context, to, name string, params []string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	tpl := templateContent{
		Name:     name,
		Language: templateLanguage{Code: DefaultTemplateLanguage},
	}
	if len(params) > 0 {
		component := templateComponent{Type: "body"}
		for _, p := range params {
			component.Parameters = append(component.Parameters, templateParameter{Type: "text", Text: p})
		}
		tpl.Components = []templateComponent{component}
	}
	payload := templateMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template:         tpl,
	}
	if err := c.postMessage(ctx, payload); err != nil {
		slog.Error("whatsapp.SendTemplate failed", "error", err, "to", to, "template", name)
		return fmt.Errorf("failed to send template %s to %s: %w", name, to, err)
	}
	slog.Debug("whatsapp.SendTemplate succeeded", "to", to, "template", name)
	return nil
}

// postMessage posts a payload to the messages endpoint of the sending number.
func (c *Client) postMessage(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// mediaInfo is the Graph API response for a media id lookup.
type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// ResolveMediaURL looks up the download URL for a provider media id.
func (c *Client) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	if mediaID == "" {
		return "", fmt.Errorf("media id cannot be empty")
	}
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("whatsapp.ResolveMediaURL request failed", "error", err, "media_id", mediaID)
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media lookup returned %d", resp.StatusCode)
	}
	var info mediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode media info: %w", err)
	}
	if info.URL == "" {
		return "", fmt.Errorf("media lookup returned no url for %s", mediaID)
	}
	slog.Debug("whatsapp.ResolveMediaURL succeeded", "media_id", mediaID)
	return info.URL, nil
}

// DownloadMedia fetches media bytes from a previously resolved URL. The
// returned content type comes from the response header.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("whatsapp.DownloadMedia request failed", "error", err)
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxMediaDownloadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	slog.Debug("whatsapp.DownloadMedia succeeded", "bytes", len(data), "content_type", contentType)
	return data, contentType, nil
}
