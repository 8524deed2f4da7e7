package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBucketHTTPTimeout bounds every storage service call.
const DefaultBucketHTTPTimeout = 30 * time.Second

// BucketOpts holds configuration options for the bucket storage backend.
type BucketOpts struct {
	Endpoint   string
	Bucket     string
	APIKey     string
	HTTPClient *http.Client
}

// BucketOption defines a configuration option for the bucket storage backend.
type BucketOption func(*BucketOpts)

// WithEndpoint sets the storage service base URL.
func WithEndpoint(url string) BucketOption {
	return func(o *BucketOpts) {
		o.Endpoint = strings.TrimSuffix(url, "/")
	}
}

// WithBucket sets the bucket objects are written into.
func WithBucket(name string) BucketOption {
	return func(o *BucketOpts) {
		o.Bucket = name
	}
}

// WithAPIKey sets the storage service API key.
func WithAPIKey(key string) BucketOption {
	return func(o *BucketOpts) {
		o.APIKey = key
	}
}

// WithBucketHTTPClient injects a custom HTTP client.
func WithBucketHTTPClient(c *http.Client) BucketOption {
	return func(o *BucketOpts) {
		o.HTTPClient = c
	}
}

// BucketStore uploads documents to a bucket-style REST storage service and
// returns the service's public object URL.
type BucketStore struct {
	httpClient *http.Client
	endpoint   string
	bucket     string
	apiKey     string
}

// NewBucketStore creates a bucket storage client. The endpoint, bucket, and
// API key fall back to the DOCSTORE_ENDPOINT, DOCSTORE_BUCKET, and
// DOCSTORE_API_KEY environment variables.
func NewBucketStore(opts ...BucketOption) (*BucketStore, error) {
	var cfg BucketOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = strings.TrimSuffix(os.Getenv("DOCSTORE_ENDPOINT"), "/")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = os.Getenv("DOCSTORE_BUCKET")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("DOCSTORE_API_KEY")
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket storage endpoint and bucket must be set")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultBucketHTTPTimeout}
	}
	slog.Info("BucketStore initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &BucketStore{
		httpClient: cfg.HTTPClient,
		endpoint:   cfg.Endpoint,
		bucket:     cfg.Bucket,
		apiKey:     cfg.APIKey,
	}, nil
}

// Store uploads the document to the bucket under eventID/participantID and
// returns the public object URL. Filenames are sanitized and timestamped the
// same way the filesystem backend does it.
func (s *BucketStore) Store(ctx context.Context, eventID, participantID, filename string, data []byte, contentType string) (string, error) {
	name := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	name = fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)
	objectPath := fmt.Sprintf("%s/%s/%s", eventID, participantID, name)

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.endpoint, s.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("storage service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	slog.Debug("BucketStore stored document", "object", objectPath, "bytes", len(data))
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.endpoint, s.bucket, objectPath), nil
}
