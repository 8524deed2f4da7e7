// Package docstore persists collected document attachments.
//
// Two backends implement the Storage contract: a filesystem backend that
// writes files under a base directory laid out as eventID/participantID/
// filename and serves them back through the HTTP API, and a bucket-style REST
// backend that uploads objects to a hosted storage service.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Storage persists document payloads and returns a public URL for each.
type Storage interface {
	Store(ctx context.Context, eventID, participantID, filename string, data []byte, contentType string) (string, error)
}

// Opts holds configuration options for the filesystem document store.
type Opts struct {
	BaseDir string
	BaseURL string
}

// Option defines a configuration option for the filesystem document store.
type Option func(*Opts)

// WithBaseDir sets the directory files are written under.
func WithBaseDir(dir string) Option {
	return func(o *Opts) {
		o.BaseDir = dir
	}
}

// WithBaseURL sets the public URL prefix returned for stored files.
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = strings.TrimSuffix(url, "/")
	}
}

// FilesystemStore stores documents on local disk.
type FilesystemStore struct {
	baseDir string
	baseURL string
}

// NewFilesystemStore creates the base directory if needed.
func NewFilesystemStore(opts ...Option) (*FilesystemStore, error) {
	cfg := Opts{BaseDir: "uploads", BaseURL: "/uploads"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	slog.Info("FilesystemStore initialized", "dir", cfg.BaseDir)
	return &FilesystemStore{baseDir: cfg.BaseDir, baseURL: cfg.BaseURL}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store writes the document and returns its public URL. Filenames are
// sanitized and prefixed with a timestamp so repeated uploads never collide.
func (s *FilesystemStore) Store(ctx context.Context, eventID, participantID, filename string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	if filepath.Ext(name) == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			name += exts[0]
		}
	}
	name = fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)

	dir := filepath.Join(s.baseDir, eventID, participantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	slog.Debug("FilesystemStore stored document", "path", path, "bytes", len(data), "contentType", contentType)
	return fmt.Sprintf("%s/%s/%s/%s", s.baseURL, eventID, participantID, name), nil
}

// Dir returns the base directory, used to mount a static file handler.
func (s *FilesystemStore) Dir() string {
	return s.baseDir
}
