package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesystemStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFilesystemStore(WithBaseDir(dir), WithBaseURL("/uploads"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := s.Store(context.Background(), "e1", "p1", "passport.jpg", []byte("image-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/e1/p1/") || !strings.HasSuffix(url, "_passport.jpg") {
		t.Errorf("url = %q, want /uploads/e1/p1/<ts>_passport.jpg", url)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "e1", "p1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, "e1", "p1", entries[0].Name()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Error("stored content mismatch")
	}
}

func TestFilesystemStoreSanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFilesystemStore(WithBaseDir(dir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	url, err := s.Store(context.Background(), "e1", "p1", "../../etc/pass wd?.jpg", []byte("x"), "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(url, "..") {
		t.Errorf("url %q leaks path traversal", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "e1", "p1")); err != nil {
		t.Errorf("file not stored under the event/participant directory: %v", err)
	}
}
