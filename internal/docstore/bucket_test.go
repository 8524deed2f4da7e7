package docstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBucketStoreUploadsAndReturnsPublicURL(t *testing.T) {
	var gotPath, gotAuth, gotContentType, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	s, err := NewBucketStore(WithEndpoint(ts.URL), WithBucket("documents"), WithAPIKey("svc-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := s.Store(context.Background(), "e1", "p1", "passport.jpg", []byte("image-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotPath, "/storage/v1/object/documents/e1/p1/") || !strings.HasSuffix(gotPath, "_passport.jpg") {
		t.Errorf("upload path = %q, want /storage/v1/object/documents/e1/p1/<ts>_passport.jpg", gotPath)
	}
	if gotAuth != "Bearer svc-key" {
		t.Errorf("authorization = %q, want bearer key", gotAuth)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", gotContentType)
	}
	if gotBody != "image-bytes" {
		t.Error("uploaded content mismatch")
	}
	wantPrefix := ts.URL + "/storage/v1/object/public/documents/e1/p1/"
	if !strings.HasPrefix(url, wantPrefix) {
		t.Errorf("url = %q, want prefix %q", url, wantPrefix)
	}
}

func TestBucketStoreServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer ts.Close()

	s, err := NewBucketStore(WithEndpoint(ts.URL), WithBucket("documents"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Store(context.Background(), "e1", "p1", "x.jpg", []byte("x"), "image/jpeg"); err == nil {
		t.Error("non-2xx response must surface an error")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q should carry the status code", err)
	}
}

func TestBucketStoreRequiresEndpointAndBucket(t *testing.T) {
	t.Setenv("DOCSTORE_ENDPOINT", "")
	t.Setenv("DOCSTORE_BUCKET", "")
	if _, err := NewBucketStore(); err == nil {
		t.Error("missing endpoint and bucket must be rejected")
	}
}
