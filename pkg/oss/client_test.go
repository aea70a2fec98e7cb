package oss

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUpload(t *testing.T) {
	var gotPath, gotACL, gotAuth string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotACL = r.Header.Get("x-oss-object-acl")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{
		Endpoint:        server.URL,
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		AccessKeySecret: "test-secret",
	})
	// The test server has no virtual-hosted DNS, so redirect requests there
	// no matter what bucket host the client constructed.
	client.httpClient = &http.Client{
		Transport: rewriteHost{base: server.URL},
		Timeout:   5 * time.Second,
	}

	publicURL, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("media-bytes"), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/audio/") {
		t.Errorf("expected key under audio/, got %q", gotPath)
	}
	if !strings.HasSuffix(gotPath, ".mp4") {
		t.Errorf("expected original extension kept, got %q", gotPath)
	}
	if gotACL != "public-read" {
		t.Errorf("expected public-read ACL, got %q", gotACL)
	}
	if !strings.HasPrefix(gotAuth, "OSS test-key:") {
		t.Errorf("unexpected authorization header %q", gotAuth)
	}
	if string(gotBody) != "media-bytes" {
		t.Errorf("unexpected body %q", gotBody)
	}
	if !strings.Contains(publicURL, "test-bucket.") {
		t.Errorf("expected virtual-hosted public URL, got %q", publicURL)
	}
	if !strings.Contains(publicURL, "/audio/") {
		t.Errorf("expected key in public URL, got %q", publicURL)
	}
}

func TestUploadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("AccessDenied"))
	}))
	defer server.Close()

	client := NewClient(Config{
		Endpoint:        server.URL,
		Bucket:          "test-bucket",
		AccessKeyID:     "k",
		AccessKeySecret: "s",
	})
	client.httpClient = &http.Client{
		Transport: rewriteHost{base: server.URL},
		Timeout:   5 * time.Second,
	}

	_, err := client.Upload(context.Background(), "clip.mp4", strings.NewReader("x"), 1)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "AccessDenied") {
		t.Errorf("expected server detail in error, got %v", err)
	}
}

func TestObjectKeyUniqueness(t *testing.T) {
	client := NewClient(Config{Endpoint: "https://oss.example.com", Bucket: "b"})

	a := client.objectKey("same.mp4")
	b := client.objectKey("same.mp4")
	if a == b {
		t.Errorf("expected distinct keys for repeated names, got %q twice", a)
	}
}

func TestObjectKeyDefaultExtension(t *testing.T) {
	client := NewClient(Config{Endpoint: "https://oss.example.com", Bucket: "b"})

	key := client.objectKey("noext")
	if !strings.HasSuffix(key, ".mp4") {
		t.Errorf("expected .mp4 default extension, got %q", key)
	}
}

// rewriteHost redirects every request to the test server regardless of the
// virtual-hosted bucket host the client constructed.
type rewriteHost struct {
	base string
}

func (rt rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	target := strings.TrimPrefix(rt.base, "http://")
	req.URL.Scheme = "http"
	req.URL.Host = target
	return http.DefaultTransport.RoundTrip(req)
}
