package oss

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client stages local media files on an object store and returns a public
// URL the transcription service can fetch.
type Client interface {
	// Upload stores the content under an audio/ key derived from name and
	// returns the public URL of the object.
	Upload(ctx context.Context, name string, content io.Reader, size int64) (string, error)
}

// Config for creating a new object-store client.
type Config struct {
	Endpoint        string // e.g. https://oss-cn-beijing.aliyuncs.com
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	Timeout         time.Duration // Optional, defaults to 1 minute
}

// HTTPClient implements Client against an OSS-compatible endpoint using
// v1 header signing.
type HTTPClient struct {
	endpoint   string
	bucket     string
	keyID      string
	keySecret  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new object-store client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	return &HTTPClient{
		endpoint:  strings.TrimSuffix(cfg.Endpoint, "/"),
		bucket:    cfg.Bucket,
		keyID:     cfg.AccessKeyID,
		keySecret: cfg.AccessKeySecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// Upload PUTs the object with a public-read ACL so the transcription gateway
// can fetch it without credentials.
func (c *HTTPClient) Upload(ctx context.Context, name string, content io.Reader, size int64) (string, error) {
	key := c.objectKey(name)

	httpReq, err := http.NewRequestWithContext(ctx, "PUT", c.objectURL(key), content)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.ContentLength = size

	date := c.now().UTC().Format(http.TimeFormat)
	contentType := "application/octet-stream"

	httpReq.Header.Set("Date", date)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("x-oss-object-acl", "public-read")
	httpReq.Header.Set("Authorization", c.sign("PUT", contentType, date, key))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload object (status %d): %s", resp.StatusCode, string(body))
	}

	return c.objectURL(key), nil
}

// objectKey builds a collision-free key under the audio/ prefix. The
// original extension is kept so the fetcher can sniff the container format.
func (c *HTTPClient) objectKey(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("audio/%d_%s%s", c.now().Unix(), uuid.New().String()[:8], ext)
}

// objectURL builds the virtual-hosted public URL for key.
func (c *HTTPClient) objectURL(key string) string {
	scheme := "https://"
	host := c.endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		scheme = host[:i+3]
		host = host[i+3:]
	}
	return scheme + c.bucket + "." + host + "/" + key
}

// sign produces a v1 header signature for the request.
func (c *HTTPClient) sign(verb, contentType, date, key string) string {
	canonical := strings.Join([]string{
		verb,
		"", // Content-MD5
		contentType,
		date,
		"x-oss-object-acl:public-read",
		"/" + c.bucket + "/" + key,
	}, "\n")

	mac := hmac.New(sha1.New, []byte(c.keySecret))
	mac.Write([]byte(canonical))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return "OSS " + c.keyID + ":" + sig
}
