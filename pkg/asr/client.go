package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Task status codes returned by the file-transcription gateway.
const (
	statusSuccess = 21050000
	statusRunning = 21050001
	statusQueued  = 21050002
)

// Paragraph segmentation thresholds for the sentence stream.
const (
	silenceThresholdMs = 1500
	charThreshold      = 250
)

// Client submits recorded media URLs for transcription and waits for the
// result.
type Client interface {
	// Transcribe submits fileURL and polls until the transcript is ready.
	// A non-empty hotwordID biases recognition toward a provider-side
	// vocabulary list.
	Transcribe(ctx context.Context, fileURL, hotwordID string) (string, error)
}

// Config for creating a new transcription client.
type Config struct {
	BaseURL         string
	AccessKeyID     string
	AccessKeySecret string
	AppKey          string
	Timeout         time.Duration // Optional, defaults to 2 minutes
	PollInterval    time.Duration // Optional, defaults to 3 seconds
}

// HTTPClient implements Client over the file-transcription REST gateway.
type HTTPClient struct {
	baseURL      string
	keyID        string
	keySecret    string
	appKey       string
	timeout      time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewClient creates a new file-transcription client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 3 * time.Second
	}

	return &HTTPClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		keyID:        cfg.AccessKeyID,
		keySecret:    cfg.AccessKeySecret,
		appKey:       cfg.AppKey,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// taskConfig is the submit payload understood by the gateway.
type taskConfig struct {
	AppKey                string `json:"appkey"`
	FileLink              string `json:"file_link"`
	Version               string `json:"version"`
	EnableWords           bool   `json:"enable_words"`
	EnableSampleRateAdapt bool   `json:"enable_sample_rate_adaptive"`
	EnableITN             bool   `json:"enable_inverse_text_normalization"`
	VocabularyID          string `json:"vocabulary_id,omitempty"`
}

type submitResponse struct {
	StatusCode int    `json:"StatusCode"`
	StatusText string `json:"StatusText"`
	TaskID     string `json:"TaskId"`
}

type sentence struct {
	Text      string `json:"Text"`
	BeginTime int64  `json:"BeginTime"`
	EndTime   int64  `json:"EndTime"`
}

type resultResponse struct {
	StatusCode int    `json:"StatusCode"`
	StatusText string `json:"StatusText"`
	Result     struct {
		Sentences []sentence `json:"Sentences"`
	} `json:"Result"`
}

// Transcribe submits the file URL and polls until the task completes, the
// configured timeout expires, or ctx is cancelled.
func (c *HTTPClient) Transcribe(ctx context.Context, fileURL, hotwordID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	taskID, err := c.submit(ctx, fileURL, hotwordID)
	if err != nil {
		return "", err
	}

	return c.waitForResult(ctx, taskID)
}

func (c *HTTPClient) submit(ctx context.Context, fileURL, hotwordID string) (string, error) {
	task := taskConfig{
		AppKey:                c.appKey,
		FileLink:              fileURL,
		Version:               "4.0",
		EnableSampleRateAdapt: true,
		EnableITN:             true,
		VocabularyID:          hotwordID,
	}

	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/filetrans/submit", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	var resp submitResponse
	if err := c.doJSON(httpReq, &resp); err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}

	if resp.StatusCode != statusSuccess {
		return "", fmt.Errorf("submit task rejected: %d %s", resp.StatusCode, resp.StatusText)
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("submit task accepted but no task id returned")
	}

	return resp.TaskID, nil
}

func (c *HTTPClient) waitForResult(ctx context.Context, taskID string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transcription task %s: %w", taskID, ctx.Err())
		case <-ticker.C:
		}

		resp, err := c.queryTask(ctx, taskID)
		if err != nil {
			return "", fmt.Errorf("query task %s: %w", taskID, err)
		}

		switch resp.StatusCode {
		case statusSuccess:
			return formatParagraphs(resp.Result.Sentences), nil
		case statusRunning, statusQueued:
			continue
		default:
			return "", fmt.Errorf("transcription task %s failed: %d %s", taskID, resp.StatusCode, resp.StatusText)
		}
	}
}

// queryTask fetches the task state, retrying transient transport failures
// with exponential backoff so a single dropped poll does not abort the task.
func (c *HTTPClient) queryTask(ctx context.Context, taskID string) (*resultResponse, error) {
	u := c.baseURL + "/v1/filetrans/result?task_id=" + url.QueryEscape(taskID)

	operation := func() (*resultResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		c.setAuth(httpReq)

		var resp resultResponse
		if err := c.doJSON(httpReq, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.RetryWithData(operation, bo)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	req.Header.Set("X-NLS-Token", c.keySecret)
	req.Header.Set("X-NLS-Key-Id", c.keyID)
}

func (c *HTTPClient) doJSON(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// formatParagraphs joins the recognized sentences into paragraphs. A new
// paragraph starts on a long silence gap, or once enough text accumulated
// and the sentence ends on terminal punctuation.
func formatParagraphs(sentences []sentence) string {
	if len(sentences) == 0 {
		return ""
	}

	var paragraphs []string
	var current strings.Builder

	for i, s := range sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		current.WriteString(text)

		breakHere := false

		if i < len(sentences)-1 {
			silence := sentences[i+1].BeginTime - s.EndTime
			if silence >= silenceThresholdMs {
				breakHere = true
			}
		}

		if current.Len() >= charThreshold && endsSentence(text) {
			breakHere = true
		}
		if current.Len() >= charThreshold*3/2 {
			breakHere = true
		}

		if breakHere && current.Len() > 0 {
			paragraphs = append(paragraphs, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	return strings.Join(paragraphs, "\n\n")
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, "。") || strings.HasSuffix(text, "？") ||
		strings.HasSuffix(text, "！") || strings.HasSuffix(text, "…") ||
		strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") ||
		strings.HasSuffix(text, "!")
}
