package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(baseURL string) *HTTPClient {
	return NewClient(Config{
		BaseURL:         baseURL,
		AccessKeyID:     "test-key",
		AccessKeySecret: "test-secret",
		AppKey:          "test-app",
		Timeout:         5 * time.Second,
		PollInterval:    10 * time.Millisecond,
	})
}

func TestTranscribe(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/submit"):
			if r.Header.Get("X-NLS-Token") != "test-secret" {
				t.Errorf("missing auth token header")
			}
			var task taskConfig
			if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
				t.Fatalf("decode task: %v", err)
			}
			if task.FileLink != "https://example.com/audio.mp4" {
				t.Errorf("unexpected file link %q", task.FileLink)
			}
			if task.VocabularyID != "vocab-123" {
				t.Errorf("expected vocabulary id to be forwarded, got %q", task.VocabularyID)
			}
			json.NewEncoder(w).Encode(submitResponse{StatusCode: statusSuccess, TaskID: "task-1"})

		case strings.HasSuffix(r.URL.Path, "/result"):
			if r.URL.Query().Get("task_id") != "task-1" {
				t.Errorf("unexpected task_id %q", r.URL.Query().Get("task_id"))
			}
			polls++
			resp := resultResponse{StatusCode: statusRunning}
			if polls >= 2 {
				resp.StatusCode = statusSuccess
				resp.Result.Sentences = []sentence{
					{Text: "大家好。", BeginTime: 0, EndTime: 1200},
					{Text: "今天聊聊新机。", BeginTime: 1300, EndTime: 2500},
				}
			}
			json.NewEncoder(w).Encode(resp)

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Transcribe(context.Background(), "https://example.com/audio.mp4", "vocab-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "大家好。今天聊聊新机。" {
		t.Errorf("unexpected transcript %q", text)
	}
	if polls < 2 {
		t.Errorf("expected at least 2 polls, got %d", polls)
	}
}

func TestTranscribeSubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{StatusCode: 41050001, StatusText: "file link invalid"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Transcribe(context.Background(), "https://example.com/bad.mp4", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "file link invalid") {
		t.Errorf("expected status text in error, got %v", err)
	}
}

func TestTranscribeTaskFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/submit") {
			json.NewEncoder(w).Encode(submitResponse{StatusCode: statusSuccess, TaskID: "task-2"})
			return
		}
		json.NewEncoder(w).Encode(resultResponse{StatusCode: 41050002, StatusText: "decode failure"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Transcribe(context.Background(), "https://example.com/audio.mp4", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "decode failure") {
		t.Errorf("expected failure detail in error, got %v", err)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/submit") {
			json.NewEncoder(w).Encode(submitResponse{StatusCode: statusSuccess, TaskID: "task-3"})
			return
		}
		json.NewEncoder(w).Encode(resultResponse{StatusCode: statusRunning})
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:         server.URL,
		AccessKeyID:     "k",
		AccessKeySecret: "s",
		AppKey:          "a",
		Timeout:         50 * time.Millisecond,
		PollInterval:    10 * time.Millisecond,
	})

	_, err := client.Transcribe(context.Background(), "https://example.com/audio.mp4", "")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "deadline") {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestFormatParagraphs(t *testing.T) {
	tests := []struct {
		name      string
		sentences []sentence
		want      string
	}{
		{
			name: "joins adjacent sentences",
			sentences: []sentence{
				{Text: "第一句。", BeginTime: 0, EndTime: 1000},
				{Text: "第二句。", BeginTime: 1100, EndTime: 2000},
			},
			want: "第一句。第二句。",
		},
		{
			name: "breaks on long silence",
			sentences: []sentence{
				{Text: "上半段。", BeginTime: 0, EndTime: 1000},
				{Text: "下半段。", BeginTime: 3000, EndTime: 4000},
			},
			want: "上半段。\n\n下半段。",
		},
		{
			name:      "empty input",
			sentences: nil,
			want:      "",
		},
		{
			name: "skips blank sentences",
			sentences: []sentence{
				{Text: "  ", BeginTime: 0, EndTime: 500},
				{Text: "有内容。", BeginTime: 600, EndTime: 1500},
			},
			want: "有内容。",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatParagraphs(tt.sentences)
			if got != tt.want {
				t.Errorf("formatParagraphs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatParagraphsCharThreshold(t *testing.T) {
	long := strings.Repeat("很长的内容", 26) + "。" // past the paragraph threshold
	sentences := []sentence{
		{Text: long, BeginTime: 0, EndTime: 1000},
		{Text: "新段落。", BeginTime: 1100, EndTime: 2000},
	}

	got := formatParagraphs(sentences)
	parts := strings.Split(got, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(parts), got)
	}
	if parts[1] != "新段落。" {
		t.Errorf("unexpected second paragraph %q", parts[1])
	}
}
