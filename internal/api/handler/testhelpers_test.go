package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scriptparser/coprocessor/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockPipeline scripts each operation independently.
type mockPipeline struct {
	processOut    *domain.ProcessOutput
	processErr    error
	gotSource     domain.MediaSource
	gotMode       domain.AnalysisMode
	transcript    string
	transcribeErr error
	analysis      *domain.AnalysisResult
	analyzeErr    error
	gotText       string
}

func (m *mockPipeline) Process(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (*domain.ProcessOutput, error) {
	m.gotSource = src
	m.gotMode = mode
	return m.processOut, m.processErr
}

func (m *mockPipeline) Transcribe(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (string, error) {
	m.gotSource = src
	m.gotMode = mode
	return m.transcript, m.transcribeErr
}

func (m *mockPipeline) Analyze(ctx context.Context, text string, mode domain.AnalysisMode) (*domain.AnalysisResult, error) {
	m.gotText = text
	m.gotMode = mode
	return m.analysis, m.analyzeErr
}

type mockRunRepo struct {
	records []*domain.RunRecord
	err     error
}

func (m *mockRunRepo) Save(ctx context.Context, record *domain.RunRecord) error { return nil }

func (m *mockRunRepo) ListRecent(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockRunRepo) Close() error { return nil }

// decodeEnvelope reads the response body into an envelope with raw data.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) struct {
	Code           int             `json:"code"`
	Success        bool            `json:"success"`
	Data           json.RawMessage `json:"data"`
	Message        string          `json:"message"`
	ProcessingTime *float64        `json:"processing_time"`
} {
	t.Helper()
	var env struct {
		Code           int             `json:"code"`
		Success        bool            `json:"success"`
		Data           json.RawMessage `json:"data"`
		Message        string          `json:"message"`
		ProcessingTime *float64        `json:"processing_time"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds an upload request; fields precede the file part.
func multipartRequest(t *testing.T, target string, fields map[string]string, fileName string, fileContent []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(fileContent)
	}
	w.Close()

	req := httptest.NewRequest("POST", target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func successOutput() *domain.ProcessOutput {
	return &domain.ProcessOutput{
		Transcript: "转写文本",
		Analysis: &domain.AnalysisSection{
			LLMAnalysis: &domain.AnalysisResult{
				Narrative: &domain.NarrativeAnalysis{Hook: "h", Core: "c", CTA: "cta"},
			},
		},
	}
}
