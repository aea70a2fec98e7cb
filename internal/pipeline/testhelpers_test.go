package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/scriptparser/coprocessor/internal/config"
	"github.com/scriptparser/coprocessor/internal/domain"
	"github.com/scriptparser/coprocessor/pkg/resolver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockResolver struct {
	resolution *resolver.Resolution
	err        error
	calls      int
}

func (m *mockResolver) Resolve(ctx context.Context, shareText string) (*resolver.Resolution, error) {
	m.calls++
	return m.resolution, m.err
}

type mockTranscriber struct {
	text       string
	err        error
	gotURL     string
	gotHotword string
}

func (m *mockTranscriber) Transcribe(ctx context.Context, fileURL, hotwordID string) (string, error) {
	m.gotURL = fileURL
	m.gotHotword = hotwordID
	return m.text, m.err
}

type mockStore struct {
	publicURL string
	err       error
	gotName   string
	gotSize   int64
}

func (m *mockStore) Upload(ctx context.Context, name string, content io.Reader, size int64) (string, error) {
	m.gotName = name
	m.gotSize = size
	if m.err != nil {
		return "", m.err
	}
	io.Copy(io.Discard, content)
	return m.publicURL, nil
}

type mockLLM struct {
	name      string
	responses []string
	errs      []error
	calls     int
}

func (m *mockLLM) Name() string { return m.name }

func (m *mockLLM) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", fmt.Errorf("no scripted response for call %d", i)
}

type mockRecorder struct {
	mu      sync.Mutex
	records []*domain.RunRecord
	err     error
}

func (m *mockRecorder) Save(ctx context.Context, record *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockRecorder) last(t *testing.T) *domain.RunRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		t.Fatal("no run records saved")
	}
	return m.records[len(m.records)-1]
}

// writePrompts lays out a temp prompts dir with both templates.
func writePrompts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	general := "You are a script analyst. Return JSON with hook, core, cta."
	tech := "Extract a product spec from the transcript below.\n\n{{TRANSCRIPT_PLACEHOLDER}}\n\nReturn JSON with schema_type \"v3_tech_spec\"."
	if err := os.WriteFile(filepath.Join(dir, generalPromptFile), []byte(general), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, techPromptFile), []byte(tech), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestRouter(t *testing.T, primary, fallback *mockLLM) *AnalysisRouter {
	t.Helper()
	router, err := NewAnalysisRouter(primary, fallback, writePrompts(t), testLogger())
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

// seedRegistry memoizes mock clients into a registry so no real client is
// constructed.
func seedRegistry(t *testing.T, cfg *config.Config, res SourceResolver, tr Transcriber, store ObjectStore, router *AnalysisRouter) *Registry {
	t.Helper()
	r := NewRegistry(cfg, testLogger())
	r.resolver.get(func() (SourceResolver, error) { return res, nil })
	r.asr.get(func() (Transcriber, error) { return tr, nil })
	r.store.get(func() (ObjectStore, error) { return store, nil })
	r.router.get(func() (*AnalysisRouter, error) { return router, nil })
	return r
}

func testConfig() *config.Config {
	return &config.Config{
		ASR: config.ASRConfig{TechHotwordID: "vocab-tech"},
	}
}

// stageTempFile writes a throwaway media file and returns its FileSource.
func stageTempFile(t *testing.T, content string) *domain.FileSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.mp4")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return &domain.FileSource{
		LocalPath:    path,
		OriginalName: "upload.mp4",
		SizeBytes:    int64(len(content)),
	}
}

const narrativeJSON = `{"hook":"开场三秒抓人","core":"主体讲参数","cta":"引导关注"}`

const techSpecJSON = `{"schema_type":"v3_tech_spec","product_parameters":[{"parameter":"屏幕","value":"6.7英寸"}],"selling_points":[{"point":"快充"}],"pricing_info":[{"product":"标准版","price":"3999"}],"subjective_evaluation":{"pros":["手感好"],"cons":["发热"]}}`
