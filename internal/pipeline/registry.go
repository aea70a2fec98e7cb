package pipeline

import (
	"log/slog"
	"sync"

	"github.com/scriptparser/coprocessor/internal/config"
	"github.com/scriptparser/coprocessor/internal/domain"
	"github.com/scriptparser/coprocessor/pkg/asr"
	"github.com/scriptparser/coprocessor/pkg/llm"
	"github.com/scriptparser/coprocessor/pkg/oss"
	"github.com/scriptparser/coprocessor/pkg/resolver"
)

// lazy memoizes one construction attempt, outcome included. A failed build is
// not retried; the same error is returned to every caller.
type lazy[T any] struct {
	once sync.Once
	v    T
	err  error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.v, l.err = build()
	})
	return l.v, l.err
}

// Registry constructs service clients on first use and memoizes them. It is
// safe for concurrent use; construction failures surface as
// service-initialization errors.
type Registry struct {
	cfg    *config.Config
	logger *slog.Logger

	resolver lazy[SourceResolver]
	asr      lazy[Transcriber]
	store    lazy[ObjectStore]
	primary  lazy[llm.Client]
	fallback lazy[llm.Client]
	router   lazy[*AnalysisRouter]
}

// NewRegistry creates a registry over the given configuration. No client is
// constructed until first requested.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	return &Registry{cfg: cfg, logger: logger}
}

// Resolver returns the share-link resolver.
func (r *Registry) Resolver() (SourceResolver, error) {
	return r.resolver.get(func() (SourceResolver, error) {
		return resolver.NewClient(resolver.Config{
			Timeout:    r.cfg.Resolver.Timeout,
			UserAgent:  r.cfg.Resolver.UserAgent,
			XHSAPIBase: r.cfg.Resolver.XHSAPIBase,
		}), nil
	})
}

// Transcriber returns the file-transcription client.
func (r *Registry) Transcriber() (Transcriber, error) {
	return r.asr.get(func() (Transcriber, error) {
		if r.cfg.ASR.AccessKeyID == "" || r.cfg.ASR.AccessKeySecret == "" {
			return nil, domain.ConfigError("transcription credentials are not configured")
		}
		return asr.NewClient(asr.Config{
			BaseURL:         r.cfg.ASR.BaseURL,
			AccessKeyID:     r.cfg.ASR.AccessKeyID,
			AccessKeySecret: r.cfg.ASR.AccessKeySecret,
			AppKey:          r.cfg.ASR.AppKey,
			Timeout:         r.cfg.ASR.Timeout,
			PollInterval:    r.cfg.ASR.PollInterval,
		}), nil
	})
}

// Store returns the object-store client used to stage uploads.
func (r *Registry) Store() (ObjectStore, error) {
	return r.store.get(func() (ObjectStore, error) {
		if r.cfg.OSS.AccessKeyID == "" || r.cfg.OSS.AccessKeySecret == "" {
			return nil, domain.ConfigError("object store credentials are not configured")
		}
		return oss.NewClient(oss.Config{
			Endpoint:        r.cfg.OSS.Endpoint,
			Bucket:          r.cfg.OSS.Bucket,
			AccessKeyID:     r.cfg.OSS.AccessKeyID,
			AccessKeySecret: r.cfg.OSS.AccessKeySecret,
			Timeout:         r.cfg.OSS.Timeout,
		}), nil
	})
}

// Analyzer returns the analysis router, loading and verifying the prompt
// templates on first use.
func (r *Registry) Analyzer() (*AnalysisRouter, error) {
	return r.router.get(func() (*AnalysisRouter, error) {
		primary, err := r.primary.get(func() (llm.Client, error) {
			return buildLLM(r.cfg.LLM.Primary())
		})
		if err != nil {
			return nil, err
		}
		fallback, err := r.fallback.get(func() (llm.Client, error) {
			return buildLLM(r.cfg.LLM.Fallback())
		})
		if err != nil {
			return nil, err
		}

		router, err := NewAnalysisRouter(primary, fallback, r.cfg.LLM.PromptsDir, r.logger)
		if err != nil {
			return nil, domain.WrapError(domain.KindServiceInit, err)
		}
		return router, nil
	})
}

func buildLLM(pc config.ProviderConfig) (llm.Client, error) {
	if pc.APIKey == "" {
		return nil, domain.ConfigError("%s API key is not configured", pc.Name)
	}
	return llm.NewClient(llm.Config{
		Name:    pc.Name,
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   pc.Model,
		Timeout: pc.Timeout,
	}), nil
}
