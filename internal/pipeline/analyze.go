package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/scriptparser/coprocessor/internal/domain"
	"github.com/scriptparser/coprocessor/pkg/llm"
)

// Prompt template files, resolved relative to the configured prompts dir.
const (
	generalPromptFile = "structured_analysis.prompt"
	techPromptFile    = "tech_spec_extraction.prompt"

	// transcriptPlaceholder marks where the transcript is spliced into the
	// tech template.
	transcriptPlaceholder = "{{TRANSCRIPT_PLACEHOLDER}}"
)

// AnalysisRouter maps an analysis mode to its prompt and output schema and
// runs the completion with primary/fallback failover. A decode failure or a
// response missing required fields counts as a candidate failure and triggers
// the failover the same way a transport error does.
type AnalysisRouter struct {
	primary  llm.Client
	fallback llm.Client
	logger   *slog.Logger

	generalPrompt string
	techTemplate  string
}

// NewAnalysisRouter loads both prompt templates and verifies the tech
// template carries the transcript placeholder. Template problems are
// construction errors so a broken deployment fails before any model call.
func NewAnalysisRouter(primary, fallback llm.Client, promptsDir string, logger *slog.Logger) (*AnalysisRouter, error) {
	general, err := os.ReadFile(filepath.Join(promptsDir, generalPromptFile))
	if err != nil {
		return nil, fmt.Errorf("load general prompt: %w", err)
	}

	tech, err := os.ReadFile(filepath.Join(promptsDir, techPromptFile))
	if err != nil {
		return nil, fmt.Errorf("load tech prompt: %w", err)
	}
	if !strings.Contains(string(tech), transcriptPlaceholder) {
		return nil, fmt.Errorf("tech prompt template is missing %s", transcriptPlaceholder)
	}

	return &AnalysisRouter{
		primary:       primary,
		fallback:      fallback,
		logger:        logger,
		generalPrompt: string(general),
		techTemplate:  string(tech),
	}, nil
}

// Analyze runs the mode's prompt against the transcript. On success exactly
// one result variant is populated. The error aggregates both provider
// failures when the whole chain is exhausted.
func (a *AnalysisRouter) Analyze(ctx context.Context, transcript string, mode domain.AnalysisMode) (*domain.AnalysisResult, error) {
	systemPrompt, userText := a.buildMessages(transcript, mode)

	run := func(client llm.Client) func(ctx context.Context) (*domain.AnalysisResult, error) {
		return func(ctx context.Context) (*domain.AnalysisResult, error) {
			raw, err := client.Complete(ctx, systemPrompt, userText)
			if err != nil {
				return nil, err
			}
			return parseAnalysis(raw, mode)
		}
	}

	return Failover(ctx, a.logger,
		Candidate[*domain.AnalysisResult]{Role: "primary", Name: a.primary.Name(), Run: run(a.primary)},
		Candidate[*domain.AnalysisResult]{Role: "fallback", Name: a.fallback.Name(), Run: run(a.fallback)},
	)
}

// buildMessages selects the prompt shape per mode. The tech template is
// self-contained: the transcript is spliced in and sent without a separate
// system turn.
func (a *AnalysisRouter) buildMessages(transcript string, mode domain.AnalysisMode) (systemPrompt, userText string) {
	if mode == domain.ModeTech {
		return "", strings.Replace(a.techTemplate, transcriptPlaceholder, transcript, 1)
	}
	return a.generalPrompt, transcript
}

// parseAnalysis decodes the model output. The schema_type marker selects the
// tech variant regardless of the requested mode; otherwise the output is
// decoded as a narrative with required hook/core/cta fields.
func parseAnalysis(raw string, mode domain.AnalysisMode) (*domain.AnalysisResult, error) {
	cleaned := stripFences(raw)

	var probe struct {
		SchemaType string `json:"schema_type"`
	}
	// Probe errors fall through to the narrative decode, which reports them.
	_ = json.Unmarshal([]byte(cleaned), &probe)

	if probe.SchemaType == domain.TechSpecSchemaType {
		var spec domain.TechSpecAnalysis
		if err := json.Unmarshal([]byte(cleaned), &spec); err != nil {
			return nil, fmt.Errorf("decode tech spec output: %w", err)
		}
		return &domain.AnalysisResult{TechSpec: &spec}, nil
	}

	var loose struct {
		RawTranscript     string          `json:"raw_transcript"`
		CleanedTranscript string          `json:"cleaned_transcript"`
		Hook              json.RawMessage `json:"hook"`
		Core              json.RawMessage `json:"core"`
		CTA               json.RawMessage `json:"cta"`
		KeyQuotes         []string        `json:"key_quotes"`
	}
	if err := json.Unmarshal([]byte(cleaned), &loose); err != nil {
		return nil, fmt.Errorf("decode analysis output: %w", err)
	}

	if loose.Hook == nil || loose.Core == nil || loose.CTA == nil {
		return nil, fmt.Errorf("analysis output missing required fields (hook/core/cta)")
	}

	return &domain.AnalysisResult{
		Narrative: &domain.NarrativeAnalysis{
			RawTranscript:     loose.RawTranscript,
			CleanedTranscript: loose.CleanedTranscript,
			Hook:              coerceString(loose.Hook),
			Core:              coerceString(loose.Core),
			CTA:               coerceString(loose.CTA),
			KeyQuotes:         loose.KeyQuotes,
		},
	}, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, which some models wrap JSON output in.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// coerceString accepts either a JSON string or a nested value; nested values
// are rendered as compact JSON so callers always get a string.
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
