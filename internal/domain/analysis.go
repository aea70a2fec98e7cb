package domain

import "encoding/json"

// TechSpecSchemaType is the marker the tech-extraction prompt instructs the
// model to include. Its presence in decoded output selects the tech variant
// regardless of the requested mode.
const TechSpecSchemaType = "v3_tech_spec"

// NarrativeAnalysis is the general-mode result: the narrative structure of
// the transcript.
type NarrativeAnalysis struct {
	RawTranscript     string   `json:"raw_transcript,omitempty"`
	CleanedTranscript string   `json:"cleaned_transcript,omitempty"`
	Hook              string   `json:"hook"`
	Core              string   `json:"core"`
	CTA               string   `json:"cta"`
	KeyQuotes         []string `json:"key_quotes,omitempty"`
}

// ProductParameter is one extracted hardware/software parameter.
type ProductParameter struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// SellingPoint is one extracted selling point with its supporting snippet.
type SellingPoint struct {
	Point          string `json:"point"`
	ContextSnippet string `json:"context_snippet,omitempty"`
}

// PricingItem is one extracted price mention.
type PricingItem struct {
	Product        string `json:"product"`
	Price          string `json:"price"`
	ContextSnippet string `json:"context_snippet,omitempty"`
}

// SubjectiveEvaluation captures the reviewer's own judgement.
type SubjectiveEvaluation struct {
	Pros []string `json:"pros"`
	Cons []string `json:"cons"`
}

// TechSpecAnalysis is the tech-mode result: a structured product spec
// extraction.
type TechSpecAnalysis struct {
	SchemaType           string               `json:"schema_type"`
	ProductParameters    []ProductParameter   `json:"product_parameters"`
	SellingPoints        []SellingPoint       `json:"selling_points"`
	PricingInfo          []PricingItem        `json:"pricing_info"`
	SubjectiveEvaluation SubjectiveEvaluation `json:"subjective_evaluation"`
}

// AnalysisResult is a tagged union: exactly one of Narrative or TechSpec is
// populated on success. Err carries a diagnostic when analysis degraded after
// failover exhaustion; in that case neither variant is set.
type AnalysisResult struct {
	Narrative *NarrativeAnalysis
	TechSpec  *TechSpecAnalysis
	Err       string
}

// Degraded reports whether the result is an error placeholder rather than a
// real analysis.
func (r *AnalysisResult) Degraded() bool { return r.Err != "" }

// MarshalJSON renders only the populated variant, or an error object for a
// degraded result.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Err != "":
		return json.Marshal(map[string]string{"error": r.Err})
	case r.TechSpec != nil:
		return json.Marshal(r.TechSpec)
	case r.Narrative != nil:
		return json.Marshal(r.Narrative)
	default:
		return []byte("null"), nil
	}
}

// ProcessOutput is the success payload of a pipeline run.
type ProcessOutput struct {
	Transcript string           `json:"transcript"`
	Analysis   *AnalysisSection `json:"analysis"`
}

// AnalysisSection groups the source metadata with the model output.
type AnalysisSection struct {
	VideoInfo   *URLSource      `json:"video_info,omitempty"`
	FileInfo    *FileSource     `json:"file_info,omitempty"`
	LLMAnalysis *AnalysisResult `json:"llm_analysis"`
}
