package domain

// AnalysisMode selects the analysis track for a pipeline run.
type AnalysisMode string

const (
	// ModeGeneral extracts the narrative structure (hook / core / CTA).
	ModeGeneral AnalysisMode = "general"
	// ModeTech extracts a technical product specification.
	ModeTech AnalysisMode = "tech"
)

// Valid reports whether the mode is a known analysis mode.
func (m AnalysisMode) Valid() bool {
	return m == ModeGeneral || m == ModeTech
}

// MediaSource is the normalized input to the pipeline: either a share-link
// that resolves to a downloadable URL, or a locally staged upload.
// Sources are immutable once constructed.
type MediaSource interface {
	// Kind returns "url" or "file".
	Kind() string
	// Label returns a short human-readable identifier used in
	// degraded-transcript placeholders and logs.
	Label() string
}

// URLSource is a share-link input. ShareText is the raw text the caller
// pasted; the resolver fills VideoID, Platform, Title and DownloadURL.
type URLSource struct {
	ShareText   string `json:"-"`
	VideoID     string `json:"video_id"`
	Platform    string `json:"platform"`
	Title       string `json:"title"`
	DownloadURL string `json:"download_url"`
}

func (s *URLSource) Kind() string { return "url" }

func (s *URLSource) Label() string {
	if s.Title != "" {
		return s.Title
	}
	return s.ShareText
}

// Resolved reports whether the resolver has produced a download URL.
func (s *URLSource) Resolved() bool { return s.DownloadURL != "" }

// FileSource is an uploaded file staged on local disk.
type FileSource struct {
	LocalPath    string `json:"-"`
	OriginalName string `json:"original_filename"`
	SizeBytes    int64  `json:"size"`
}

func (s *FileSource) Kind() string { return "file" }

func (s *FileSource) Label() string { return s.OriginalName }

// Transcript is the text produced by the transcription stage, with
// provenance. Degraded is set when the text is a diagnostic placeholder
// substituted for a failed transcription.
type Transcript struct {
	Text     string
	Source   MediaSource
	Mode     AnalysisMode
	Degraded bool
}
