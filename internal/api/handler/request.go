package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// processRequest is the JSON body for URL-based operations.
type processRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

// sourceFromRequest normalizes a request into a media source and mode. JSON
// bodies carry a share link; multipart bodies carry an upload, which is
// staged into tempDir. A URL sent as form data is rejected explicitly since
// it is a recurring client mistake.
func sourceFromRequest(r *http.Request, tempDir string, maxFileSize int64) (domain.MediaSource, domain.AnalysisMode, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return sourceFromMultipart(r, tempDir, maxFileSize)
	}
	return sourceFromJSON(r)
}

func sourceFromJSON(r *http.Request) (domain.MediaSource, domain.AnalysisMode, error) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, "", domain.ValidationError("invalid JSON body")
	}

	if strings.TrimSpace(req.URL) == "" {
		return nil, "", domain.ValidationError("Either URL or file must be provided")
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		return nil, "", err
	}

	return &domain.URLSource{ShareText: req.URL}, mode, nil
}

func sourceFromMultipart(r *http.Request, tempDir string, maxFileSize int64) (domain.MediaSource, domain.AnalysisMode, error) {
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		return nil, "", domain.ValidationError("invalid multipart form")
	}

	if r.FormValue("url") != "" {
		return nil, "", domain.ValidationError("URL should be sent as JSON, not form data")
	}

	mode, err := parseMode(r.FormValue("mode"))
	if err != nil {
		return nil, "", err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", domain.ValidationError("Either URL or file must be provided")
	}
	defer file.Close()

	if header.Size > maxFileSize {
		return nil, "", domain.ValidationError(
			fmt.Sprintf("File too large: %d bytes exceeds the %d byte limit", header.Size, maxFileSize))
	}

	src, err := stageUpload(file, header.Filename, header.Size, tempDir)
	if err != nil {
		return nil, "", err
	}
	return src, mode, nil
}

// stageUpload copies the upload to tempDir under a unique name. The pipeline
// owns removal of the staged file.
func stageUpload(file io.Reader, originalName string, size int64, tempDir string) (*domain.FileSource, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, domain.WrapError(domain.KindFileHandling, fmt.Errorf("create temp dir: %w", err))
	}

	name := uuid.New().String() + "-" + filepath.Base(originalName)
	path := filepath.Join(tempDir, name)

	out, err := os.Create(path)
	if err != nil {
		return nil, domain.WrapError(domain.KindFileHandling, fmt.Errorf("create staged file: %w", err))
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return nil, domain.WrapError(domain.KindFileHandling, fmt.Errorf("write staged file: %w", err))
	}

	return &domain.FileSource{
		LocalPath:    path,
		OriginalName: filepath.Base(originalName),
		SizeBytes:    size,
	}, nil
}

func parseMode(raw string) (domain.AnalysisMode, error) {
	if raw == "" {
		return domain.ModeGeneral, nil
	}
	mode := domain.AnalysisMode(raw)
	if !mode.Valid() {
		return "", domain.ValidationError(fmt.Sprintf("unknown analysis mode %q", raw))
	}
	return mode, nil
}
