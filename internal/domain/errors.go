package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a pipeline failure. Each kind maps to an HTTP status,
// a stable business code and a default user-facing message.
type ErrorKind int

const (
	// KindUnknown covers unmapped failures; internal messages are never
	// leaked for this kind.
	KindUnknown ErrorKind = iota
	// KindValidation covers malformed or missing request input.
	KindValidation
	// KindSourceResolution covers share-link parsing failures.
	KindSourceResolution
	// KindTranscription covers fatal ASR failures.
	KindTranscription
	// KindAnalysis covers fatal LLM failures.
	KindAnalysis
	// KindFileHandling covers upload staging failures.
	KindFileHandling
	// KindStorage covers object-store upload failures.
	KindStorage
	// KindServiceInit covers lazy service construction and configuration
	// failures.
	KindServiceInit
)

// Business codes are part of the response contract and must stay stable.
const (
	CodeSuccess          = 0
	CodeSourceResolution = 4001
	CodeValidation       = 4002
	CodeTranscription    = 5001
	CodeAnalysis         = 5002
	CodeFileHandling     = 5003
	CodeStorage          = 5004
	CodeServiceInit      = 5005
	CodeUnknown          = 9999
)

type kindInfo struct {
	httpStatus     int
	businessCode   int
	defaultMessage string
}

var kindTable = map[ErrorKind]kindInfo{
	KindValidation:       {http.StatusBadRequest, CodeValidation, "Either URL or file must be provided"},
	KindSourceResolution: {http.StatusBadRequest, CodeSourceResolution, "Failed to parse video URL"},
	KindTranscription:    {http.StatusServiceUnavailable, CodeTranscription, "ASR service is temporarily unavailable"},
	KindAnalysis:         {http.StatusBadGateway, CodeAnalysis, "LLM service error occurred"},
	KindFileHandling:     {http.StatusInternalServerError, CodeFileHandling, "File processing error"},
	KindStorage:          {http.StatusServiceUnavailable, CodeStorage, "OSS service is temporarily unavailable"},
	KindServiceInit:      {http.StatusInternalServerError, CodeServiceInit, "Service initialization failed"},
	KindUnknown:          {http.StatusInternalServerError, CodeUnknown, "An internal server error occurred"},
}

// HTTPStatus returns the HTTP status for the kind.
func (k ErrorKind) HTTPStatus() int { return kindTable[k].httpStatus }

// BusinessCode returns the stable business code for the kind.
func (k ErrorKind) BusinessCode() int { return kindTable[k].businessCode }

// DefaultMessage returns the default user-facing message for the kind.
func (k ErrorKind) DefaultMessage() string { return kindTable[k].defaultMessage }

// PipelineError is a classified failure. Message, when set, replaces the
// kind's default user-facing text; Err is the underlying cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.DefaultMessage()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the caller. Unknown errors always
// fall back to the generic message so internals are not leaked.
func (e *PipelineError) UserMessage() string {
	if e.Kind == KindUnknown || e.Message == "" {
		return e.Kind.DefaultMessage()
	}
	return e.Message
}

// NewError creates a PipelineError with an explicit user message.
func NewError(kind ErrorKind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// WrapError classifies err under kind, surfacing the underlying error text
// as the user message (the original service errors carry operator-useful
// detail).
func WrapError(kind ErrorKind, err error) *PipelineError {
	if err == nil {
		return &PipelineError{Kind: kind}
	}
	return &PipelineError{Kind: kind, Message: err.Error(), Err: err}
}

// Classify extracts the PipelineError from err, mapping anything unmapped to
// KindUnknown.
func Classify(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return &PipelineError{Kind: KindUnknown, Err: err}
}

// ValidationError builds a 4002 error with the given message.
func ValidationError(message string) *PipelineError {
	return &PipelineError{Kind: KindValidation, Message: message}
}

// ConfigError reports missing or inconsistent service configuration as a
// ServiceInitializationError (fail-fast, before any external call).
func ConfigError(format string, args ...any) *PipelineError {
	return &PipelineError{Kind: KindServiceInit, Message: fmt.Sprintf(format, args...)}
}
