package domain

import "time"

// Envelope is the uniform response body for both success and error outcomes.
// ProcessingTime is seconds since the request start, null when no start time
// was recorded.
type Envelope struct {
	Code           int      `json:"code"`
	Success        bool     `json:"success"`
	Data           any      `json:"data"`
	Message        string   `json:"message"`
	ProcessingTime *float64 `json:"processing_time"`
}

// SuccessEnvelope wraps data in a code-0 envelope.
func SuccessEnvelope(data any, message string, start time.Time) Envelope {
	return Envelope{
		Code:           CodeSuccess,
		Success:        true,
		Data:           data,
		Message:        message,
		ProcessingTime: elapsedSeconds(start),
	}
}

// ErrorEnvelope converts a classified error into an envelope.
func ErrorEnvelope(pe *PipelineError, start time.Time) Envelope {
	return Envelope{
		Code:           pe.Kind.BusinessCode(),
		Success:        false,
		Data:           nil,
		Message:        pe.UserMessage(),
		ProcessingTime: elapsedSeconds(start),
	}
}

func elapsedSeconds(start time.Time) *float64 {
	if start.IsZero() {
		return nil
	}
	s := time.Since(start).Seconds()
	return &s
}
