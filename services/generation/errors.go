package generation

import (
	"fmt"
	"strings"
)

// Kind classifies a generation backend failure
type Kind string

const (
	KindRateLimited          Kind = "rate_limited"
	KindBadRequest           Kind = "bad_request"
	KindUnsupportedParameter Kind = "unsupported_parameter"
	KindUnknown              Kind = "unknown"
)

// Error is a classified generation backend failure
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("generation %s: %s", e.Kind, e.Message)
}

// NewError creates a classified generation error from a raw backend failure
func NewError(statusCode int, message string) *Error {
	return &Error{
		Kind:       Classify(statusCode, message),
		Message:    message,
		StatusCode: statusCode,
	}
}

// Classify maps a backend status and message to an error kind. The
// backend does not expose machine-readable codes for all failure modes,
// so classification is best-effort on status plus message substrings.
func Classify(statusCode int, message string) Kind {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "unsupported") && strings.Contains(lower, "temperature"):
		return KindUnsupportedParameter
	case statusCode == 429,
		strings.Contains(message, "429"),
		strings.Contains(message, "RateLimitReached"),
		strings.Contains(lower, "rate limit"):
		return KindRateLimited
	case statusCode >= 400 && statusCode < 500,
		strings.Contains(message, "400"):
		return KindBadRequest
	default:
		return KindUnknown
	}
}

// UserMessage renders a classified failure as answer text shown to the
// engineer. Mid-stream faults are delivered through this same text.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindRateLimited:
		return "The assistant is receiving too many requests right now. Please wait about 60 seconds and try again."
	case KindBadRequest, KindUnsupportedParameter:
		return fmt.Sprintf("The generation service rejected the request: %s", e.Message)
	default:
		return fmt.Sprintf("An unexpected error occurred while generating the answer: %s", e.Message)
	}
}
