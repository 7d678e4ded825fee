package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
	}{
		{"not found", ErrSessionNotFound, IsNotFoundError},
		{"validation", ErrEmptyQuestion, IsValidationError},
		{"rate limit", ErrGenerationRateLimited, IsRateLimitError},
		{"internal", ErrDatabaseError, IsInternalError},
		{"external", ErrSearchUnavailable, IsExternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.checker(tt.err))
		})
	}
}

func TestCheckersRejectOtherTypes(t *testing.T) {
	assert.False(t, IsNotFoundError(ErrEmptyQuestion))
	assert.False(t, IsValidationError(ErrSessionNotFound))
	assert.False(t, IsExternalError(ErrDatabaseError))
	assert.False(t, IsNotFoundError(errors.New("plain error")))
	assert.False(t, IsNotFoundError(nil))
}

func TestCheckersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("repository failed: %w", ErrSessionNotFound)

	assert.True(t, IsNotFoundError(wrapped))
	assert.True(t, errors.Is(wrapped, ErrSessionNotFound))
}

func TestWrapExternal(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapExternal("search request failed", cause)

	assert.True(t, IsExternalError(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "search request failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(ErrSessionNotFound))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain error")))
}

func TestWithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeExternal, "backend error", nil).
		WithDetail("status", 502)

	details := GetErrorDetails(err)
	assert.Equal(t, 502, details["status"])
}

func TestDomainError_Is(t *testing.T) {
	err := WrapExternal("speech request failed", errors.New("timeout"))

	assert.True(t, errors.Is(err, ErrSpeechUnavailable))
	assert.False(t, errors.Is(err, ErrSessionNotFound))
}
