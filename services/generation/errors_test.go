package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
		want       Kind
	}{
		{"status 429", 429, "too many requests", KindRateLimited},
		{"429 in message", 0, "Error code: 429 from backend", KindRateLimited},
		{"RateLimitReached code", 500, "RateLimitReached: requests to the deployment exceeded", KindRateLimited},
		{"rate limit phrase", 0, "the rate limit was exceeded", KindRateLimited},
		{"unsupported temperature", 400, "Unsupported value: 'temperature' does not support 0.2 with this model", KindUnsupportedParameter},
		{"plain 400", 400, "invalid request payload", KindBadRequest},
		{"400 in message", 0, "backend returned status 400", KindBadRequest},
		{"404", 404, "deployment not found", KindBadRequest},
		{"server error", 500, "internal error", KindUnknown},
		{"transport error", 0, "connection refused", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.statusCode, tt.message))
		})
	}
}

func TestUserMessage_RateLimited(t *testing.T) {
	err := NewError(429, "too many requests")

	assert.Contains(t, err.UserMessage(), "60 seconds")
}

func TestUserMessage_BadRequest(t *testing.T) {
	err := NewError(400, "invalid payload")

	assert.Contains(t, err.UserMessage(), "rejected the request")
	assert.Contains(t, err.UserMessage(), "invalid payload")
}

func TestUserMessage_Unknown(t *testing.T) {
	err := NewError(0, "connection reset")

	assert.Contains(t, err.UserMessage(), "unexpected error")
	assert.Contains(t, err.UserMessage(), "connection reset")
}

func TestError_Error(t *testing.T) {
	err := NewError(429, "slow down")

	assert.Equal(t, KindRateLimited, err.Kind)
	assert.Contains(t, err.Error(), "rate_limited")
	assert.Contains(t, err.Error(), "slow down")
}
