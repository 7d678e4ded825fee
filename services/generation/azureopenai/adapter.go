package azureopenai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/manuals-assistant/services/generation"
	"go.uber.org/zap"
)

const (
	defaultAPIVersion          = "2024-02-15-preview"
	defaultMaxCompletionTokens = 800
)

// Config holds the Azure OpenAI deployment settings
type Config struct {
	Endpoint            string
	APIKey              string
	Deployment          string
	APIVersion          string
	Timeout             time.Duration
	MaxCompletionTokens int
}

// Adapter implements generation.Generator against an Azure OpenAI
// chat-completions deployment.
type Adapter struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a new Azure OpenAI adapter
func NewAdapter(config Config, logger *zap.Logger) *Adapter {
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxCompletionTokens == 0 {
		config.MaxCompletionTokens = defaultMaxCompletionTokens
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Azure OpenAI request/response types

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
	Temperature         *float64      `json:"temperature,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs a blocking chat completion. When the backend
// rejects the temperature parameter as unsupported the call is retried
// exactly once without it.
func (a *Adapter) Generate(ctx context.Context, req generation.Request) (string, error) {
	body, genErr := a.complete(ctx, req, temperatureParam(req.Temperature))
	if genErr != nil && genErr.Kind == generation.KindUnsupportedParameter && temperatureParam(req.Temperature) != nil {
		a.logger.Warn("deployment rejected temperature, retrying without it",
			zap.String("deployment", a.config.Deployment))
		body, genErr = a.complete(ctx, req, nil)
	}
	if genErr != nil {
		return "", genErr
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", generation.NewError(0, fmt.Sprintf("failed to unmarshal response: %v", err))
	}
	if len(chatResp.Choices) == 0 {
		a.logger.Warn("backend returned no choices", zap.String("deployment", a.config.Deployment))
		return generation.FallbackAnswer, nil
	}

	return chatResp.Choices[0].Message.Content, nil
}

// GenerateStream performs a streaming chat completion. The returned
// channel is always closed; faults before or during the stream become a
// final in-band diagnostic chunk.
func (a *Adapter) GenerateStream(ctx context.Context, req generation.Request) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		httpResp, genErr := a.openStream(ctx, req, temperatureParam(req.Temperature))
		if genErr != nil && genErr.Kind == generation.KindUnsupportedParameter && temperatureParam(req.Temperature) != nil {
			a.logger.Warn("deployment rejected temperature, retrying stream without it",
				zap.String("deployment", a.config.Deployment))
			httpResp, genErr = a.openStream(ctx, req, nil)
		}
		if genErr != nil {
			emit(ctx, out, genErr.UserMessage())
			return
		}
		defer httpResp.Body.Close()

		a.relayStream(ctx, httpResp.Body, out)
	}()

	return out
}

// complete runs a blocking completion request and returns the raw body
func (a *Adapter) complete(ctx context.Context, req generation.Request, temperature *float64) ([]byte, *generation.Error) {
	httpResp, genErr := a.post(ctx, req, temperature, false)
	if genErr != nil {
		return nil, genErr
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, generation.NewError(httpResp.StatusCode, fmt.Sprintf("failed to read response: %v", err))
	}

	return body, nil
}

// openStream runs a streaming completion request, leaving the body open
// for SSE relay. Non-2xx responses are drained and classified.
func (a *Adapter) openStream(ctx context.Context, req generation.Request, temperature *float64) (*http.Response, *generation.Error) {
	return a.post(ctx, req, temperature, true)
}

func (a *Adapter) post(ctx context.Context, req generation.Request, temperature *float64, stream bool) (*http.Response, *generation.Error) {
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = generation.DefaultSystemPrompt
	}

	payload := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: generation.BuildUserPrompt(req.Question, req.Fragments)},
		},
		MaxCompletionTokens: a.config.MaxCompletionTokens,
		Temperature:         temperature,
		Stream:              stream,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, generation.NewError(0, fmt.Sprintf("failed to marshal request: %v", err))
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(a.config.Endpoint, "/"), a.config.Deployment, a.config.APIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, generation.NewError(0, fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, generation.NewError(0, err.Error())
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(httpResp.Body)
		return nil, generation.NewError(httpResp.StatusCode, errorMessage(httpResp.StatusCode, body))
	}

	return httpResp, nil
}

// relayStream forwards SSE text deltas until the terminator, honoring
// cancellation. Scan faults become a final diagnostic chunk.
func (a *Adapter) relayStream(ctx context.Context, body io.Reader, out chan<- string) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if !emit(ctx, out, content) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		a.logger.Warn("stream interrupted", zap.Error(err))
		emit(ctx, out, generation.NewError(0, err.Error()).UserMessage())
	}
}

// emit sends a chunk unless the context is done; reports whether the
// stream should continue.
func emit(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// errorMessage extracts the backend error message from an error body,
// falling back to the raw body text.
func errorMessage(statusCode int, body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Code != "" {
			return fmt.Sprintf("%s: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return errResp.Error.Message
	}
	if len(body) > 0 {
		return string(body)
	}
	return fmt.Sprintf("backend returned status %d", statusCode)
}

// temperatureParam returns the request temperature as a pointer, or nil
// when it matches the backend default and must be omitted.
func temperatureParam(temperature float64) *float64 {
	if temperature == generation.DefaultTemperature {
		return nil
	}
	return &temperature
}
