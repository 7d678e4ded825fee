package azureopenai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/upb/manuals-assistant/services/generation"
	"go.uber.org/zap"
)

func testAdapter(serverURL string) *Adapter {
	return NewAdapter(Config{
		Endpoint:   serverURL,
		APIKey:     "test-key",
		Deployment: "gpt-test",
	}, zap.NewNop())
}

func testRequest(temperature float64) generation.Request {
	return generation.Request{
		Question:    "how do I calibrate the infusion pump?",
		Fragments:   []string{"calibration fragment"},
		Temperature: temperature,
	}
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func TestGenerate_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("Use the calibration menu."))
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	answer, err := adapter.Generate(context.Background(), testRequest(generation.DefaultTemperature))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Use the calibration menu." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if gotPath != "/openai/deployments/gpt-test/chat/completions?api-version=2024-02-15-preview" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("unexpected api key: %s", gotKey)
	}
	if _, present := gotBody["temperature"]; present {
		t.Error("temperature must be omitted at the default value")
	}
	if gotBody["max_completion_tokens"] != float64(800) {
		t.Errorf("unexpected max_completion_tokens: %v", gotBody["max_completion_tokens"])
	}

	messages, ok := gotBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %v", gotBody["messages"])
	}
	user := messages[1].(map[string]interface{})
	if !strings.Contains(user["content"].(string), "[Fragment 1]") {
		t.Error("user prompt must carry numbered fragments")
	}
}

func TestGenerate_IncludesNonDefaultTemperature(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	if _, err := adapter.Generate(context.Background(), testRequest(0.3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody["temperature"] != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", gotBody["temperature"])
	}
}

func TestGenerate_RetriesOnceWithoutTemperature(t *testing.T) {
	calls := 0
	var secondBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if _, present := body["temperature"]; present {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":"unsupported_value","message":"Unsupported value: 'temperature' does not support 0.2 with this model."}}`)
			return
		}
		secondBody = body
		fmt.Fprint(w, completionBody("answer without temperature"))
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	answer, err := adapter.Generate(context.Background(), testRequest(0.2))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "answer without temperature" {
		t.Errorf("unexpected answer: %q", answer)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
	if _, present := secondBody["temperature"]; present {
		t.Error("retry must omit the temperature parameter")
	}
}

func TestGenerate_RetriesAtMostOnce(t *testing.T) {
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Unsupported parameter: temperature"}}`)
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	_, err := adapter.Generate(context.Background(), testRequest(0.5))

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
}

func TestGenerate_NoRetryAtDefaultTemperature(t *testing.T) {
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Unsupported parameter: temperature"}}`)
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	_, err := adapter.Generate(context.Background(), testRequest(generation.DefaultTemperature))

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":"429","message":"Requests to the deployment have exceeded the rate limit"}}`)
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	_, err := adapter.Generate(context.Background(), testRequest(generation.DefaultTemperature))

	genErr, ok := err.(*generation.Error)
	if !ok {
		t.Fatalf("expected *generation.Error, got %T", err)
	}
	if genErr.Kind != generation.KindRateLimited {
		t.Errorf("expected rate_limited, got %s", genErr.Kind)
	}
	if genErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected status code: %d", genErr.StatusCode)
	}
}

func TestGenerate_EmptyChoicesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	answer, err := adapter.Generate(context.Background(), testRequest(generation.DefaultTemperature))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != generation.FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", answer)
	}
}

func TestGenerateStream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != true {
			t.Error("stream flag must be set")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, content := range []string{"Check ", "the ", "manual."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	var collected []string
	for chunk := range adapter.GenerateStream(context.Background(), testRequest(generation.DefaultTemperature)) {
		collected = append(collected, chunk)
	}

	if got := strings.Join(collected, ""); got != "Check the manual." {
		t.Errorf("unexpected streamed answer: %q", got)
	}
}

func TestGenerateStream_PreflightRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded"}}`)
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	var collected []string
	for chunk := range adapter.GenerateStream(context.Background(), testRequest(generation.DefaultTemperature)) {
		collected = append(collected, chunk)
	}

	if len(collected) != 1 {
		t.Fatalf("expected exactly one diagnostic chunk, got %d", len(collected))
	}
	if !strings.Contains(collected[0], "60 seconds") {
		t.Errorf("expected rate limit guidance, got %q", collected[0])
	}
}

func TestGenerateStream_RetriesWithoutTemperature(t *testing.T) {
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if _, present := body["temperature"]; present {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Unsupported parameter: temperature"}}`)
			return
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	var collected []string
	for chunk := range adapter.GenerateStream(context.Background(), testRequest(0.4)) {
		collected = append(collected, chunk)
	}

	if calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
	if len(collected) != 1 || collected[0] != "ok" {
		t.Errorf("unexpected chunks: %v", collected)
	}
}

func TestGenerateStream_MidStreamFaultBecomesDiagnosticChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		flusher.Flush()

		// Drop the connection mid-stream without the terminator
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("hijacking not supported")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		conn.Close()
	}))
	defer server.Close()

	adapter := testAdapter(server.URL)
	var collected []string
	for chunk := range adapter.GenerateStream(context.Background(), testRequest(generation.DefaultTemperature)) {
		collected = append(collected, chunk)
	}

	if len(collected) < 2 {
		t.Fatalf("expected content plus diagnostic chunk, got %v", collected)
	}
	if collected[0] != "partial" {
		t.Errorf("expected partial content first, got %q", collected[0])
	}
	last := collected[len(collected)-1]
	if !strings.Contains(last, "unexpected error") {
		t.Errorf("expected diagnostic final chunk, got %q", last)
	}
}
