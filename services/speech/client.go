package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/manuals-assistant/services"
	"go.uber.org/zap"
)

const (
	defaultLanguage = "en-US"
	defaultVoice    = "en-US-JennyNeural"

	// 16 kHz mono MP3 keeps synthesized answers small enough for
	// field devices on slow links.
	outputFormat = "audio-16khz-32kbitrate-mono-mp3"
)

// Config holds the Azure Speech settings. STTEndpoint and TTSEndpoint
// are derived from Region when empty; they exist for tests.
type Config struct {
	APIKey      string
	Region      string
	Language    string
	Voice       string
	STTEndpoint string
	TTSEndpoint string
	Timeout     time.Duration
}

// Client provides speech-to-text and text-to-speech over the Azure
// Speech REST API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new speech client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Language == "" {
		config.Language = defaultLanguage
	}
	if config.Voice == "" {
		config.Voice = defaultVoice
	}
	if config.STTEndpoint == "" {
		config.STTEndpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com", config.Region)
	}
	if config.TTSEndpoint == "" {
		config.TTSEndpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com", config.Region)
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// recognitionResponse is the STT response envelope
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

// Transcribe converts 16 kHz mono PCM WAV audio to text. A recognizer
// NoMatch yields an empty transcript, not an error.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	url := fmt.Sprintf("%s/speech/recognition/conversation/cognitiveservices/v1?language=%s",
		strings.TrimRight(c.config.STTEndpoint, "/"), c.config.Language)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", services.WrapInternal("failed to create transcription request", err)
	}
	httpReq.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", services.WrapExternal("transcription request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", services.WrapExternal("failed to read transcription response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("speech backend returned status %d", httpResp.StatusCode), nil).
			WithDetail("body", string(body))
	}

	var recognition recognitionResponse
	if err := json.Unmarshal(body, &recognition); err != nil {
		return "", services.WrapExternal("failed to unmarshal transcription response", err)
	}

	switch recognition.RecognitionStatus {
	case "Success":
		return recognition.DisplayText, nil
	case "NoMatch":
		c.logger.Info("no speech recognized in audio")
		return "", nil
	default:
		return "", services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("speech recognition failed: %s", recognition.RecognitionStatus), nil)
	}
}

// Synthesize converts answer text to MP3 audio using the configured
// neural voice.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ssml := fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
		c.config.Language, c.config.Voice, escapeSSML(text))

	url := strings.TrimRight(c.config.TTSEndpoint, "/") + "/cognitiveservices/v1"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(ssml))
	if err != nil {
		return nil, services.WrapInternal("failed to create synthesis request", err)
	}
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.config.APIKey)
	httpReq.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, services.WrapExternal("synthesis request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, services.WrapExternal("failed to read synthesis response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("speech backend returned status %d", httpResp.StatusCode), nil).
			WithDetail("body", string(body))
	}

	return body, nil
}

// escapeSSML escapes XML-significant characters in synthesized text
func escapeSSML(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return replacer.Replace(text)
}
