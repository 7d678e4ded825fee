package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/manuals-assistant/services"
	"go.uber.org/zap"
)

type stubSpeech struct {
	transcript    string
	transcribeErr error
	audio         []byte
	synthesizeErr error
	gotAudio      []byte
	gotText       string
}

func (s *stubSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	s.gotAudio = audio
	return s.transcript, s.transcribeErr
}

func (s *stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.gotText = text
	return s.audio, s.synthesizeErr
}

func TestHandleTranscribe_Success(t *testing.T) {
	speech := &stubSpeech{transcript: "replace the filter"}
	handler := NewSpeechHandler(speech, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", strings.NewReader("wav-bytes"))
	rec := httptest.NewRecorder()
	handler.HandleTranscribe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "replace the filter")
	assert.Equal(t, []byte("wav-bytes"), speech.gotAudio)
}

func TestHandleTranscribe_EmptyAudio(t *testing.T) {
	handler := NewSpeechHandler(&stubSpeech{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", strings.NewReader(""))
	rec := httptest.NewRecorder()
	handler.HandleTranscribe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTranscribe_NoSpeechRecognized(t *testing.T) {
	handler := NewSpeechHandler(&stubSpeech{transcript: ""}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", strings.NewReader("silence"))
	rec := httptest.NewRecorder()
	handler.HandleTranscribe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"text":""`)
}

func TestHandleTranscribe_ServiceError(t *testing.T) {
	speech := &stubSpeech{transcribeErr: services.WrapExternal("transcription failed", errors.New("backend down"))}
	handler := NewSpeechHandler(speech, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", strings.NewReader("audio"))
	rec := httptest.NewRecorder()
	handler.HandleTranscribe(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleSynthesize_Success(t *testing.T) {
	speech := &stubSpeech{audio: []byte("mp3-bytes")}
	handler := NewSpeechHandler(speech, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/synthesize", strings.NewReader(`{"text":"replace the filter"}`))
	rec := httptest.NewRecorder()
	handler.HandleSynthesize(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
	assert.Equal(t, "replace the filter", speech.gotText)
}

func TestHandleSynthesize_MissingText(t *testing.T) {
	handler := NewSpeechHandler(&stubSpeech{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/synthesize", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.HandleSynthesize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSynthesize_InvalidBody(t *testing.T) {
	handler := NewSpeechHandler(&stubSpeech{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/synthesize", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()
	handler.HandleSynthesize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
