package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/upb/manuals-assistant/middleware"
	"github.com/upb/manuals-assistant/utils"
	"go.uber.org/zap"
)

// maxAudioBytes caps uploaded audio payloads (10 MiB)
const maxAudioBytes = 10 << 20

// SpeechService defines the interface for speech operations
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// TranscribeResponse carries a recognized transcript. Text is empty
// when no speech was recognized in the audio.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// SynthesizeRequest carries text to convert to audio
type SynthesizeRequest struct {
	Text string `json:"text" validate:"required"`
}

// SpeechHandler handles speech-related HTTP requests
type SpeechHandler struct {
	service SpeechService
	logger  *zap.Logger
}

// NewSpeechHandler creates a new SpeechHandler
func NewSpeechHandler(service SpeechService, logger *zap.Logger) *SpeechHandler {
	return &SpeechHandler{
		service: service,
		logger:  logger,
	}
}

// HandleTranscribe handles POST /api/v1/transcribe.
// The body is raw 16 kHz mono PCM WAV audio.
func (h *SpeechHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		h.logger.Warn("failed to read audio body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Failed to read audio payload", nil)
		return
	}
	if len(audio) == 0 {
		_ = utils.WriteBadRequest(w, "Audio payload cannot be empty", nil)
		return
	}

	text, err := h.service.Transcribe(ctx, audio)
	if err != nil {
		h.logger.Error("transcription failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, TranscribeResponse{Text: text})
}

// HandleSynthesize handles POST /api/v1/synthesize.
// The response body is MP3 audio.
func (h *SpeechHandler) HandleSynthesize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var synthReq SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&synthReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&synthReq); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	audio, err := h.service.Synthesize(ctx, synthReq.Text)
	if err != nil {
		h.logger.Error("synthesis failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
