package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kindredapp/kindred/internal/log"
)

// MaxAudioBytes bounds uploaded audio size (25 MB, the transcription
// API's own upload limit).
const MaxAudioBytes = 25 << 20

// VoiceService transcribes audio and synthesizes speech. Satisfied by
// *ai.Client.
type VoiceService interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Speak(ctx context.Context, text string) (io.ReadCloser, error)
}

type voiceHandler struct {
	service VoiceService
	logger  log.Logger
}

// transcribe handles POST /api/voice/transcribe. The audio file is sent as
// the "audio" field of a multipart form.
func (h *voiceHandler) transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAudioBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "multipart field 'audio' is required", h.logger)
		return
	}
	defer file.Close()

	text, err := h.service.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Error("transcription failed", "error", err, "filename", header.Filename)
		WriteError(w, http.StatusBadGateway, "transcription_failed", "failed to transcribe audio", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"text": text}, h.logger)
}

// SpeakRequest is the request body for POST /api/voice/speak.
type SpeakRequest struct {
	Text string `json:"text"`
}

// speak handles POST /api/voice/speak and streams the synthesized audio.
func (h *voiceHandler) speak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Text == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "text is required", h.logger)
		return
	}
	if len(req.Text) > MaxMessageLength {
		WriteError(w, http.StatusBadRequest, "text_too_long", "text exceeds maximum length", h.logger)
		return
	}

	audio, err := h.service.Speak(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("speech synthesis failed", "error", err)
		WriteError(w, http.StatusBadGateway, "speech_failed", "failed to synthesize speech", h.logger)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := io.Copy(w, audio); err != nil {
		h.logger.Debug("writing audio response failed", "error", err)
	}
}
