// AngelaMos | 2026
// handler.go

package tts

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/markup"
)

const maxRequestBytes = 1 << 20

// SynthesizeRequest accepts provider and voice fields from older clients.
// They are read and discarded.
type SynthesizeRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

type Handler struct {
	service       *Service
	maxTextLength int
}

func NewHandler(service *Service, maxTextLength int) *Handler {
	return &Handler{service: service, maxTextLength: maxTextLength}
}

func (h *Handler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.With(limiter).Post("/tts", h.Synthesize)
}

func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		core.BadRequest(w, "text is required")
		return
	}
	text = markup.TruncateRunes(text, h.maxTextLength)

	audio, err := h.service.Synthesize(r.Context(), text)
	if err != nil {
		core.JSONError(w, core.UpstreamError("tts", err))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-TTS-Provider", audio.Provider)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data) //nolint:errcheck
}
