// AngelaMos | 2026
// handler.go

package reading

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/prompt"
)

const maxRequestBytes = 4 << 20

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	path string,
	limiter func(http.Handler) http.Handler,
) {
	r.With(limiter).Post(path, h.Stream)
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req prompt.ReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	err = h.service.Stream(r.Context(), req, sse.Send)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("reading stream ended early",
			"path", r.URL.Path,
			"error", err,
		)
	}
}
