// AngelaMos | 2026
// handler.go

package savedresult

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const maxSaveBytes = 8 << 20

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	//nolint:errcheck // only fails for an empty tag or nil func
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})

	return &Handler{
		service:   service,
		validator: v,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, lookupLimiter func(http.Handler) http.Handler) {
	r.Route("/saved-results", func(r chi.Router) {
		r.Post("/", h.Save)
		r.With(lookupLimiter).Post("/lookup", h.Lookup)
		r.Get("/{resultID}", h.Get)
		r.With(lookupLimiter).Post("/{resultID}/pdf", h.ExportPDF)
	})
}

// RegisterAdminRoutes expects r to already be behind the admin session check.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/saved-results", h.List)
	r.Delete("/saved-results/{resultID}", h.Delete)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBytes)

	var req SaveRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Save(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, ToSummary(result))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := resultID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, result)
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := h.service.Lookup(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToSummaries(results))
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := resultID(w, r)
	if !ok {
		return
	}

	url, err := h.service.ExportPDF(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, PDFResponse{URL: url})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		PageParams: core.PageFromRequest(r),
		Search:     r.URL.Query().Get("search"),
	}

	results, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToSummaries(results), params.Page, params.PageSize, total)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := resultID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if appErr, ok := core.AsAppError(err); ok {
		core.JSONError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, ErrInvalidPhone):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "saved result")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "content does not exist")
	default:
		core.InternalServerError(w, err)
	}
}

func resultID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "resultID")
	if _, err := uuid.Parse(id); err != nil {
		core.BadRequest(w, "invalid result id")
		return "", false
	}
	return id, true
}
