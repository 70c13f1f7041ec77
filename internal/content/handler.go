// AngelaMos | 2026
// handler.go

package content

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

type Handler struct {
	service        *Service
	validator      *validator.Validate
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		validator:      validator.New(validator.WithRequiredStructEnabled()),
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/contents", h.ListExposed)
	r.Get("/contents/{contentID}", h.GetPublic)
}

// RegisterAdminRoutes expects r to already be behind the admin session check.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/contents", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/thumbnail", h.UploadThumbnail)
		r.Post("/bulk-menu", h.ParseBulkMenu)
		r.Get("/{contentID}", h.Get)
		r.Put("/{contentID}", h.Update)
		r.Delete("/{contentID}", h.Delete)
	})
}

func (h *Handler) ListExposed(w http.ResponseWriter, r *http.Request) {
	contents, err := h.service.ListExposed(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, contents)
}

func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !c.IsExposed {
		core.NotFound(w, "content")
		return
	}

	core.OK(w, ToPublicContent(c))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListContentsParams{
		PageParams:  core.PageFromRequest(r),
		Search:      r.URL.Query().Get("search"),
		ContentType: r.URL.Query().Get("content_type"),
	}

	contents, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, contents, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSave(w, r)
	if !ok {
		return
	}

	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeSave(w, r)
	if !ok {
		return
	}

	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	if header.Size > h.maxUploadBytes {
		core.BadRequest(w, "file is too large")
		return
	}

	url, err := h.service.UploadThumbnail(
		r.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "file must be an image")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, UploadResponse{URL: url})
}

func (h *Handler) ParseBulkMenu(w http.ResponseWriter, r *http.Request) {
	var req BulkMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	items, err := ParseBulkMenu(req.Text)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	core.OK(w, items)
}

func (h *Handler) decodeSave(w http.ResponseWriter, r *http.Request) (SaveContentRequest, bool) {
	var req SaveContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}

	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "content")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("content"))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "content is referenced by other records")
	default:
		core.InternalServerError(w, err)
	}
}

func contentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil || id < 1 {
		core.BadRequest(w, "invalid content id")
		return 0, false
	}
	return id, true
}
