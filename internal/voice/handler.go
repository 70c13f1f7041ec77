// AngelaMos | 2026
// handler.go

package voice

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const maxSessionBytes = 1 << 20

var errSessionEnded = core.NewAppError(
	ErrSessionEnded,
	"voice session has ended",
	http.StatusConflict,
	"SESSION_ENDED",
)

type Handler struct {
	service   *Service
	relay     *Relay
	validator *validator.Validate
}

func NewHandler(service *Service, relay *Relay) *Handler {
	return &Handler{
		service:   service,
		relay:     relay,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice-mvp", func(r chi.Router) {
		r.Get("/config", h.GetPublicConfig)
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{sessionID}", h.GetSession)
		r.Post("/sessions/{sessionID}/transcript", h.AppendTranscript)
		r.Post("/sessions/{sessionID}/end", h.EndSession)
		if h.relay != nil {
			r.Get("/sessions/{sessionID}/live", h.Live)
		}
	})
}

// RegisterAdminRoutes expects r to already be behind the admin session check.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/voice-mvp/config", h.GetConfig)
	r.Put("/voice-mvp/config", h.UpdateConfig)
	r.Get("/voice-mvp/sessions", h.ListSessions)
}

func (h *Handler) GetPublicConfig(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Config(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPublicConfig(c))
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Config(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, c)
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.UpdateConfig(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, c)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSessionBytes)

	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, session)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.service.Session(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, session)
}

func (h *Handler) AppendTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSessionBytes)

	var req AppendTranscriptRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.AppendTranscript(r.Context(), id, req.Entries); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.service.EndSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	params := ListSessionsParams{
		PageParams: core.PageFromRequest(r),
		Status:     r.URL.Query().Get("status"),
	}

	sessions, total, err := h.service.ListSessions(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, sessions, params.Page, params.PageSize, total)
}

func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.service.Session(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !session.Active() {
		core.JSONError(w, errSessionEnded)
		return
	}

	h.relay.Serve(w, r, session)
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

func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := core.AsAppError(err); ok {
		core.JSONError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, ErrVoiceDisabled):
		core.JSONError(w, core.ForbiddenError("voice mvp is disabled"))
	case errors.Is(err, ErrSessionEnded):
		core.JSONError(w, errSessionEnded)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "voice session")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionID")
	if _, err := uuid.Parse(id); err != nil {
		core.BadRequest(w, "invalid session id")
		return "", false
	}
	return id, true
}
