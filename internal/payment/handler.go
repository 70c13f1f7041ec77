// AngelaMos | 2026
// handler.go

package payment

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes expects r to already be behind the admin session check.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/payments/stats", h.Stats)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	stats, err := h.service.Stats(r.Context(), filter)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

// ParseFilter reads from/to as KST calendar dates. "to" is inclusive.
func ParseFilter(r *http.Request) (StatsFilter, error) {
	q := r.URL.Query()
	var filter StatsFilter

	if v := q.Get("from"); v != "" {
		from, err := time.ParseInLocation(dateLayout, v, KST)
		if err != nil {
			return filter, errInvalid("from")
		}
		filter.From = &from
	}

	if v := q.Get("to"); v != "" {
		to, err := time.ParseInLocation(dateLayout, v, KST)
		if err != nil {
			return filter, errInvalid("to")
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, errInvalid("date range")
	}

	if v := q.Get("content_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return filter, errInvalid("content_id")
		}
		filter.ContentID = &id
	}

	return filter, nil
}

func errInvalid(name string) error {
	return fmt.Errorf("invalid %s", name)
}
