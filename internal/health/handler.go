// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 5 * time.Second

type phase int

const (
	phaseServing phase = iota
	phaseWarming
	phaseDraining
)

func (p phase) label() string {
	switch p {
	case phaseWarming:
		return "not_ready"
	case phaseDraining:
		return "shutting_down"
	default:
		return "ok"
	}
}

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency is a named readiness check. A nil Checker reports as
// not configured.
type Dependency struct {
	Name    string
	Checker Checker
}

type Handler struct {
	deps     []Dependency
	draining atomic.Bool
	warming  atomic.Bool
}

func NewHandler(deps ...Dependency) *Handler {
	return &Handler{deps: deps}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

// current folds the two flags into one phase. Draining wins over warming.
func (h *Handler) current() phase {
	if h.draining.Load() {
		return phaseDraining
	}
	if h.warming.Load() {
		return phaseWarming
	}
	return phaseServing
}

func (h *Handler) SetReady(ready bool) {
	h.warming.Store(!ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.draining.Store(shutdown)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if p := h.current(); p == phaseDraining {
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: p.label()})
		return
	}
	writeProbe(w, http.StatusOK, StatusResponse{Status: phaseServing.label()})
}

// Ping is the relay's bare health probe.
func (h *Handler) Ping(w http.ResponseWriter, _ *http.Request) {
	p, code := h.current(), http.StatusOK
	if p == phaseDraining {
		code = http.StatusServiceUnavailable
	} else {
		p = phaseServing
	}

	writeProbe(w, code, PingResponse{
		Status:    p.label(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if p := h.current(); p != phaseServing {
		writeProbe(w, http.StatusServiceUnavailable, StatusResponse{Status: p.label()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := h.probe(ctx)

	resp := ReadinessResponse{Status: "ok", Checks: checks}
	code := http.StatusOK
	for _, c := range checks {
		if !c.Healthy {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	writeProbe(w, code, resp)
}

// probe pings every dependency concurrently. Results keep registration
// order.
func (h *Handler) probe(ctx context.Context) []HealthCheck {
	out := make([]HealthCheck, len(h.deps))

	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			out[i] = pingDependency(ctx, dep)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probes never fail the group

	return out
}

func pingDependency(ctx context.Context, dep Dependency) HealthCheck {
	if dep.Checker == nil {
		return HealthCheck{
			Name:    dep.Name,
			Message: dep.Name + " checker not configured",
		}
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)

	hc := HealthCheck{
		Name:    dep.Name,
		Healthy: err == nil,
		Latency: time.Since(start).Round(time.Microsecond).String(),
	}
	if err != nil {
		hc.Message = "ping failed"
	}
	return hc
}

func writeProbe(w http.ResponseWriter, status int, body any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // probe client went away
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
