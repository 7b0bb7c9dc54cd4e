package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clarence/internal/carrier/health"
	"clarence/internal/carrier/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/httputil"
)

// Registry lists carriers for display.
type Registry interface {
	ListActive(ctx context.Context) ([]*models.Carrier, error)
}

// Prober runs an on-demand health check.
type Prober interface {
	Probe(ctx context.Context, carrierID id.CarrierID) health.ProbeResult
}

// Handler serves /carriers endpoints.
type Handler struct {
	registry Registry
	prober   Prober
	logger   *slog.Logger
}

func New(registry Registry, prober Prober, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, prober: prober, logger: logger}
}

type listResponse struct {
	Carriers []*models.Carrier `json:"carriers"`
	Total    int               `json:"total"`
}

type probeResponse struct {
	CarrierID string              `json:"carrierId"`
	Code      string              `json:"code"`
	Status    models.HealthStatus `json:"status"`
	Healthy   bool                `json:"healthy"`
	TimedOut  bool                `json:"timedOut"`
	Error     string              `json:"error,omitempty"`
	CheckedAt string              `json:"checkedAt"`
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/carriers", h.handleList)
	r.Post("/carriers/{id}/health", h.handleProbe)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	carriers, err := h.registry.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list carriers", "error", err)
		httputil.WriteError(w, err)
		return
	}
	if carriers == nil {
		carriers = []*models.Carrier{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Carriers: carriers, Total: len(carriers)})
}

func (h *Handler) handleProbe(w http.ResponseWriter, r *http.Request) {
	carrierID, err := id.ParseCarrierID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res := h.prober.Probe(r.Context(), carrierID)
	if res.Code == "" && res.Err != nil {
		httputil.WriteError(w, res.Err)
		return
	}
	out := probeResponse{
		CarrierID: res.CarrierID.String(),
		Code:      res.Code,
		Status:    res.Status,
		Healthy:   res.Healthy,
		TimedOut:  res.TimedOut,
		CheckedAt: res.CheckedAt.UTC().Format(time.RFC3339),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
