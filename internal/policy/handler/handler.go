package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clarence/internal/policy/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/httputil"
	"clarence/pkg/requestcontext"
)

// Service is the policy surface the handler drives.
type Service interface {
	Bind(ctx context.Context, req *models.BindRequest) (*models.Policy, error)
	Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Policy, error)
	ListActive(ctx context.Context, userID id.UserID) ([]*models.Policy, error)
	ListExpiringSoon(ctx context.Context, userID id.UserID) ([]*models.Policy, error)
	Cancel(ctx context.Context, policyID id.PolicyID, reason string) (*models.Policy, error)
}

// Handler serves /policies endpoints. Every route expects an authenticated
// caller in the request context.
type Handler struct {
	policies Service
	logger   *slog.Logger
}

func New(policies Service, logger *slog.Logger) *Handler {
	return &Handler{policies: policies, logger: logger}
}

type listResponse struct {
	Policies []*models.Policy `json:"policies"`
	Total    int              `json:"total"`
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Post("/bind", h.handleBind)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/cancel", h.handleCancel)
	})
}

func (h *Handler) handleBind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.BindRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID := requestcontext.UserID(ctx)
	req.UserID = &userID
	p, err := h.policies.Bind(ctx, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// handleList supports ?status=active and ?status=expiring.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	list := h.policies.ListForUser
	switch r.URL.Query().Get("status") {
	case "":
	case "active":
		list = h.policies.ListActive
	case "expiring":
		list = h.policies.ListExpiringSoon
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "status must be active or expiring"))
		return
	}
	policies, err := list(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Policies: policies, Total: len(policies)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req models.CancelRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	cancelled, err := h.policies.Cancel(r.Context(), p.ID, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cancelled)
}

// owned loads the policy named in the path. Policies belonging to someone
// else are reported as not found.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*models.Policy, bool) {
	ctx := r.Context()
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	p, err := h.policies.Get(ctx, policyID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if p.UserID == nil || *p.UserID != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Policy not found"))
		return nil, false
	}
	return p, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), "policy request failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
