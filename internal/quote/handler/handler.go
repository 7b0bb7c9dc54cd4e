package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clarence/internal/quote/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/httputil"
	"clarence/pkg/requestcontext"
)

// Service is the quote lifecycle surface the handler drives.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.QuoteRequest, error)
	Update(ctx context.Context, requestID id.QuoteRequestID, req *models.UpdateRequest) (*models.QuoteRequest, error)
	SelectCoverages(ctx context.Context, requestID id.QuoteRequestID, req *models.SelectCoveragesRequest) ([]models.Coverage, error)
	Submit(ctx context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error)
	Get(ctx context.Context, requestID id.QuoteRequestID) (*models.Detail, error)
	GetBySession(ctx context.Context, sessionID string) (*models.QuoteRequest, error)
}

// Handler serves /quotes endpoints.
type Handler struct {
	quotes Service
	logger *slog.Logger
}

func New(quotes Service, logger *slog.Logger) *Handler {
	return &Handler{quotes: quotes, logger: logger}
}

type coveragesResponse struct {
	Coverages []models.Coverage `json:"coverages"`
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/session/{sessionID}", h.handleGetBySession)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Put("/{id}/coverages", h.handleSelectCoverages)
		r.Post("/{id}/submit", h.handleSubmit)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.quotes.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseQuoteRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.quotes.Update(r.Context(), requestID, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) handleSelectCoverages(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseQuoteRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.SelectCoveragesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	coverages, err := h.quotes.SelectCoverages(r.Context(), requestID, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, coveragesResponse{Coverages: coverages})
}

// handleSubmit answers as soon as the request is queued; carrier calls
// continue in the background.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseQuoteRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.quotes.Submit(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, q)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseQuoteRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.quotes.Get(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleGetBySession(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.GetBySession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), "quote request failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
