package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clarence/internal/auth/models"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/httputil"
	"clarence/pkg/requestcontext"
)

// Service is the auth flow surface the handler drives.
type Service interface {
	CheckPhone(ctx context.Context, req *models.CheckPhoneRequest) (*models.CheckPhoneResult, error)
	SendCode(ctx context.Context, req *models.SendCodeRequest) (*models.SendCodeResult, error)
	VerifyCode(ctx context.Context, req *models.VerifyCodeRequest) (*models.VerifyCodeResult, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, req *models.RefreshRequest) (*models.TokenPair, error)
	Logout(ctx context.Context, req *models.RefreshRequest) (*models.MessageResult, error)
	ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) (*models.ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (*models.MessageResult, error)
}

// Handler serves /auth endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register mounts the auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/check-phone", serve(h, http.StatusOK, h.auth.CheckPhone))
		r.Post("/send-code", serve(h, http.StatusOK, h.auth.SendCode))
		r.Post("/verify-code", serve(h, http.StatusOK, h.auth.VerifyCode))
		r.Post("/register", serve(h, http.StatusCreated, h.auth.Register))
		r.Post("/login", serve(h, http.StatusOK, h.auth.Login))
		r.Post("/refresh", serve(h, http.StatusOK, h.auth.Refresh))
		r.Post("/logout", serve(h, http.StatusOK, h.auth.Logout))
		r.Post("/forgot-password", serve(h, http.StatusOK, h.auth.ForgotPassword))
		r.Post("/reset-password", serve(h, http.StatusOK, h.auth.ResetPassword))
	})
}

// serve decodes the body into Req, runs call and writes its result.
func serve[Req, Res any](h *Handler, status int, call func(context.Context, *Req) (*Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req Req
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
		res, err := call(ctx, &req)
		if err != nil {
			h.logError(ctx, r.URL.Path, err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, status, res)
	}
}

func (h *Handler) logError(ctx context.Context, path string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "auth request failed",
			"path", path,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	h.logger.InfoContext(ctx, "auth request rejected",
		"path", path,
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
	)
}
