// Package httptransport assembles the public HTTP surface from the domain
// handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clarence/internal/platform/metrics"
	"clarence/internal/platform/middleware"
	"clarence/pkg/platform/httputil"
)

// Registrar mounts one domain's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Check reports whether a backing dependency is reachable.
type Check func(ctx context.Context) error

type Config struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator

	// Public routes need no token. Protected routes run behind RequireAuth.
	Public    []Registrar
	Protected []Registrar

	// Checks back /health. A failing check turns the response into a 503.
	Checks map[string]Check
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Time   time.Time         `json:"time"`
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))

	r.Get("/health", healthHandler(cfg.Checks))
	r.Handle("/metrics", metrics.Handler())

	for _, h := range cfg.Public {
		h.Register(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		for _, h := range cfg.Protected {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Time: time.Now().UTC()}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
