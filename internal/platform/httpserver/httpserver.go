// Package httpserver builds the listener for the clarence API.
package httpserver

import (
	"net/http"
	"time"

	"clarence/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

// New serves handler on cfg.Addr with the configured read, write and idle
// limits.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
