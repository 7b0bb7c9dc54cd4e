package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clarence/internal/platform/config"
)

func TestNew_UsesConfiguredLimits(t *testing.T) {
	cfg := config.Server{
		Addr:         ":9090",
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  time.Minute,
	}
	handler := http.NotFoundHandler()

	srv := New(cfg, handler)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, 2*time.Second, srv.ReadTimeout)
	assert.Equal(t, 20*time.Second, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
}
