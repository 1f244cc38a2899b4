// Package httpapi exposes the linkdeck auth API over JSON/HTTP and hosts
// the server-side request gate (RequireAuth) that verifies access tokens
// and attaches caller identity to the request context.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/server/avatars"
	"github.com/dmitrijs2005/linkdeck/internal/server/services"
	"github.com/dmitrijs2005/linkdeck/internal/server/token"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address string
	logger  logging.Logger
	users   *services.UserService
	avatars *avatars.Service
	codec   *token.Codec
}

func NewServer(address string, l logging.Logger, us *services.UserService, av *avatars.Service, codec *token.Codec) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "httpapi"),
		users:   us,
		avatars: av,
		codec:   codec,
	}
}

// Routes builds the full handler chain. Exposed separately so tests can
// drive the API through httptest without binding a socket.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, withMetrics(pattern, h))
	}

	handle("POST /auth/register", http.HandlerFunc(s.handleRegister))
	handle("POST /auth/login", http.HandlerFunc(s.handleLogin))
	handle("POST /auth/refresh", http.HandlerFunc(s.handleRefresh))
	handle("GET /auth/me", s.RequireAuth(http.HandlerFunc(s.handleMe)))
	handle("PUT /auth/me", s.RequireAuth(http.HandlerFunc(s.handleUpdateMe)))
	handle("PUT /auth/password", s.RequireAuth(http.HandlerFunc(s.handleChangePassword)))
	handle("POST /auth/avatar-upload-url", s.RequireAuth(http.HandlerFunc(s.handleAvatarUploadURL)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
