package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pihole/pihole-api/internal/logger"
	"github.com/pihole/pihole-api/pkg/config"
)

// Server is the HTTP server exposing the telemetry-plane HTTP surface
// (§4.I), modeled on the teacher's Server but without a store registry —
// its only collaborator is the chi router built from Deps.
type Server struct {
	server          *http.Server
	addr            string
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// NewServer creates an API HTTP server wired to deps. The server is
// created in a stopped state; call Start to begin serving requests.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	router := NewRouter(deps)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{server: server, addr: cfg.Address, shutdownTimeout: cfg.ShutdownTimeout}
}

// Start starts the server and blocks until ctx is cancelled or the server
// fails to serve. On cancellation it performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	return s.addr
}
