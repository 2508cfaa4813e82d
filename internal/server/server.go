// Package server exposes the component builder over HTTP: the generate
// boundary, saved component CRUD, preview documents, preview error reports
// and the live event websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/config"
	apperrors "github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/logging"
	"github.com/dmckenna-gumgum/component-builder/internal/registry"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/websocket"
)

// Generator runs one prompt through the model and protocol.
type Generator interface {
	Generate(ctx context.Context, req types.GenerateRequest) types.Result
}

// Server serves the builder API and shell page.
type Server struct {
	config    *config.Config
	generator Generator
	registry  *registry.ComponentRegistry
	hub       *websocket.Hub
	logger    logging.Logger

	previewErrors *apperrors.ErrorCollector

	httpServer  *http.Server
	serverMutex sync.RWMutex
}

// New creates a server. hub may be nil, in which case /ws is not served and
// events are not broadcast.
func New(cfg *config.Config, generator Generator, reg *registry.ComponentRegistry, hub *websocket.Hub, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		config:    cfg,
		generator: generator,
		registry:  reg,
		hub:       hub,
		logger:    logger.WithComponent("server"),

		previewErrors: apperrors.NewErrorCollector(apperrors.DefaultCollectorSize),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generate-component", s.handleGenerate)

	mux.HandleFunc("GET /api/components", s.handleListComponents)
	mux.HandleFunc("POST /api/components", s.handleCreateComponent)
	mux.HandleFunc("GET /api/components/template", s.handleComponentTemplate)
	mux.HandleFunc("GET /api/components/{id}", s.handleGetComponent)
	mux.HandleFunc("PUT /api/components/{id}", s.handleUpdateComponent)
	mux.HandleFunc("DELETE /api/components/{id}", s.handleDeleteComponent)
	mux.HandleFunc("POST /api/components/{id}/duplicate", s.handleDuplicateComponent)

	mux.HandleFunc("GET /preview/{id}", s.handlePreview)
	mux.HandleFunc("POST /api/preview", s.handlePreviewDraft)
	mux.HandleFunc("POST /api/preview/errors", s.handlePreviewError)
	mux.HandleFunc("GET /api/preview/errors", s.handleListPreviewErrors)
	mux.HandleFunc("DELETE /api/preview/errors", s.handleClearPreviewErrors)

	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /{$}", s.indexHandler())

	return Chain(mux,
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		CORSMiddleware(s.config.Server.AllowedOrigins, s.config.IsDevelopment()),
	)
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// generate calls wait on the model
		WriteTimeout: s.config.Model.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.serverMutex.Lock()
	s.httpServer = srv
	s.serverMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Server listening", "addr", ln.Addr().String(), "environment", s.config.Server.Environment)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the websocket hub and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down server")

	var errs []error
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.serverMutex.RLock()
	srv := s.httpServer
	s.serverMutex.RUnlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
