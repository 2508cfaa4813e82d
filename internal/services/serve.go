package services

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/dmckenna-gumgum/component-builder/internal/config"
	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/llm"
	"github.com/dmckenna-gumgum/component-builder/internal/logging"
	"github.com/dmckenna-gumgum/component-builder/internal/prompt"
	"github.com/dmckenna-gumgum/component-builder/internal/registry"
	"github.com/dmckenna-gumgum/component-builder/internal/server"
	"github.com/dmckenna-gumgum/component-builder/internal/watcher"
	"github.com/dmckenna-gumgum/component-builder/internal/websocket"
)

// NewComposer builds the prompt composer for cfg, loading the system prompt
// override when one is configured.
func NewComposer(cfg *config.Config) (*prompt.Composer, error) {
	composer := prompt.NewComposer(cfg.Model.Model, cfg.Model.Temperature)
	if cfg.Prompt.SystemPromptFile != "" {
		if err := composer.LoadSystemPromptFile(cfg.Prompt.SystemPromptFile); err != nil {
			return nil, errors.NewConfigError("loading system prompt override", err)
		}
	}
	return composer, nil
}

// NewGateway builds the model gateway for cfg.
func NewGateway(cfg *config.Config, logger logging.Logger) *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL:       cfg.Model.BaseURL,
		APIKey:        cfg.Model.APIKey,
		Timeout:       cfg.Model.Timeout,
		MaxConcurrent: cfg.Model.MaxConcurrent,
	}, logger)
}

// NewGenerator builds a generate service for cfg. The CLI uses it directly;
// the server shares the composer through Assemble.
func NewGenerator(cfg *config.Config, logger logging.Logger) (*GenerateService, error) {
	composer, err := NewComposer(cfg)
	if err != nil {
		return nil, err
	}
	return NewGenerateService(composer, NewGateway(cfg, logger), logger), nil
}

// NewRegistry opens the configured component store, or an in-memory
// registry when no store path is set.
func NewRegistry(cfg *config.Config) (*registry.ComponentRegistry, error) {
	if cfg.Store.Path != "" {
		return registry.Open(cfg.Store.Path, cfg.Store.SeedDefaults)
	}

	reg := registry.NewComponentRegistry()
	if cfg.Store.SeedDefaults {
		if err := reg.SeedDefaults(); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ServeService assembles and runs the HTTP server.
type ServeService struct {
	config *config.Config
	logger logging.Logger
}

// NewServeService creates a new serve service
func NewServeService(cfg *config.Config, logger logging.Logger) *ServeService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ServeService{config: cfg, logger: logger}
}

// ServeOptions contains options for the serve process
type ServeOptions struct {
	// Listener overrides the configured address, mainly for tests.
	Listener net.Listener
	// HandleSignals stops the server on SIGINT or SIGTERM.
	HandleSignals bool
}

// ServeResult contains the result of a serve operation
type ServeResult struct {
	ServerURL  string
	Components int
	Success    bool
	Error      error
}

// App is the assembled server with the pieces it owns.
type App struct {
	Server   *server.Server
	Registry *registry.ComponentRegistry
	Hub      *websocket.Hub
	Composer *prompt.Composer

	promptWatcher *watcher.PromptWatcher
}

// Assemble wires every component for cfg without starting anything.
func (s *ServeService) Assemble() (*App, error) {
	composer, err := NewComposer(s.config)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(s.config)
	if err != nil {
		return nil, err
	}

	gateway := NewGateway(s.config, s.logger)
	generator := NewGenerateService(composer, gateway, s.logger)
	hub := websocket.NewHub(s.config.Server.AllowedOrigins, s.logger)

	app := &App{
		Server:   server.New(s.config, generator, reg, hub, s.logger),
		Registry: reg,
		Hub:      hub,
		Composer: composer,
	}

	if path := s.config.Prompt.SystemPromptFile; path != "" {
		pw, err := watcher.NewPromptWatcher(path, composer, watcher.DefaultDebounce, hub.PublishPromptReloaded, s.logger)
		if err != nil {
			// the override is loaded already; only hot reload is lost
			s.logger.Warn(context.Background(), err, "System prompt hot reload disabled", "path", path)
		} else {
			app.promptWatcher = pw
		}
	}

	return app, nil
}

// Serve runs the server until ctx is done or, with HandleSignals, until
// the process is interrupted.
func (s *ServeService) Serve(ctx context.Context, opts ServeOptions) (*ServeResult, error) {
	result := &ServeResult{
		ServerURL: "http://" + s.config.Addr(),
		Success:   true,
	}

	app, err := s.Assemble()
	if err != nil {
		result.Success = false
		result.Error = err
		return result, err
	}
	result.Components = app.Registry.Count()

	if opts.HandleSignals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info(ctx, "Starting component builder",
		"url", result.ServerURL,
		"model", s.config.Model.Model,
		"api_key", logging.Presence(s.config.Model.APIKey),
		"components", result.Components)

	events := app.Registry.Watch()
	defer app.Registry.UnWatch(events)
	go app.Hub.Forward(ctx, events)

	if app.promptWatcher != nil {
		if err := app.promptWatcher.Start(ctx); err != nil {
			s.logger.Warn(ctx, err, "Failed to start system prompt watcher")
		}
		defer app.promptWatcher.Stop()
	}

	if opts.Listener != nil {
		result.ServerURL = "http://" + opts.Listener.Addr().String()
		err = app.Server.Serve(ctx, opts.Listener)
	} else {
		err = app.Server.Start(ctx)
	}
	if err != nil {
		result.Success = false
		result.Error = fmt.Errorf("server startup failed: %w", err)
		return result, result.Error
	}

	return result, nil
}

// GetServerInfo returns information about the server configuration
func (s *ServeService) GetServerInfo() *ServerInfo {
	return &ServerInfo{
		Host:       s.config.Server.Host,
		Port:       s.config.Server.Port,
		ServerURL:  "http://" + s.config.Addr(),
		Model:      s.config.Model.Model,
		APIKey:     logging.Presence(s.config.Model.APIKey),
		StorePath:  s.config.Store.Path,
		PromptFile: s.config.Prompt.SystemPromptFile,
	}
}

// ServerInfo contains information about the server configuration. APIKey
// only reports presence.
type ServerInfo struct {
	Host       string
	Port       int
	ServerURL  string
	Model      string
	APIKey     string
	StorePath  string
	PromptFile string
}
