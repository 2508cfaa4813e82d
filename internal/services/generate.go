// Package services holds the application services behind the CLI and HTTP
// server: component generation and server assembly.
package services

import (
	"context"
	"strings"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/logging"
	"github.com/dmckenna-gumgum/component-builder/internal/prompt"
	"github.com/dmckenna-gumgum/component-builder/internal/protocol"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// Completer is the model gateway as seen by the generate service.
type Completer interface {
	Complete(ctx context.Context, model string, temperature float64, messages []types.Message) (string, error)
}

// GenerateService runs one generate request end to end: compose the prompt,
// call the model once and dispatch the reply. It holds no per-request state
// and is safe for concurrent use.
type GenerateService struct {
	composer *prompt.Composer
	gateway  Completer
	logger   logging.Logger
	errors   *errors.ErrorHandler
}

// NewGenerateService creates a generate service.
func NewGenerateService(composer *prompt.Composer, gateway Completer, logger logging.Logger) *GenerateService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("generate")

	return &GenerateService{
		composer: composer,
		gateway:  gateway,
		logger:   logger,
		errors:   errors.NewErrorHandler(logger),
	}
}

// Generate returns exactly one result for req. Failures become error
// results; no partial component is ever returned.
func (s *GenerateService) Generate(ctx context.Context, req types.GenerateRequest) types.Result {
	if strings.TrimSpace(req.Prompt) == "" {
		err := errors.NewValidationError(errors.ErrCodeValidationFailed, "prompt is required")
		s.errors.Handle(ctx, err)
		return protocol.ErrorResult(err)
	}

	p := s.composer.Compose(req)
	s.logger.Debug(ctx, "Composed prompt",
		"prompt", logging.SanitizeForLog(req.Prompt),
		"has_state", req.CurrentComponent != nil)

	reply, err := s.gateway.Complete(ctx, p.Model, p.Temperature, p.Messages)
	if err != nil {
		s.errors.Handle(ctx, err)
		return protocol.ErrorResult(err)
	}

	result := protocol.Dispatch(reply, req.CurrentComponent)
	switch result.Type {
	case types.ResultError:
		s.errors.Handle(ctx, result.Err)
	case types.ResultComponentUpdate:
		for _, w := range result.Warnings {
			s.logger.Warn(ctx, nil, "Property adjusted", "detail", w)
		}
		s.logger.Info(ctx, "Component updated",
			"name", result.Component.Name,
			"properties", len(result.Component.Properties))
	default:
		s.logger.Debug(ctx, "Conversational reply", "bytes", len(reply))
	}

	return result
}
