package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/preview"
	"github.com/dmckenna-gumgum/component-builder/internal/protocol"
	"github.com/dmckenna-gumgum/component-builder/internal/registry"
	"github.com/dmckenna-gumgum/component-builder/internal/renderer"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/validation"
	"github.com/dmckenna-gumgum/component-builder/internal/version"
)

// maxBodyBytes bounds request bodies. Component code plus prior state can be
// large, but not this large.
const maxBodyBytes = 2 << 20

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeResult(w, protocol.ErrorResult(err))
		return
	}
	req.Prompt = validation.SanitizeInput(req.Prompt)

	result := s.generator.Generate(r.Context(), req)
	renderer.Attach(&result)

	writeResult(w, result)
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	var rec types.SavedComponent
	if err := decodeJSON(w, r, &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	// creation always assigns a fresh id
	rec.ID = ""

	saved, err := s.registry.Save(&rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.registry.Get(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	var rec types.SavedComponent
	if err := decodeJSON(w, r, &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec.ID = id

	saved, err := s.registry.Save(&rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// new code gets a clean error slate
	s.previewErrors.Clear(id)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Delete(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.previewErrors.Clear(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleComponentTemplate returns the starting component for "New Component".
func (s *Server) handleComponentTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.NewComponentTemplate())
}

func (s *Server) handleDuplicateComponent(w http.ResponseWriter, r *http.Request) {
	dup, err := s.registry.Duplicate(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	comp := &types.Component{
		Name:       rec.Name,
		HTML:       rec.HTML,
		CSS:        rec.CSS,
		JavaScript: rec.JavaScript,
	}
	if cfg, err := rec.DecodeConfig(); err != nil {
		s.logger.Warn(r.Context(), err, "Saved config is not valid JSON, previewing without properties", "id", rec.ID)
	} else {
		comp.Version = cfg.Version
		comp.Description = cfg.Description
		comp.Properties = cfg.Properties
	}

	s.writePreview(w, r, rec.Name, comp)
}

func (s *Server) handlePreviewDraft(w http.ResponseWriter, r *http.Request) {
	var comp types.Component
	if err := decodeJSON(w, r, &comp); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePreview(w, r, comp.Name, &comp)
}

func (s *Server) writePreview(w http.ResponseWriter, r *http.Request, name string, comp *types.Component) {
	doc, err := preview.BuildDocument(name, comp)
	if err != nil {
		s.writeError(w, r, errors.NewInternalError("building preview", err))
		return
	}

	sources, err := preview.ExternalSources(comp.HTML)
	if err != nil {
		s.writeError(w, r, errors.NewInternalError("scanning preview sources", err))
		return
	}

	w.Header().Set("Content-Security-Policy", preview.ContentSecurityPolicy(sources)+"; frame-ancestors 'self'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

func (s *Server) handlePreviewError(w http.ResponseWriter, r *http.Request) {
	var report types.PreviewError
	if err := decodeJSON(w, r, &report); err != nil {
		s.writeError(w, r, err)
		return
	}
	report.Message = strings.TrimSpace(validation.SanitizeInput(report.Message))
	if report.Message == "" {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeValidationFailed, "message is required"))
		return
	}

	s.logger.Warn(r.Context(), nil, "Preview runtime error",
		"component_id", report.ComponentID,
		"message", report.Message,
		"line", report.Line,
		"col", report.Col)
	s.previewErrors.Add(report)
	if s.hub != nil {
		s.hub.PublishPreviewError(report)
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleListPreviewErrors returns the recent preview errors, optionally
// filtered by ?component=<id>.
func (s *Server) handleListPreviewErrors(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("component"); id != "" {
		writeJSON(w, http.StatusOK, s.previewErrors.ErrorsFor(id))
		return
	}
	writeJSON(w, http.StatusOK, s.previewErrors.Errors())
}

func (s *Server) handleClearPreviewErrors(w http.ResponseWriter, r *http.Request) {
	s.previewErrors.Clear(r.URL.Query().Get("component"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"checks": map[string]interface{}{
			"registry": map[string]interface{}{"status": "healthy", "components": s.registry.Count()},
			"model":    map[string]interface{}{"status": modelStatus(s.config.Model.APIKey), "model": s.config.Model.Model},
		},
	}
	if s.hub != nil {
		health["checks"].(map[string]interface{})["websocket"] = map[string]interface{}{
			"status":  "healthy",
			"clients": s.hub.ClientCount(),
		}
	}

	writeJSON(w, http.StatusOK, health)
}

// modelStatus reports credential presence only.
func modelStatus(apiKey string) string {
	if apiKey == "" {
		return "unconfigured"
	}
	return "configured"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.NewValidationError(errors.ErrCodeValidationFailed, "request body is required")
		}
		return errors.NewValidationError(errors.ErrCodeValidationFailed, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// writeResult writes a protocol result. Error results carry the status of
// their cause.
func writeResult(w http.ResponseWriter, result types.Result) {
	status := http.StatusOK
	if result.Type == types.ResultError {
		status = errors.HTTPStatus(result.Err)
	}
	writeJSON(w, status, result)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Request failed", "path", r.URL.Path)
	}
	writeJSON(w, status, protocol.ErrorResult(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
