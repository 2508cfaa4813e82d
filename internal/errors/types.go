// Package errors defines the structured error taxonomy shared by the model
// gateway, the payload protocol and the HTTP boundary.
//
// Every failure on the component_update path is a *BuilderError so callers can
// classify it with errors.Is against the exported sentinels and map it to a
// user-visible message and HTTP status without string matching.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypePayload    ErrorType = "payload"
	ErrorTypeSchema     ErrorType = "schema"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeUpstream             = "ERR_UPSTREAM"
	ErrCodeEmptyResponse        = "ERR_EMPTY_RESPONSE"
	ErrCodeTimeout              = "ERR_TIMEOUT"
	ErrCodeMalformedPayload     = "ERR_MALFORMED_PAYLOAD"
	ErrCodeMissingComponent     = "ERR_MISSING_COMPONENT"
	ErrCodeMissingRequiredField = "ERR_MISSING_REQUIRED_FIELD"
	ErrCodeInvalidFieldType     = "ERR_INVALID_FIELD_TYPE"
	ErrCodeValidationFailed     = "ERR_VALIDATION_FAILED"
	ErrCodeComponentNotFound    = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeConfigInvalid        = "ERR_CONFIG_INVALID"
	ErrCodeInternalError        = "ERR_INTERNAL"
)

// BuilderError is a structured error type with context.
type BuilderError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}

	// Status is the upstream HTTP status for upstream errors, 0 otherwise.
	Status int
	// Field names the offending component field for schema errors.
	Field string
}

// Error implements the error interface.
func (e *BuilderError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Field != "" {
		parts = append(parts, "field:"+e.Field)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuilderError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on Type and Code, so the package sentinels
// match any error of the same kind regardless of message.
func (e *BuilderError) Is(target error) bool {
	var t *BuilderError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuilderError) WithContext(key string, value interface{}) *BuilderError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// Sentinels for errors.Is.
var (
	ErrUpstream             = &BuilderError{Type: ErrorTypeUpstream, Code: ErrCodeUpstream}
	ErrEmptyResponse        = &BuilderError{Type: ErrorTypeUpstream, Code: ErrCodeEmptyResponse}
	ErrTimeout              = &BuilderError{Type: ErrorTypeTimeout, Code: ErrCodeTimeout}
	ErrMalformedPayload     = &BuilderError{Type: ErrorTypePayload, Code: ErrCodeMalformedPayload}
	ErrMissingComponent     = &BuilderError{Type: ErrorTypeSchema, Code: ErrCodeMissingComponent}
	ErrMissingRequiredField = &BuilderError{Type: ErrorTypeSchema, Code: ErrCodeMissingRequiredField}
	ErrInvalidFieldType     = &BuilderError{Type: ErrorTypeSchema, Code: ErrCodeInvalidFieldType}
	ErrValidation           = &BuilderError{Type: ErrorTypeValidation, Code: ErrCodeValidationFailed}
	ErrComponentNotFound    = &BuilderError{Type: ErrorTypeValidation, Code: ErrCodeComponentNotFound}
)

// Error creation functions

// NewUpstreamError creates an error for a chat-completion call that did not
// return a successful status. status is 0 when no response was received.
func NewUpstreamError(status int, body string, cause error) *BuilderError {
	msg := "model API request failed"
	if status > 0 {
		msg = fmt.Sprintf("model API error: %d %s", status, http.StatusText(status))
		if b := strings.TrimSpace(body); b != "" {
			msg += " - " + b
		}
	}

	return &BuilderError{
		Type:    ErrorTypeUpstream,
		Code:    ErrCodeUpstream,
		Message: msg,
		Cause:   cause,
		Status:  status,
	}
}

// NewEmptyResponseError creates an error for a successful call without text.
func NewEmptyResponseError() *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeUpstream,
		Code:    ErrCodeEmptyResponse,
		Message: "no response content from model API",
	}
}

// NewTimeoutError creates an error for an aborted or timed-out upstream call.
func NewTimeoutError(cause error) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeTimeout,
		Code:    ErrCodeTimeout,
		Message: "model API request timed out",
		Cause:   cause,
	}
}

// NewMalformedPayloadError creates an error for a payload that still is not
// strict JSON after normalization.
func NewMalformedPayloadError(cause error) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypePayload,
		Code:    ErrCodeMalformedPayload,
		Message: "component payload is not valid JSON",
		Cause:   cause,
	}
}

// NewMissingComponentError creates an error for a payload without a component.
func NewMissingComponentError() *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeSchema,
		Code:    ErrCodeMissingComponent,
		Message: "payload has no component object",
	}
}

// NewMissingRequiredFieldError creates a schema error for an absent field.
func NewMissingRequiredFieldError(field string) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeSchema,
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("component is missing required field %q", field),
		Field:   field,
	}
}

// NewInvalidFieldTypeError creates a schema error for a field of the wrong type.
func NewInvalidFieldTypeError(field, want, got string) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeSchema,
		Code:    ErrCodeInvalidFieldType,
		Message: fmt.Sprintf("component field %q must be a %s, got %s", field, want, got),
		Field:   field,
	}
}

// NewValidationError creates a request validation error.
func NewValidationError(code, message string) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *BuilderError {
	return &BuilderError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// ErrComponentNotFoundID creates a not-found error for a saved component id.
func ErrComponentNotFoundID(id string) *BuilderError {
	return NewValidationError(ErrCodeComponentNotFound, "component not found: "+id)
}

// IsPayloadError reports whether err came from the sentinel-payload path
// (normalization or schema validation).
func IsPayloadError(err error) bool {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Type == ErrorTypePayload || be.Type == ErrorTypeSchema
	}

	return false
}

// HTTPStatus maps an error to the status used at the HTTP boundary.
func HTTPStatus(err error) int {
	var be *BuilderError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}

	switch {
	case be.Code == ErrCodeComponentNotFound:
		return http.StatusNotFound
	case be.Type == ErrorTypeValidation:
		return http.StatusBadRequest
	case be.Type == ErrorTypePayload, be.Type == ErrorTypeSchema:
		return http.StatusUnprocessableEntity
	case be.Type == ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case be.Type == ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage renders err for display to the end user. Payload and schema
// failures are prefixed the way the terminal shows rejected updates.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var be *BuilderError
	if !errors.As(err, &be) {
		return err.Error()
	}

	msg := be.Message
	if be.Cause != nil {
		msg += ": " + be.Cause.Error()
	}
	if be.Type == ErrorTypePayload || be.Type == ErrorTypeSchema {
		msg = "Invalid component update structure: " + msg
	}

	return msg
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at a level chosen by its type. Schema and payload failures
// are expected model misbehaviour and log as warnings.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var be *BuilderError
	if !errors.As(err, &be) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch be.Type {
	case ErrorTypePayload, ErrorTypeSchema, ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Component update rejected",
			"type", be.Type,
			"code", be.Code,
			"field", be.Field)
	case ErrorTypeUpstream, ErrorTypeTimeout:
		h.logger.Error(ctx, err, "Model API call failed",
			"type", be.Type,
			"code", be.Code,
			"status", be.Status)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", be.Type,
			"code", be.Code)
	}
}
