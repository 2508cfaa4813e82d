package protocol

import (
	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// Parse runs normalization and validation on an extracted payload.
func Parse(ex Extraction, current *types.CurrentComponent) (*Validation, error) {
	text, err := Normalize(ex.Payload)
	if err != nil {
		return nil, err
	}

	payload, err := decodePayload(text)
	if err != nil {
		return nil, err
	}

	return Validate(payload, current)
}

// Dispatch classifies a raw model reply. Replies without a balanced marker
// pair are conversation; a found payload either validates into a
// component_update or becomes an error result. It never falls back to
// conversation once markers were found.
func Dispatch(reply string, current *types.CurrentComponent) types.Result {
	ex, ok := Extract(reply)
	if !ok {
		return types.Result{Type: types.ResultConversation, Message: reply}
	}

	v, err := Parse(ex, current)
	if err != nil {
		return ErrorResult(err)
	}

	return types.Result{
		Type:      types.ResultComponentUpdate,
		Message:   ex.Explanation,
		Component: v.Component,
		Warnings:  v.Warnings,
	}
}

// ErrorResult wraps err as an error result with a user-facing message that
// includes the cause.
func ErrorResult(err error) types.Result {
	msg := errors.UserMessage(err)
	if msg == "" {
		msg = "Error processing request"
	}

	return types.Result{Type: types.ResultError, Message: msg, Err: err}
}
