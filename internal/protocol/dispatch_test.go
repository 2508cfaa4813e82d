package protocol

import (
	"errors"
	"testing"

	berrors "github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "explanation": "Added a title",
  "component": {
    "name": "Card",
    "description": "A simple card",
    "version": "1.0.0",
    "properties": {
      "title": {"value": "Hello", "input": {"type": "text", "label": "Title"}},
    },
    "html": ` + "`<div class=\"card\">\n  <h2 id=\"t\"></h2>\n</div>`" + `,
    // styles
    "css": ".card { padding: 1rem; }",
    "javascript": ` + "`document.getElementById('t').textContent = window.componentConfig.properties.title.value;`" + `
  }
}`

func wrap(explanation, payload string) string {
	return explanation + "\n\n" + OpenMarker + "\n" + payload + "\n" + CloseMarker
}

func TestDispatchConversation(t *testing.T) {
	replies := []string{
		"Hi! What would you like to build?",
		"",
		"I started:\n" + OpenMarker + "\n{\"component\": {",
		"stray " + CloseMarker,
	}

	for _, reply := range replies {
		r := Dispatch(reply, nil)
		assert.Equal(t, types.ResultConversation, r.Type)
		assert.Equal(t, reply, r.Message)
		assert.Nil(t, r.Component)
	}
}

func TestDispatchComponentUpdate(t *testing.T) {
	r := Dispatch(wrap("I made a card.", validPayload), nil)

	require.Equal(t, types.ResultComponentUpdate, r.Type, r.Message)
	assert.Equal(t, "I made a card.", r.Message)
	require.NotNil(t, r.Component)
	assert.Equal(t, "Card", r.Component.Name)
	assert.Equal(t, "<div class=\"card\">\n  <h2 id=\"t\"></h2>\n</div>", r.Component.HTML)
	assert.Equal(t, "Hello", r.Component.Properties["title"].Value)
	assert.NoError(t, r.Err)
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		sentinel error
		contains string
	}{
		{
			name:     "malformed json",
			payload:  `{"component": {"name": }`,
			sentinel: berrors.ErrMalformedPayload,
			contains: "invalid character",
		},
		{
			name:     "missing component",
			payload:  `{"explanation": "nothing"}`,
			sentinel: berrors.ErrMissingComponent,
			contains: "no component",
		},
		{
			name:     "html missing is never defaulted",
			payload:  `{"component": {"name": "A", "description": "d", "version": "1", "css": "", "javascript": ""}}`,
			sentinel: berrors.ErrMissingRequiredField,
			contains: `"html"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Dispatch(wrap("", tt.payload), nil)

			assert.Equal(t, types.ResultError, r.Type)
			assert.Nil(t, r.Component)
			assert.True(t, errors.Is(r.Err, tt.sentinel))
			assert.Contains(t, r.Message, "Invalid component update structure")
			assert.Contains(t, r.Message, tt.contains)
		})
	}
}

func TestErrorResult(t *testing.T) {
	r := ErrorResult(berrors.NewUpstreamError(401, "invalid api key", nil))
	assert.Equal(t, types.ResultError, r.Type)
	assert.Equal(t, "model API error: 401 Unauthorized - invalid api key", r.Message)

	r = ErrorResult(errors.New(""))
	assert.Equal(t, "Error processing request", r.Message)
}
