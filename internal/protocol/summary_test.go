package protocol

import (
	"testing"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestGroupLabel(t *testing.T) {
	tests := map[string]string{
		"":                "General",
		"colors":          "Colors",
		"display-options": "Display Options",
		"font_settings":   "Font Settings",
	}

	for in, want := range tests {
		assert.Equal(t, want, GroupLabel(in), in)
	}
}

func TestSummary(t *testing.T) {
	r := types.Result{
		Type:    types.ResultComponentUpdate,
		Message: "Updated colours.",
		Component: &types.Component{
			Name: "Weather Widget",
			Properties: map[string]types.Property{
				"bg":   {Value: "#fff", Input: &types.InputDescriptor{Type: types.InputColor, Group: "colors"}},
				"text": {Value: "#000", Input: &types.InputDescriptor{Type: types.InputColor, Group: "colors"}},
				"city": {Value: "Oslo", Input: &types.InputDescriptor{Type: types.InputText}},
			},
			HTML: "<div></div>",
			CSS:  "",
		},
		Warnings: []string{`property "x" dropped: missing input`},
	}

	want := "Updated colours.\n\n" +
		"Component Updates:\n" +
		"- Name: Weather Widget\n" +
		"- Properties: 3 properties updated\n" +
		"- Groups: Colors (2), General (1)\n" +
		"- HTML: Updated\n" +
		"- CSS: No changes\n" +
		"- JavaScript: No changes\n" +
		`- Warning: property "x" dropped: missing input`

	assert.Equal(t, want, Summary(r))
}

func TestSummaryOtherVariants(t *testing.T) {
	assert.Equal(t, "hello", Summary(types.Result{Type: types.ResultConversation, Message: "hello"}))
	assert.Equal(t, "Error: boom", Summary(types.Result{Type: types.ResultError, Message: "boom"}))
}
