// Package types provides the data model shared by the prompt composer, the
// payload protocol, the registry and the HTTP boundary.
package types

import (
	"encoding/json"
	"time"
)

// InputType tags how the property editor renders a property. Values stay
// opaque strings regardless of the tag.
type InputType string

const (
	InputText          InputType = "text"
	InputNumber        InputType = "number"
	InputSelect        InputType = "select"
	InputColor         InputType = "colorInput"
	InputCheckbox      InputType = "checkbox"
	InputRadio         InputType = "radio"
	InputRange         InputType = "range"
	InputFile          InputType = "fileInput"
	InputDate          InputType = "date"
	InputTime          InputType = "time"
	InputDateTimeLocal InputType = "datetime-local"
	InputPassword      InputType = "password"
	InputEmail         InputType = "email"
	InputTel           InputType = "tel"
	InputURL           InputType = "url"
)

// KnownInputTypes lists every input type the editor understands.
var KnownInputTypes = []InputType{
	InputText, InputNumber, InputSelect, InputColor, InputCheckbox,
	InputRadio, InputRange, InputFile, InputDate, InputTime,
	InputDateTimeLocal, InputPassword, InputEmail, InputTel, InputURL,
}

// Known reports whether t is one of KnownInputTypes.
func (t InputType) Known() bool {
	for _, k := range KnownInputTypes {
		if t == k {
			return true
		}
	}
	return false
}

// InputDescriptor describes the editor control for a property. Min, Max and
// Step are kept as raw JSON so numbers survive without float reformatting.
type InputDescriptor struct {
	Type        InputType       `json:"type"`
	Label       string          `json:"label"`
	Group       string          `json:"group,omitempty"`
	Options     []string        `json:"options,omitempty"`
	Min         json.RawMessage `json:"min,omitempty"`
	Max         json.RawMessage `json:"max,omitempty"`
	Step        json.RawMessage `json:"step,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Accept      string          `json:"accept,omitempty"`
}

// Property is one configurable field of a component.
type Property struct {
	Value string           `json:"value"`
	Input *InputDescriptor `json:"input"`
}

// Component is the validated artifact handed to the preview and editor.
type Component struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Version     string              `json:"version"`
	Properties  map[string]Property `json:"properties"`
	HTML        string              `json:"html"`
	CSS         string              `json:"css"`
	JavaScript  string              `json:"javascript"`
}

// CurrentComponent is the caller-supplied prior state. Every field may be
// absent; pointers and raw JSON keep "absent" distinct from "empty".
// Properties and Config may be an object or a JSON-encoded string, since
// saved records store the config stringified.
type CurrentComponent struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Version     *string         `json:"version,omitempty"`
	Properties  json.RawMessage `json:"properties,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	HTML        *string         `json:"html,omitempty"`
	CSS         *string         `json:"css,omitempty"`
	JavaScript  *string         `json:"javascript,omitempty"`
}

// FromComponent builds a CurrentComponent describing c.
func FromComponent(c *Component) *CurrentComponent {
	if c == nil {
		return nil
	}
	props, _ := json.Marshal(c.Properties)
	return &CurrentComponent{
		Name:        StringPtr(c.Name),
		Description: StringPtr(c.Description),
		Version:     StringPtr(c.Version),
		Properties:  props,
		HTML:        StringPtr(c.HTML),
		CSS:         StringPtr(c.CSS),
		JavaScript:  StringPtr(c.JavaScript),
	}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// SavedComponent is a persisted component record. Config holds the
// Component-shaped JSON (meta and properties) as a string.
type SavedComponent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Config       string    `json:"config"`
	HTML         string    `json:"html"`
	CSS          string    `json:"css"`
	JavaScript   string    `json:"javascript"`
	LastModified time.Time `json:"lastModified"`
}

// ComponentConfig is the decoded form of SavedComponent.Config.
type ComponentConfig struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Properties  map[string]Property `json:"properties"`
}

// NewSavedComponent converts a validated component into a record body. The
// caller assigns ID and LastModified.
func NewSavedComponent(c *Component) (*SavedComponent, error) {
	cfg, err := json.MarshalIndent(ComponentConfig{
		Name:        c.Name,
		Version:     c.Version,
		Description: c.Description,
		Properties:  c.Properties,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	return &SavedComponent{
		Name:       c.Name,
		Config:     string(cfg),
		HTML:       c.HTML,
		CSS:        c.CSS,
		JavaScript: c.JavaScript,
	}, nil
}

// DecodeConfig parses the stringified config of a saved record.
func (s *SavedComponent) DecodeConfig() (*ComponentConfig, error) {
	var cfg ComponentConfig
	if s.Config == "" {
		return &cfg, nil
	}
	if err := json.Unmarshal([]byte(s.Config), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Current returns the record as prior state for a generate request.
func (s *SavedComponent) Current() *CurrentComponent {
	cur := &CurrentComponent{
		Name:       StringPtr(s.Name),
		HTML:       StringPtr(s.HTML),
		CSS:        StringPtr(s.CSS),
		JavaScript: StringPtr(s.JavaScript),
	}
	if s.Config != "" {
		cur.Config = json.RawMessage(s.Config)
		if !json.Valid(cur.Config) {
			// keep it as a JSON string so the composer can still show it
			quoted, _ := json.Marshal(s.Config)
			cur.Config = quoted
		}
	}
	return cur
}
