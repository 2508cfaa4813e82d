// Package prompt builds the chat turns sent to the model: the fixed system
// instruction and a user turn describing the current component and the
// requested change.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// Placeholders substituted for missing parts of the current component.
const (
	NoName        = "No name yet"
	NoDescription = "No description yet"
	NoVersion     = "No version yet"
	NoProperties  = "No properties yet"
	NoHTML        = "No HTML content yet"
	NoCSS         = "No CSS content yet"
	NoJavaScript  = "No JavaScript content yet"
	NoState       = "No existing component state."
)

var userTemplate = template.Must(template.New("user").Parse(`{{if .HasState}}Current Component State:

Name: {{.Name}}
Description: {{.Description}}
Version: {{.Version}}

{{.PropertiesLabel}}:
{{.Properties}}

HTML:
{{.HTML}}

CSS:
{{.CSS}}

JavaScript:
{{.JavaScript}}

Please update the above component according to the following request:
{{.Prompt}}{{else}}{{.NoState}}

Request:
{{.Prompt}}{{end}}`))

// Prompt is a composed chat request.
type Prompt struct {
	Model       string
	Temperature float64
	Messages    []types.Message
}

// Composer builds prompts. The system instruction can be replaced at runtime
// (see SetSystemPrompt); everything else is pure.
type Composer struct {
	model       string
	temperature float64

	mu     sync.RWMutex
	system string
}

// NewComposer creates a composer for the given model and temperature using
// the built-in system prompt.
func NewComposer(model string, temperature float64) *Composer {
	return &Composer{
		model:       model,
		temperature: temperature,
		system:      DefaultSystemPrompt(),
	}
}

// SetSystemPrompt replaces the system instruction. An empty or blank text
// restores the built-in prompt.
func (c *Composer) SetSystemPrompt(text string) {
	if strings.TrimSpace(text) == "" {
		text = DefaultSystemPrompt()
	}

	c.mu.Lock()
	c.system = text
	c.mu.Unlock()
}

// SystemPrompt returns the active system instruction.
func (c *Composer) SystemPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.system
}

// LoadSystemPromptFile reads path and installs it as the system prompt.
func (c *Composer) LoadSystemPromptFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading system prompt: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("system prompt file %s is empty", path)
	}

	c.SetSystemPrompt(string(data))
	return nil
}

// Compose returns the system and user turns for req. It never fails.
func (c *Composer) Compose(req types.GenerateRequest) Prompt {
	return Prompt{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: c.SystemPrompt()},
			{Role: types.RoleUser, Content: UserMessage(req)},
		},
	}
}

type userView struct {
	HasState        bool
	NoState         string
	Prompt          string
	Name            string
	Description     string
	Version         string
	PropertiesLabel string
	Properties      string
	HTML            string
	CSS             string
	JavaScript      string
}

// UserMessage renders the user turn for req.
func UserMessage(req types.GenerateRequest) string {
	view := userView{Prompt: req.Prompt, NoState: NoState}

	if cur := req.CurrentComponent; cur != nil {
		view.HasState = true
		view.Name = orPlaceholder(cur.Name, NoName)
		view.Description = orPlaceholder(cur.Description, NoDescription)
		view.Version = orPlaceholder(cur.Version, NoVersion)
		view.HTML = orPlaceholder(cur.HTML, NoHTML)
		view.CSS = orPlaceholder(cur.CSS, NoCSS)
		view.JavaScript = orPlaceholder(cur.JavaScript, NoJavaScript)

		view.PropertiesLabel = "Properties"
		view.Properties = prettyJSON(cur.Properties)
		if view.Properties == "" {
			if cfg := prettyJSON(cur.Config); cfg != "" {
				view.PropertiesLabel = "Config"
				view.Properties = cfg
			} else {
				view.Properties = NoProperties
			}
		}
	}

	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, view); err != nil {
		return req.Prompt
	}

	return buf.String()
}

func orPlaceholder(s *string, placeholder string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return placeholder
	}
	return *s
}

// prettyJSON indents a raw JSON value. A JSON string holding JSON (the
// stringified config of a saved record) is unwrapped first. Empty, null and
// empty-object values yield "".
func prettyJSON(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSpace(s)
		if text == "" {
			return ""
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return text
	}
	if out := buf.String(); out != "{}" {
		return out
	}

	return ""
}
