package types

// ResultType tags the variant of a Result.
type ResultType string

const (
	ResultConversation    ResultType = "conversation"
	ResultComponentUpdate ResultType = "component_update"
	ResultError           ResultType = "error"
)

// Result is the outcome of one generate request. Exactly one variant is set:
// Component is non-nil only for component_update.
type Result struct {
	Type      ResultType `json:"type"`
	Message   string     `json:"message"`
	Component *Component `json:"component,omitempty"`

	// Warnings lists properties dropped or kept with an unknown input type.
	Warnings []string `json:"warnings,omitempty"`
	// MessageHTML is the sanitized rendering of Message, set by the HTTP layer.
	MessageHTML string `json:"message_html,omitempty"`

	// Err is the cause of an error result. Not serialized.
	Err error `json:"-"`
}

// GenerateRequest is the request body of the generate boundary.
type GenerateRequest struct {
	Prompt           string            `json:"prompt"`
	CurrentComponent *CurrentComponent `json:"currentComponent,omitempty"`
}

// Role of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EventType represents the type of a live event pushed to browsers.
type EventType string

const (
	EventComponentSaved   EventType = "component_saved"
	EventComponentDeleted EventType = "component_deleted"
	EventPreviewError     EventType = "preview_error"
	EventPromptReloaded   EventType = "prompt_reloaded"
)

// ComponentEvent represents a change in the component registry, used for
// notifications to watchers like the websocket hub.
type ComponentEvent struct {
	Type      EventType       `json:"type"`
	ID        string          `json:"id,omitempty"`
	Component *SavedComponent `json:"component,omitempty"`
}

// PreviewError is a runtime error reported by the preview iframe.
type PreviewError struct {
	ComponentID string `json:"componentId,omitempty"`
	Message     string `json:"message"`
	Line        int    `json:"line,omitempty"`
	Col         int    `json:"col,omitempty"`
}
