// Package preview builds the sandboxed HTML document a component runs in.
//
// The document is meant for an iframe (srcdoc or a dedicated route). It
// exposes the component's configuration as window.componentConfig, runs the
// component JavaScript and reports runtime errors to the parent window with
// postMessage.
package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// DefaultName is used when a component has no name yet.
const DefaultName = "New Component"

// ErrorMessageType is the postMessage type the document uses for errors.
const ErrorMessageType = "error"

// Config is the object exposed to component code as window.componentConfig.
type Config struct {
	Name        string                    `json:"name"`
	Version     string                    `json:"version"`
	Description string                    `json:"description"`
	Properties  map[string]types.Property `json:"properties"`
}

var documentTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta http-equiv="Content-Security-Policy" content="{{.Policy}}">
    <title>{{.Name}}</title>
    <style>
      body, html {
        height: 100%;
        width: 100%;
      }
      body { margin: 0; padding: 0; }
    </style>
    <style>{{.CSS}}</style>
  </head>
  <body>
    {{.HTML}}
    <script>
      document.addEventListener('DOMContentLoaded', function() {
        var isInitialized = false;
        var report = function(payload) {
          payload.type = {{.MessageType}};
          window.parent.postMessage(payload, '*');
        };

        window.onerror = function(msg, url, line, col) {
          if (isInitialized) {
            report({ message: String(msg), line: line, col: col });
          }
          return false;
        };

        var originalError = console.error;
        console.error = function() {
          var args = Array.prototype.slice.call(arguments);
          if (isInitialized) {
            report({ message: args.join(' ') });
          }
          originalError.apply(console, args);
        };

        window.componentName = {{.Name}};
        window.componentConfig = JSON.parse({{.ConfigJSON}});

        try {
          {{.JavaScript}}

          if (!window.componentConfig || typeof window.componentConfig !== 'object') {
            throw new Error('Invalid componentConfig: must be a valid object');
          }
          isInitialized = true;
        } catch (error) {
          report({ message: 'Component initialization error: ' + error.message });
          window.componentConfig = {};
        }
      });
    </script>
  </body>
</html>
`))

type documentData struct {
	Name        string
	Policy      string
	MessageType string
	ConfigJSON  string
	CSS         template.CSS
	HTML        template.HTML
	JavaScript  template.JS
}

// BuildDocument renders the full preview document for c. name overrides the
// component name exposed as window.componentName when non-empty.
func BuildDocument(name string, c *types.Component) (string, error) {
	if c == nil {
		c = &types.Component{}
	}
	if name == "" {
		name = c.Name
	}
	if name == "" {
		name = DefaultName
	}

	props := c.Properties
	if props == nil {
		props = map[string]types.Property{}
	}
	// json.Marshal escapes <, > and & so the config cannot close the script.
	cfg, err := json.Marshal(Config{
		Name:        c.Name,
		Version:     c.Version,
		Description: c.Description,
		Properties:  props,
	})
	if err != nil {
		return "", fmt.Errorf("encoding component config: %w", err)
	}

	sources, err := ExternalSources(c.HTML)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = documentTemplate.Execute(&buf, documentData{
		Name:        name,
		Policy:      ContentSecurityPolicy(sources),
		MessageType: ErrorMessageType,
		ConfigJSON:  string(cfg),
		CSS:         template.CSS(c.CSS),
		HTML:        template.HTML(c.HTML),
		JavaScript:  template.JS(c.JavaScript),
	})
	if err != nil {
		return "", fmt.Errorf("rendering preview document: %w", err)
	}

	return buf.String(), nil
}
