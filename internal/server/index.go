package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/version"
)

const indexHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Component Builder</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; display: grid; grid-template-columns: 280px 1fr; height: 100vh; }
aside { border-right: 1px solid #e5e7eb; padding: 1rem; overflow-y: auto; }
main { display: flex; flex-direction: column; padding: 1rem; gap: 1rem; }
iframe { flex: 1; border: 1px solid #e5e7eb; border-radius: 6px; width: 100%; }
#chat { max-height: 30vh; overflow-y: auto; }
#errors { color: #dc2626; font-family: monospace; }
li { margin: 0.25rem 0; }
footer { font-size: 0.75rem; color: #6b7280; margin-top: 1rem; }
</style>
</head>
<body>
`

const indexScript = `<script>
(function() {
  var current = null;
  var frame = document.getElementById('preview');
  var chat = document.getElementById('chat');
  var errors = document.getElementById('errors');

  function say(html) {
    var p = document.createElement('div');
    p.innerHTML = html;
    chat.appendChild(p);
  }

  function showPreview(component) {
    fetch('/api/preview', { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(component) })
      .then(function(r) { return r.text(); })
      .then(function(doc) { errors.textContent = ''; frame.srcdoc = doc; });
  }

  window.addEventListener('message', function(event) {
    if (event.data && event.data.type === 'error') {
      var d = event.data;
      errors.textContent = 'Error: ' + d.message + (d.line ? ' (line ' + d.line + (d.col ? ', col ' + d.col : '') + ')' : '');
      fetch('/api/preview/errors', { method: 'POST', headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify({ message: String(d.message), line: d.line || 0, col: d.col || 0 }) });
    }
  });

  document.getElementById('prompt-form').addEventListener('submit', function(e) {
    e.preventDefault();
    var input = document.getElementById('prompt');
    var body = { prompt: input.value };
    if (current) { body.currentComponent = current; }
    fetch('/api/generate-component', { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(body) })
      .then(function(r) { return r.json(); })
      .then(function(result) {
        if (result.type === 'error') { errors.textContent = result.message; return; }
        say(result.message_html || '');
        if (result.type === 'component_update') {
          current = result.component;
          showPreview(result.component);
        }
      });
    input.value = '';
  });

  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  try {
    var ws = new WebSocket(proto + location.host + '/ws');
    ws.onmessage = function(event) {
      var msg = JSON.parse(event.data);
      if (msg.type === 'component_saved' || msg.type === 'component_deleted') { location.reload(); }
    };
  } catch (e) {}
})();
</script>
`

// indexPage renders the shell page listing saved components.
func indexPage(components []*types.SavedComponent, model string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, indexHead); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<aside>\n<h1>Components</h1>\n<ul id=\"components\">\n"); err != nil {
			return err
		}
		for _, c := range components {
			href := "/preview/" + url.PathEscape(c.ID)
			_, err := fmt.Fprintf(w, "<li><a href=\"%s\" target=\"preview\">%s</a></li>\n",
				templ.EscapeString(href), templ.EscapeString(c.Name))
			if err != nil {
				return err
			}
		}
		if len(components) == 0 {
			if _, err := io.WriteString(w, "<li>No saved components</li>\n"); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "</ul>\n<footer>%s &middot; model %s</footer>\n</aside>\n",
			templ.EscapeString(version.GetShortVersion()), templ.EscapeString(model))
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, `<main>
<iframe id="preview" name="preview" title="Component Preview" sandbox="allow-scripts"></iframe>
<div id="errors"></div>
<div id="chat"></div>
<form id="prompt-form"><input id="prompt" name="prompt" placeholder="Describe a component or a change" style="width:80%"> <button type="submit">Send</button></form>
</main>
`)
		if err != nil {
			return err
		}

		if _, err := io.WriteString(w, indexScript); err != nil {
			return err
		}
		_, err = io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

func (s *Server) indexHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		templ.Handler(indexPage(s.registry.List(), s.config.Model.Model)).ServeHTTP(w, r)
	})
}
