// Package renderer turns the model's explanation text into safe HTML for
// the chat panel.
//
// Explanations are Markdown. They are rendered with gomarkdown and the
// output is passed through a bluemonday UGC policy, since the text comes
// straight from the model.
package renderer

import (
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
	})
	return policy
}

// Markdown renders md to sanitized HTML. Blank input renders to "".
func Markdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	// parsers keep state and are not reusable
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	out := markdown.Render(doc, r)

	return strings.TrimSpace(string(sanitizer().SanitizeBytes(out)))
}

// Attach fills MessageHTML on conversation and component_update results.
// Error results are left alone.
func Attach(r *types.Result) {
	if r == nil || r.Type == types.ResultError {
		return
	}
	r.MessageHTML = Markdown(r.Message)
}
