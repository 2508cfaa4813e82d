package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

func sampleComponent() *types.Component {
	return &types.Component{
		Name:        "Card",
		Version:     "1.0.0",
		Description: "A card",
		Properties: map[string]types.Property{
			"title": {Value: "Hello", Input: &types.InputDescriptor{Type: types.InputText, Label: "Title"}},
		},
		HTML:       `<div class="card"><h2 class="title"></h2></div>`,
		CSS:        `.card { padding: 1rem; }`,
		JavaScript: `document.querySelector('.title').textContent = window.componentConfig.properties.title.value;`,
	}
}

func TestBuildDocument(t *testing.T) {
	doc, err := BuildDocument("", sampleComponent())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, `<div class="card"><h2 class="title"></h2></div>`)
	assert.Contains(t, doc, `.card { padding: 1rem; }`)
	assert.Contains(t, doc, `document.querySelector('.title').textContent`)
	assert.Contains(t, doc, "window.componentName = \"Card\"")
	assert.Contains(t, doc, "window.componentConfig = JSON.parse(")
	assert.Contains(t, doc, "window.onerror")
	assert.Contains(t, doc, "console.error = function")
	assert.Contains(t, doc, "window.parent.postMessage(payload, '*')")
	assert.Contains(t, doc, "Component initialization error: ")
	assert.Contains(t, doc, "Content-Security-Policy")
}

func TestBuildDocumentName(t *testing.T) {
	tests := []struct {
		name      string
		override  string
		component *types.Component
		want      string
	}{
		{"override wins", "Preview", sampleComponent(), `window.componentName = "Preview"`},
		{"component name", "", sampleComponent(), `window.componentName = "Card"`},
		{"default", "", &types.Component{}, `window.componentName = "New Component"`},
		{"nil component", "", nil, `window.componentName = "New Component"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := BuildDocument(tt.override, tt.component)
			require.NoError(t, err)
			assert.Contains(t, doc, tt.want)
		})
	}
}

func TestBuildDocumentEscapesConfig(t *testing.T) {
	c := sampleComponent()
	c.Description = `</script><script>alert(1)</script>`
	c.Properties["title"] = types.Property{
		Value: `</script><img src=x onerror=alert(2)>`,
		Input: &types.InputDescriptor{Type: types.InputText},
	}

	doc, err := BuildDocument("", c)
	require.NoError(t, err)

	assert.NotContains(t, doc, `</script><script>alert(1)`)
	assert.NotContains(t, doc, `<img src=x onerror=alert(2)>`)
	assert.Equal(t, 1, strings.Count(doc, "</script>"))
}

func TestBuildDocumentEscapesName(t *testing.T) {
	doc, err := BuildDocument(`"</title><script>x()</script>`, sampleComponent())
	require.NoError(t, err)

	assert.NotContains(t, doc, `</title><script>x()`)
}

func TestExternalSources(t *testing.T) {
	markup := `
<link rel="stylesheet" href="https://fonts.example.com/css?family=Inter">
<link rel="icon" href="https://icons.example.com/favicon.ico">
<script src="https://cdn.example.com/lib.js"></script>
<script src="//cdn.example.com/other.js"></script>
<script src="/local.js"></script>
<img src="HTTPS://Images.Example.com/a.png">
<img src="data:image/png;base64,AAAA">
<video src="http://media.example.com/clip.mp4"></video>
<img src="javascript:alert(1)">`

	src, err := ExternalSources(markup)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://cdn.example.com"}, src.Scripts)
	assert.Equal(t, []string{"https://fonts.example.com"}, src.Styles)
	assert.Equal(t, []string{"https://images.example.com"}, src.Images)
	assert.Equal(t, []string{"http://media.example.com"}, src.Media)
}

func TestExternalSourcesEmpty(t *testing.T) {
	src, err := ExternalSources("  ")
	require.NoError(t, err)
	assert.Equal(t, Sources{}, src)

	src, err = ExternalSources(`<div><img src="logo.png"></div>`)
	require.NoError(t, err)
	assert.Empty(t, src.Images)
}

func TestContentSecurityPolicy(t *testing.T) {
	policy := ContentSecurityPolicy(Sources{})
	assert.Equal(t,
		"default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; "+
			"img-src data: blob:; font-src data:; base-uri 'none'; form-action 'none'",
		policy)

	policy = ContentSecurityPolicy(Sources{
		Scripts: []string{"https://cdn.example.com"},
		Media:   []string{"https://media.example.com"},
	})
	assert.Contains(t, policy, "script-src 'unsafe-inline' https://cdn.example.com;")
	assert.Contains(t, policy, "media-src https://media.example.com;")
}

func TestBuildDocumentPolicyIncludesSources(t *testing.T) {
	c := sampleComponent()
	c.HTML = `<script src="https://cdn.example.com/chart.js"></script>` + c.HTML

	doc, err := BuildDocument("", c)
	require.NoError(t, err)
	assert.Contains(t, doc, "https://cdn.example.com; style-src")
}
