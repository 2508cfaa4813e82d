package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmckenna-gumgum/component-builder/internal/config"
	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/logging"
	"github.com/dmckenna-gumgum/component-builder/internal/registry"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/websocket"
)

type fakeGenerator struct {
	mu     sync.Mutex
	result types.Result
	got    []types.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req types.GenerateRequest) types.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.result
}

func newTestServer(t *testing.T, gen Generator) (*Server, *registry.ComponentRegistry) {
	t.Helper()
	cfg := config.Default()
	reg := registry.NewComponentRegistry()
	if gen == nil {
		gen = &fakeGenerator{}
	}
	return New(cfg, gen, reg, nil, nil), reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) types.Result {
	t.Helper()
	var result types.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestGenerateEndpoint(t *testing.T) {
	comp := &types.Component{Name: "Card", Version: "1.0.0", Description: "d", Properties: map[string]types.Property{}}

	tests := []struct {
		name       string
		result     types.Result
		wantStatus int
		wantType   types.ResultType
	}{
		{
			name:       "conversation",
			result:     types.Result{Type: types.ResultConversation, Message: "Use **grid**."},
			wantStatus: http.StatusOK,
			wantType:   types.ResultConversation,
		},
		{
			name:       "component update",
			result:     types.Result{Type: types.ResultComponentUpdate, Message: "Done", Component: comp},
			wantStatus: http.StatusOK,
			wantType:   types.ResultComponentUpdate,
		},
		{
			name:       "schema error",
			result:     types.Result{Type: types.ResultError, Message: "bad", Err: errors.NewMissingRequiredFieldError("html")},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   types.ResultError,
		},
		{
			name:       "upstream error",
			result:     types.Result{Type: types.ResultError, Message: "bad", Err: errors.NewUpstreamError(500, "", nil)},
			wantStatus: http.StatusBadGateway,
			wantType:   types.ResultError,
		},
		{
			name:       "timeout",
			result:     types.Result{Type: types.ResultError, Message: "slow", Err: errors.NewTimeoutError(nil)},
			wantStatus: http.StatusGatewayTimeout,
			wantType:   types.ResultError,
		},
		{
			name:       "validation",
			result:     types.Result{Type: types.ResultError, Message: "prompt", Err: errors.NewValidationError(errors.ErrCodeValidationFailed, "prompt is required")},
			wantStatus: http.StatusBadRequest,
			wantType:   types.ResultError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{result: tt.result}
			srv, _ := newTestServer(t, gen)

			rec := do(t, srv.Handler(), http.MethodPost, "/api/generate-component",
				`{"prompt":"make a card","currentComponent":{"name":"Old"}}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			result := decodeResult(t, rec)
			assert.Equal(t, tt.wantType, result.Type)

			require.Len(t, gen.got, 1)
			assert.Equal(t, "make a card", gen.got[0].Prompt)
			require.NotNil(t, gen.got[0].CurrentComponent)
			assert.Equal(t, "Old", *gen.got[0].CurrentComponent.Name)

			if tt.wantType == types.ResultError {
				assert.Empty(t, result.MessageHTML)
			} else {
				assert.NotEmpty(t, result.MessageHTML)
			}
		})
	}
}

func TestGenerateEndpointRendersMarkdown(t *testing.T) {
	gen := &fakeGenerator{result: types.Result{Type: types.ResultConversation, Message: "Use **grid** <script>x()</script>"}}
	srv, _ := newTestServer(t, gen)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/generate-component", `{"prompt":"hi"}`)
	result := decodeResult(t, rec)
	assert.Contains(t, result.MessageHTML, "<strong>grid</strong>")
	assert.NotContains(t, result.MessageHTML, "<script>")
	assert.Contains(t, result.Message, "**grid**")
}

func TestGenerateEndpointBadBody(t *testing.T) {
	gen := &fakeGenerator{}
	srv, _ := newTestServer(t, gen)

	for _, body := range []string{"", "{not json"} {
		rec := do(t, srv.Handler(), http.MethodPost, "/api/generate-component", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, types.ResultError, decodeResult(t, rec).Type)
	}
	assert.Empty(t, gen.got)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/generate-component", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestComponentCRUD(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/components", `{"id":"ignored","name":"Card","html":"<p>hi</p>"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.SavedComponent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, "ignored", created.ID)
	assert.Equal(t, "Card", created.Name)

	rec = do(t, h, http.MethodGet, "/api/components/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/components/"+created.ID, `{"name":"Card v2","html":"<p>v2</p>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Card v2", got.Name)

	rec = do(t, h, http.MethodPost, "/api/components/"+created.ID+"/duplicate", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var dup types.SavedComponent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dup))
	assert.Equal(t, "Card v2 (Copy)", dup.Name)

	rec = do(t, h, http.MethodGet, "/api/components", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.SavedComponent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = do(t, h, http.MethodDelete, "/api/components/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, reg.Count())
}

func TestComponentErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"get missing", http.MethodGet, "/api/components/missing", "", http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/components/missing", `{"name":"x"}`, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/components/missing", "", http.StatusNotFound},
		{"duplicate missing", http.MethodPost, "/api/components/missing/duplicate", "", http.StatusNotFound},
		{"create without name", http.MethodPost, "/api/components", `{"name":"  "}`, http.StatusBadRequest},
		{"create bad json", http.MethodPost, "/api/components", `[`, http.StatusBadRequest},
		{"preview missing", http.MethodGet, "/preview/missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, types.ResultError, decodeResult(t, rec).Type)
		})
	}
}

func TestPreviewSavedComponent(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	require.NoError(t, reg.SeedDefaults())

	rec := do(t, srv.Handler(), http.MethodGet, "/preview/"+registry.DefaultWeatherID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'self'")
	body := rec.Body.String()
	assert.Contains(t, body, `id="weather-container"`)
	assert.Contains(t, body, `window.componentName = "Weather Widget"`)
}

func TestPreviewDraft(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/preview",
		`{"name":"Draft","html":"<script src=\"https://cdn.example.com/x.js\"></script><b>x</b>","css":"b{}","javascript":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://cdn.example.com")
	assert.Contains(t, rec.Body.String(), "<b>x</b>")
}

func TestPreviewErrorReport(t *testing.T) {
	cfg := config.Default()
	hub := websocket.NewHub([]string{"*"}, nil)
	defer hub.Shutdown(context.Background())
	srv := New(cfg, &fakeGenerator{}, registry.NewComponentRegistry(), hub, nil)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/preview/errors", `{"componentId":"a","message":"x is not defined","line":2}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, srv.Handler(), http.MethodPost, "/api/preview/errors", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, srv.Handler(), http.MethodPost, "/api/preview/errors", `{"componentId":"b","message":"boom"}`)

	rec = do(t, srv.Handler(), http.MethodGet, "/api/preview/errors?component=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "x is not defined", listed[0]["message"])
	assert.Equal(t, float64(2), listed[0]["line"])
	assert.Contains(t, listed[0], "timestamp")

	rec = do(t, srv.Handler(), http.MethodDelete, "/api/preview/errors?component=a", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv.Handler(), http.MethodGet, "/api/preview/errors", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "b", listed[0]["componentId"])
}

func TestComponentTemplate(t *testing.T) {
	srv, reg := newTestServer(t, nil)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/components/template", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var comp types.Component
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comp))
	assert.Equal(t, "New Component", comp.Name)
	assert.NotEmpty(t, comp.HTML)
	assert.Contains(t, comp.Properties, "backgroundColor")
	assert.Equal(t, 0, reg.Count())
}

func TestUpdateClearsPreviewErrors(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	saved, err := reg.Save(&types.SavedComponent{Name: "Card"})
	require.NoError(t, err)

	do(t, srv.Handler(), http.MethodPost, "/api/preview/errors", `{"componentId":"`+saved.ID+`","message":"boom"}`)
	require.Len(t, srv.previewErrors.ErrorsFor(saved.ID), 1)

	rec := do(t, srv.Handler(), http.MethodPut, "/api/components/"+saved.ID, `{"name":"Card v2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.previewErrors.ErrorsFor(saved.ID))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.config.Model.APIKey = "sk-secret-value"

	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"status":"configured"`)
	assert.NotContains(t, rec.Body.String(), "sk-secret-value")
}

func TestIndexPage(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	_, err := reg.Save(&types.SavedComponent{ID: "card", Name: "<Card & Co>"})
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, `href="/preview/card"`)
	assert.Contains(t, body, "&lt;Card &amp; Co&gt;")
	assert.NotContains(t, body, "<Card & Co>")

	rec = do(t, srv.Handler(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name        string
		development bool
		origin      string
		method      string
		wantOrigin  string
		wantStatus  int
	}{
		{"allowed origin", false, "http://localhost:3000", http.MethodGet, "http://localhost:3000", http.StatusOK},
		{"unknown origin in production", false, "http://evil.example.com", http.MethodGet, "", http.StatusOK},
		{"unknown origin in development", true, "http://evil.example.com", http.MethodGet, "*", http.StatusOK},
		{"preflight", false, "http://localhost:3000", http.MethodOptions, "http://localhost:3000", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORSMiddleware([]string{"http://localhost:3000"}, tt.development)(ok)
			req := httptest.NewRequest(tt.method, "/api/components", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(logging.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, types.ResultError, decodeResult(t, rec).Type)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Post(url, "application/json", bytes.NewReader(nil))
	assert.Error(t, err)
}
