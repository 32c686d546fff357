package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/surfview/pkg/metrics"
	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/orchestrate"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []string
	opened   []string
	result   models.RenderResult
	inflight []orchestrate.Render
}

func (f *fakeRenderer) RenderURL(ctx context.Context, raw string) models.RenderResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, raw)
	return f.result
}

func (f *fakeRenderer) OpenExternal(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, raw)
}

func (f *fakeRenderer) Inflight() []orchestrate.Render {
	return f.inflight
}

func newTestRouter(r Renderer, m *metrics.Metrics) *gin.Engine {
	return NewRouter(NewHandlers(r, "test", newTestEntry()), m, newTestEntry())
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRender_Success(t *testing.T) {
	fr := &fakeRenderer{result: models.Success(
		[]byte("png"),
		[]models.LinkRecord{{Href: sanitize.MustParse("https://a.com/x"), Label: "x", Kind: models.LinkKindInternal}},
		"Title",
		sanitize.MustParse("https://a.com/"),
		42*time.Millisecond,
	)}
	router := newTestRouter(fr, nil)

	rec := do(router, http.MethodPost, "/api/v1/render", `{"url":"a.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a.com"}, fr.rendered)
	assert.JSONEq(t, `{
		"ok": true,
		"imageBase64": "cG5n",
		"links": [{"href": "https://a.com/x", "label": "x", "type": "internal"}],
		"title": "Title",
		"url": "https://a.com/",
		"renderMs": 42
	}`, rec.Body.String())
}

func TestRender_FailureIsStill200(t *testing.T) {
	fr := &fakeRenderer{result: models.Failure("Invalid or unsafe URL.")}
	router := newTestRouter(fr, nil)

	rec := do(router, http.MethodPost, "/api/v1/render", `{"url":"javascript:alert(1)"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Invalid or unsafe URL."}`, rec.Body.String())
}

func TestRender_BadBody(t *testing.T) {
	fr := &fakeRenderer{}
	router := newTestRouter(fr, nil)

	rec := do(router, http.MethodPost, "/api/v1/render", `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.NotEmpty(t, body["error"])
	assert.Empty(t, fr.rendered)
}

func TestRender_OversizedBody(t *testing.T) {
	fr := &fakeRenderer{}
	router := newTestRouter(fr, nil)

	rec := do(router, http.MethodPost, "/api/v1/render", `{"url":"`+strings.Repeat("a", maxBodyBytes)+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fr.rendered)
}

func TestOpen(t *testing.T) {
	fr := &fakeRenderer{}
	router := newTestRouter(fr, nil)

	rec := do(router, http.MethodPost, "/api/v1/open", `{"url":"example.com/file.pdf"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"example.com/file.pdf"}, fr.opened)
}

func TestRendersAndHealth(t *testing.T) {
	fr := &fakeRenderer{inflight: []orchestrate.Render{{ID: "abc", Host: "a.com", Status: orchestrate.RenderStatusRunning}}}
	router := newTestRouter(fr, nil)

	rec := do(router, http.MethodGet, "/api/v1/renders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"abc"`)
	assert.Contains(t, rec.Body.String(), `"status":"running"`)

	rec = do(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"inflight":1`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	router := newTestRouter(&fakeRenderer{result: models.Failure("x")}, m)

	do(router, http.MethodPost, "/api/v1/render", `{"url":"a.com"}`)
	do(router, http.MethodGet, "/nope", "")

	rec := do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `surfview_http_requests_total{method="POST",path="/api/v1/render",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `path="unmatched",status="404"`)
}

func TestMetricsEndpoint_AbsentWithoutMetrics(t *testing.T) {
	router := newTestRouter(&fakeRenderer{}, nil)
	rec := do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", newTestRouter(&fakeRenderer{}, nil), newTestEntry())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
