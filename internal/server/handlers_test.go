package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"index.html": "<html><body>parley</body></html>",
		"app.js":     "console.log('parley');",
		"style.css":  "body { margin: 0; }",
		"notes.txt":  "plain text",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{StaticDir: dir})
	return dir
}

func doStatic(t *testing.T, method, path string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	StaticHandler(rec, req)
	return rec.Result()
}

func TestStaticHandlerServesIndexAtRoot(t *testing.T) {
	staticFixture(t)

	resp := doStatic(t, http.MethodGet, "/")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "parley")
}

func TestStaticHandlerContentTypes(t *testing.T) {
	staticFixture(t)

	cases := map[string]string{
		"/index.html": "text/html",
		"/app.js":     "application/javascript",
		"/style.css":  "text/css",
	}
	for path, want := range cases {
		resp := doStatic(t, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, resp.Header.Get("Content-Type"), path)
		resp.Body.Close()
	}

	// Extensions outside the client's vocabulary get no Content-Type header.
	assert.Empty(t, contentTypeFor("notes.txt"))
}

func TestStaticHandlerRejectsTraversal(t *testing.T) {
	staticFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/legit", nil)
	req.URL.Path = "/../secrets"
	rec := httptest.NewRecorder()
	StaticHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticHandlerMissingFile(t *testing.T) {
	staticFixture(t)

	resp := doStatic(t, http.MethodGet, "/nope.html")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticHandlerMethodNotAllowed(t *testing.T) {
	staticFixture(t)

	resp := doStatic(t, http.MethodPost, "/index.html")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	resp := rec.Result()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "running")
}

func TestWebSocketHandlerRejectsNonGet(t *testing.T) {
	rec := httptest.NewRecorder()
	WebSocketHandler(rec, httptest.NewRequest(http.MethodPost, "/ws", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
