package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/app"
	"github.com/ternarybob/scribe/internal/common"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir()
	config.Scheduler.Enabled = false

	application, err := app.New(config, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	return New(application)
}

func serve(t *testing.T, srv *Server, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRoutes_UnconfiguredSources(t *testing.T) {
	srv := newTestServer(t)

	rec, body := serve(t, srv, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["chunks"])

	rec, body = serve(t, srv, http.MethodGet, "/api/jobs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["running"])
	assert.Empty(t, body["jobs"])

	rec, _ = serve(t, srv, http.MethodPost, "/reingress")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = serve(t, srv, http.MethodPost, "/chase")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// follow-up routes exist only when Jira is configured
	rec, body = serve(t, srv, http.MethodGet, "/api/followups/AI-7")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/followups/AI-7", body["path"])

	rec, body = serve(t, srv, http.MethodGet, "/api/progress/Platform")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Platform", body["component"])
}

func TestRoutes_MCPInfoAndCORS(t *testing.T) {
	srv := newTestServer(t)

	rec, body := serve(t, srv, http.MethodGet, "/mcp/info")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "scribe", body["name"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = serve(t, srv, http.MethodOptions, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}
