package httpserver

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/robot-bt/internal/controller"
	"example.com/robot-bt/internal/db"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dbConn, err := db.Open(filepath.Join(t.TempDir(), "controller.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })
	s := &Server{
		DB:         dbConn,
		Controller: controller.New(dbConn, nil, zerolog.Nop()),
		Events:     NewSSEBroker(zerolog.Nop()),
		log:        zerolog.Nop(),
	}
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMissionRoutes(t *testing.T) {
	ts := newTestServer(t)

	body := `{"name":"patrol","config_yaml":"name: patrol\ndestinations: [north]\n"}`
	resp, err := http.Post(ts.URL+"/api/missions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/missions")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/missions/1")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// dispatch requires POST
	resp, err = http.Get(ts.URL + "/api/missions/1/dispatch")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRobotRoutesMethodChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/robots", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/robots")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/robots/tb-01")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/runs/run-1/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
