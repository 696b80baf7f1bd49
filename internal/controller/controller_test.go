package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/robot-bt/internal/agent"
	"example.com/robot-bt/internal/db"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	dbConn, err := db.Open(filepath.Join(t.TempDir(), "controller.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })
	return New(dbConn, nil, zerolog.Nop())
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestMissionLifecycle(t *testing.T) {
	c := newTestController(t)

	body := `{"name":"patrol","description":"corner loop","config_yaml":"name: patrol\ndestinations: [north, east]\n"}`
	rec := doJSON(t, c.CreateMission, http.MethodPost, "/api/missions", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created db.Mission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "patrol", created.Name)

	rec = doJSON(t, c.GetMission, http.MethodGet, "/api/missions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, c.UpdateMission, http.MethodPut, "/api/missions/1",
		`{"name":"patrol","description":"all corners","config_yaml":"name: patrol\ndestinations: [north, east, south, west]\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, c.DispatchMission, http.MethodPost, "/api/missions/1/dispatch", `{"agent_id":"tb-01"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var dispatched map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dispatched))
	require.Equal(t, "tb-01", dispatched["agent_id"])

	rec = doJSON(t, c.DeleteMission, http.MethodDelete, "/api/missions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, c.GetMission, http.MethodGet, "/api/missions/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMissionRejectsBadConfig(t *testing.T) {
	c := newTestController(t)

	rec := doJSON(t, c.CreateMission, http.MethodPost, "/api/missions",
		`{"name":"bad","config_yaml":"name: bad\ndestinations: [atlantis]\n"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, c.CreateMission, http.MethodPost, "/api/missions", `{"config_yaml":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRobotEndpoints(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()
	require.NoError(t, c.DB.UpsertRobotStatus(ctx, "tb-01", "idle", 0.9, 0, 0))

	rec := doJSON(t, c.ListRobots, http.MethodGet, "/api/robots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var robots []db.Robot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &robots))
	require.Len(t, robots, 1)

	rec = doJSON(t, c.GetRobot, http.MethodGet, "/api/robots/tb-01", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, c.GetRobot, http.MethodGet, "/api/robots/tb-99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, c.RobotCommand, http.MethodPost, "/api/robots/tb-01/command",
		`{"type":"set_speed","data":{"speed":0.5}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, c.RobotCommand, http.MethodPost, "/api/robots/tb-99/command",
		`{"type":"stop"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, c.RobotCommand, http.MethodPost, "/api/robots/tb-01/command", `{"data":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, c.BroadcastCommand, http.MethodPost, "/api/robots/command/broadcast",
		`{"type":"stop"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRunEndpoints(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()
	require.NoError(t, c.DB.CreateRun(ctx, "run-1", "tb-01", "patrol"))
	require.NoError(t, c.DB.RecordTick(ctx, "run-1", 1, "RUNNING", `{"node":"mission","ran":true}`))
	require.NoError(t, c.DB.RecordTick(ctx, "run-1", 2, "SUCCESS", `{"node":"mission","ran":true}`))

	rec := doJSON(t, c.ListRuns, http.MethodGet, "/api/runs?agent_id=tb-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []db.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)

	rec = doJSON(t, c.RunTicks, http.MethodGet, "/api/runs/run-1/ticks?after=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ticks []db.TickRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticks))
	require.Len(t, ticks, 1)
	require.Equal(t, int64(2), ticks[0].Seq)

	rec = doJSON(t, c.RunSnapshot, http.MethodGet, "/api/runs/run-1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest db.TickRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Equal(t, int64(2), latest.Seq)
	require.Equal(t, "SUCCESS", latest.Status)

	rec = doJSON(t, c.RunSnapshot, http.MethodGet, "/api/runs/run-9/snapshot", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// fakeMessage satisfies the paho Message interface for ingest tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestFleetStatusIngest(t *testing.T) {
	c := newTestController(t)

	payload, err := json.Marshal(agent.StatusPayload{
		AgentID:  "tb-01",
		RunID:    "run-1",
		Battery:  0.6,
		Position: agent.Position{X: 1, Y: 2},
		Queued:   2,
	})
	require.NoError(t, err)

	var seen string
	c.OnStatus = func(agentID string, _ []byte) { seen = agentID }
	c.handleStatus(nil, fakeMessage{topic: "fleet/status/tb-01", payload: payload})
	require.Equal(t, "tb-01", seen)

	r, err := c.DB.GetRobot(context.Background(), "tb-01")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, "on_mission", r.Status)
	require.InDelta(t, 0.6, r.Battery, 1e-9)
}

func TestFleetStatusIngestFinishesRun(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()
	require.NoError(t, c.DB.CreateRun(ctx, "run-1", "tb-01", ""))

	payload, err := json.Marshal(agent.StatusPayload{
		AgentID: "tb-01",
		RunID:   "run-1",
		Result:  "SUCCESS",
	})
	require.NoError(t, err)
	c.handleStatus(nil, fakeMessage{topic: "fleet/status/tb-01", payload: payload})

	runs, err := c.DB.ListRuns(ctx, "tb-01", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "SUCCESS", runs[0].Result)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestFleetTreeIngest(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	raw := []byte(`{"agent_id":"tb-01","run_id":"run-2","seq":7,"tree":{"node":"mission","status":"RUNNING","ran":true}}`)
	c.handleTree(nil, fakeMessage{topic: "fleet/tree/tb-01", payload: raw})

	runs, err := c.DB.ListRuns(ctx, "tb-01", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "run-2", runs[0].ID)

	tick, err := c.DB.LatestTick(ctx, "run-2")
	require.NoError(t, err)
	require.NotNil(t, tick)
	require.Equal(t, int64(7), tick.Seq)
	require.Equal(t, "RUNNING", tick.Status)
}

func TestTreeHubPublish(t *testing.T) {
	h := NewTreeHub()
	ch := h.subscribe("tb-01")
	defer h.unsubscribe("tb-01", ch)

	h.Publish("tb-01", []byte("frame"))
	h.Publish("tb-02", []byte("other"))

	select {
	case msg := <-ch:
		require.Equal(t, "frame", string(msg))
	default:
		t.Fatal("expected a frame for tb-01")
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected frame %q", msg)
	default:
	}
}
