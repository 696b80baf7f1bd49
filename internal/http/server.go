package httpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"example.com/robot-bt/internal/controller"
	"example.com/robot-bt/internal/db"
	mqttc "example.com/robot-bt/internal/mqtt"
)

type Server struct {
	DB         *db.DB
	MQTT       *mqttc.Client
	Controller *controller.Controller
	Events     *SSEBroker

	log zerolog.Logger
}

func NewServer(dbPath string, logger zerolog.Logger) (*Server, error) {
	dbConn, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	mqttClient := mqttc.NewClientWithBroker("controller", brokerURL(), logger)
	ctrl := controller.New(dbConn, mqttClient, logger)
	s := &Server{
		DB:         dbConn,
		MQTT:       mqttClient,
		Controller: ctrl,
		Events:     NewSSEBroker(logger),
		log:        logger.With().Str("component", "http").Logger(),
	}
	ctrl.OnStatus = s.broadcastStatus
	ctrl.SubscribeFleet()
	return s, nil
}

func brokerURL() string {
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		return v
	}
	return "tcp://127.0.0.1:1883"
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/install-agent", s.handleInstallAgent)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/robots", s.handleRobotsCollection)
	mux.HandleFunc("/api/robots/command/broadcast", s.handleRobotCommandBroadcast)
	mux.HandleFunc("/api/robots/", s.handleRobotSubroutes)
	mux.HandleFunc("/api/missions", s.handleMissionsCollection)
	mux.HandleFunc("/api/missions/", s.handleMissionItem)
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/api/runs/", s.handleRunSubroutes)
	mux.HandleFunc("/api/live/", s.Controller.HandleLive)
	mux.Handle("/api/events", s.Events)

	webRoot := os.Getenv("WEB_ROOT")
	if webRoot == "" {
		webRoot = "./web/dist"
	}
	mux.Handle("/", http.FileServer(http.Dir(webRoot)))
	return mux
}

func (s *Server) Start() error {
	addr := ":8080"
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	s.log.Info().Str("addr", addr).Msg("controller listening")
	return http.ListenAndServe(addr, s.routes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Controller.Health(w, r)
}

func (s *Server) handleRobotsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Controller.ListRobots(w, r)
}

func (s *Server) handleRobotSubroutes(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(trimmed, "/command"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.Controller.RobotCommand(w, r)
	case strings.HasSuffix(trimmed, "/install-config"):
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		s.Controller.UpdateInstallConfig(w, r)
	case r.Method == http.MethodGet:
		s.Controller.GetRobot(w, r)
	case r.Method == http.MethodDelete:
		s.Controller.DeleteRobot(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRobotCommandBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.Controller.BroadcastCommand(w, r)
}

func (s *Server) handleMissionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.Controller.ListMissions(w, r)
	case http.MethodPost:
		s.Controller.CreateMission(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMissionItem(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/dispatch") {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.Controller.DispatchMission(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.Controller.GetMission(w, r)
	case http.MethodPut:
		s.Controller.UpdateMission(w, r)
	case http.MethodDelete:
		s.Controller.DeleteMission(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Controller.ListRuns(w, r)
}

func (s *Server) handleRunSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	trimmed := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(trimmed, "/ticks"):
		s.Controller.RunTicks(w, r)
	case strings.HasSuffix(trimmed, "/snapshot"):
		s.Controller.RunSnapshot(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleInstallAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.Controller.InstallAgent(w, r)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.Controller.ScanHosts(w, r)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// broadcastStatus wraps a raw agent status report in an SSE event
// envelope for dashboard subscribers.
func (s *Server) broadcastStatus(agentID string, payload []byte) {
	event := struct {
		Event   string          `json:"event"`
		AgentID string          `json:"agent_id"`
		Data    json.RawMessage `json:"data"`
	}{Event: "status", AgentID: agentID, Data: payload}
	buf, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.Events.Broadcast(string(buf))
}
