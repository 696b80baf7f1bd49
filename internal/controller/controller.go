package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"example.com/robot-bt/internal/db"
	mqttc "example.com/robot-bt/internal/mqtt"
)

// Controller holds shared dependencies for HTTP handlers and the fleet
// MQTT ingest.
type Controller struct {
	DB   *db.DB
	MQTT *mqttc.Client
	Live *TreeHub

	// OnStatus, when set, is invoked for every robot status report so
	// the HTTP layer can fan it out to event-stream subscribers.
	OnStatus func(agentID string, payload []byte)

	log  zerolog.Logger
	runs sync.Map
}

func New(dbConn *db.DB, mqttClient *mqttc.Client, logger zerolog.Logger) *Controller {
	return &Controller{
		DB:   dbConn,
		MQTT: mqttClient,
		Live: NewTreeHub(),
		log:  logger.With().Str("component", "controller").Logger(),
	}
}

func (c *Controller) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func parseIDFromPath(path, prefix string) (int64, error) {
	tail, err := parseTailFromPath(path, prefix)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(tail, 10, 64)
}

func parseTailFromPath(path, prefix string) (string, error) {
	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("invalid path")
	}
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if tail == "" {
		return "", fmt.Errorf("missing id")
	}
	return tail, nil
}

// parseSubroutePath splits paths of the form <prefix><id>/<suffix>.
func parseSubroutePath(path, prefix, suffix string) (string, error) {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", fmt.Errorf("invalid path")
	}
	trimmed := strings.TrimSuffix(path, suffix)
	trimmed = strings.TrimPrefix(trimmed, prefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", fmt.Errorf("missing id")
	}
	return trimmed, nil
}
