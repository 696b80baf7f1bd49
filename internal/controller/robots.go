package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"example.com/robot-bt/internal/agent"
	"example.com/robot-bt/internal/db"
)

type commandRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *Controller) ListRobots(w http.ResponseWriter, r *http.Request) {
	robots, err := c.DB.ListRobots(r.Context())
	if err != nil {
		c.log.Error().Err(err).Msg("list robots failed")
		respondError(w, http.StatusInternalServerError, "failed to list robots")
		return
	}
	respondJSON(w, http.StatusOK, robots)
}

func (c *Controller) GetRobot(w http.ResponseWriter, r *http.Request) {
	agentID, err := parseTailFromPath(r.URL.Path, "/api/robots/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	robot, err := c.DB.GetRobot(r.Context(), agentID)
	if err != nil {
		c.log.Error().Err(err).Str("agent", agentID).Msg("get robot failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch robot")
		return
	}
	if robot == nil {
		respondError(w, http.StatusNotFound, "robot not found")
		return
	}
	respondJSON(w, http.StatusOK, robot)
}

func (c *Controller) DeleteRobot(w http.ResponseWriter, r *http.Request) {
	agentID, err := parseTailFromPath(r.URL.Path, "/api/robots/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if err := c.DB.DeleteRobot(r.Context(), agentID); err != nil {
		c.log.Error().Err(err).Str("agent", agentID).Msg("delete robot failed")
		respondError(w, http.StatusInternalServerError, "failed to delete robot")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RobotCommand publishes a command to a single agent's command topic.
func (c *Controller) RobotCommand(w http.ResponseWriter, r *http.Request) {
	agentID, err := parseSubroutePath(r.URL.Path, "/api/robots/", "/command")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	robot, err := c.DB.GetRobot(r.Context(), agentID)
	if err != nil {
		c.log.Error().Err(err).Str("agent", agentID).Msg("fetch robot for command failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch robot")
		return
	}
	if robot == nil {
		respondError(w, http.StatusNotFound, "robot not found")
		return
	}
	cmd, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	if err := c.publishCommand("fleet/commands/"+agentID, cmd); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to publish command")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent", "agent_id": agentID})
}

// BroadcastCommand publishes a command to every agent at once.
func (c *Controller) BroadcastCommand(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	if err := c.publishCommand("fleet/commands/all", cmd); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to publish command")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent", "agent_id": "all"})
}

func decodeCommand(w http.ResponseWriter, r *http.Request) (agent.Command, bool) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid command payload")
		return agent.Command{}, false
	}
	if req.Type == "" {
		respondError(w, http.StatusBadRequest, "command type required")
		return agent.Command{}, false
	}
	return agent.Command{Type: req.Type, Data: req.Data}, true
}

func (c *Controller) publishCommand(topic string, cmd agent.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	c.log.Info().Str("topic", topic).Str("type", cmd.Type).Msg("command published")
	c.MQTT.Publish(topic, payload)
	return nil
}

type installConfigRequest struct {
	Address string `json:"address"`
	User    string `json:"user"`
	SSHKey  string `json:"ssh_key"`
}

func (c *Controller) UpdateInstallConfig(w http.ResponseWriter, r *http.Request) {
	agentID, err := parseSubroutePath(r.URL.Path, "/api/robots/", "/install-config")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req installConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid install config")
		return
	}
	if req.Address == "" || req.User == "" {
		respondError(w, http.StatusBadRequest, "address and user required")
		return
	}
	cfg := db.InstallConfig{Address: req.Address, User: req.User, SSHKey: req.SSHKey}
	if err := c.DB.SetRobotInstallConfig(r.Context(), agentID, cfg); err != nil {
		c.log.Error().Err(err).Str("agent", agentID).Msg("save install config failed")
		respondError(w, http.StatusInternalServerError, "failed to save install config")
		return
	}
	robot, err := c.DB.GetRobot(r.Context(), agentID)
	if err != nil || robot == nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch robot")
		return
	}
	respondJSON(w, http.StatusOK, robot)
}
