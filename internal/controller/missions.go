package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"example.com/robot-bt/internal/agent"
	"example.com/robot-bt/internal/mission"
)

type missionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ConfigYAML  string `json:"config_yaml"`
}

func (c *Controller) ListMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := c.DB.ListMissions(r.Context())
	if err != nil {
		c.log.Error().Err(err).Msg("list missions failed")
		respondError(w, http.StatusInternalServerError, "failed to list missions")
		return
	}
	respondJSON(w, http.StatusOK, missions)
}

func (c *Controller) CreateMission(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMission(w, r)
	if !ok {
		return
	}
	id, err := c.DB.CreateMission(r.Context(), req.Name, req.Description, req.ConfigYAML)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := c.DB.GetMission(r.Context(), id)
	if err != nil || m == nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch mission")
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (c *Controller) GetMission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDFromPath(r.URL.Path, "/api/missions/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mission id")
		return
	}
	m, err := c.DB.GetMission(r.Context(), id)
	if err != nil {
		c.log.Error().Err(err).Int64("mission", id).Msg("get mission failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch mission")
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "mission not found")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (c *Controller) UpdateMission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDFromPath(r.URL.Path, "/api/missions/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mission id")
		return
	}
	req, ok := decodeMission(w, r)
	if !ok {
		return
	}
	if err := c.DB.UpdateMission(r.Context(), id, req.Name, req.Description, req.ConfigYAML); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := c.DB.GetMission(r.Context(), id)
	if err != nil || m == nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch mission")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (c *Controller) DeleteMission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDFromPath(r.URL.Path, "/api/missions/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mission id")
		return
	}
	if err := c.DB.DeleteMission(r.Context(), id); err != nil {
		c.log.Error().Err(err).Int64("mission", id).Msg("delete mission failed")
		respondError(w, http.StatusInternalServerError, "failed to delete mission")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DispatchMission sends a stored mission to one agent (or all of them)
// as a start_mission command.
func (c *Controller) DispatchMission(w http.ResponseWriter, r *http.Request) {
	idStr, err := parseSubroutePath(r.URL.Path, "/api/missions/", "/dispatch")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mission id")
		return
	}
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "invalid dispatch payload")
		return
	}
	target := req.AgentID
	if target == "" {
		target = "all"
	}
	m, err := c.DB.GetMission(r.Context(), id)
	if err != nil {
		c.log.Error().Err(err).Int64("mission", id).Msg("get mission failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch mission")
		return
	}
	if m == nil {
		respondError(w, http.StatusNotFound, "mission not found")
		return
	}
	spec, err := mission.Parse(m.ConfigYAML)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	data, err := json.Marshal(spec.ToStartMission())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode mission")
		return
	}
	cmd := agent.Command{Type: "start_mission", Data: data}
	if err := c.publishCommand("fleet/commands/"+target, cmd); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to publish command")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":   "dispatched",
		"mission":  m.Name,
		"agent_id": target,
	})
}

func decodeMission(w http.ResponseWriter, r *http.Request) (missionRequest, bool) {
	var req missionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid mission payload")
		return missionRequest{}, false
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "mission name required")
		return missionRequest{}, false
	}
	if req.ConfigYAML != "" {
		if _, err := mission.Parse(req.ConfigYAML); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return missionRequest{}, false
		}
	}
	return req, true
}
