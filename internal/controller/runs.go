package controller

import (
	"net/http"
	"strconv"
)

func (c *Controller) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := c.DB.ListRuns(r.Context(), r.URL.Query().Get("agent_id"), limit)
	if err != nil {
		c.log.Error().Err(err).Msg("list runs failed")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

// RunTicks returns the recorded tick history for a run. The after
// parameter lets clients page through long runs by sequence number.
func (c *Controller) RunTicks(w http.ResponseWriter, r *http.Request) {
	runID, err := parseSubroutePath(r.URL.Path, "/api/runs/", "/ticks")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		after, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
	}
	ticks, err := c.DB.ListTicks(r.Context(), runID, after, 0)
	if err != nil {
		c.log.Error().Err(err).Str("run", runID).Msg("list ticks failed")
		respondError(w, http.StatusInternalServerError, "failed to list ticks")
		return
	}
	respondJSON(w, http.StatusOK, ticks)
}

// RunSnapshot returns the most recent tree snapshot of a run.
func (c *Controller) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	runID, err := parseSubroutePath(r.URL.Path, "/api/runs/", "/snapshot")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	tick, err := c.DB.LatestTick(r.Context(), runID)
	if err != nil {
		c.log.Error().Err(err).Str("run", runID).Msg("latest tick failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch snapshot")
		return
	}
	if tick == nil {
		respondError(w, http.StatusNotFound, "no snapshots recorded for run")
		return
	}
	respondJSON(w, http.StatusOK, tick)
}
