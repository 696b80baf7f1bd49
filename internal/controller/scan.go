package controller

import (
	"net/http"

	"example.com/robot-bt/internal/scan"
)

// ScanHosts sweeps the local subnets for SSH-reachable hosts that look
// like agent install targets. The scan is synchronous and can take a few
// seconds on a quiet network.
func (c *Controller) ScanHosts(w http.ResponseWriter, r *http.Request) {
	candidates, err := scan.ScanSubnet(nil)
	if err != nil {
		c.log.Error().Err(err).Msg("host scan failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, candidates)
}
