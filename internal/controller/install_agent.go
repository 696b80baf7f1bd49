package controller

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"example.com/robot-bt/internal/agent"
	"example.com/robot-bt/internal/db"
	sshc "example.com/robot-bt/internal/ssh"
)

type installAgentRequest struct {
	AgentID string `json:"agent_id"`
	Address string `json:"address"`
	User    string `json:"user"`
	SSHKey  string `json:"ssh_key"`
	Sudo    bool   `json:"sudo"`
	SudoPwd string `json:"sudo_password"`
}

// InstallAgent pushes the agent binary, its config and a systemd unit to
// a host over SSH and enables the service.
func (c *Controller) InstallAgent(w http.ResponseWriter, r *http.Request) {
	var req installAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" || req.Address == "" || req.User == "" || req.SSHKey == "" {
		respondError(w, http.StatusBadRequest, "agent_id, address, user, and ssh_key required")
		return
	}
	addr := req.Address
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, "22")
	}
	useSudo := req.Sudo || strings.ToLower(req.User) != "root"
	sudoPwd := req.SudoPwd
	if useSudo && sudoPwd == "" {
		sudoPwd = os.Getenv("AGENT_SUDO_PASSWORD")
	}
	if useSudo && sudoPwd == "" {
		respondError(w, http.StatusBadRequest, "sudo password required")
		return
	}
	host := sshc.HostSpec{
		Addr:         addr,
		User:         req.User,
		PrivateKey:   []byte(req.SSHKey),
		UseSudo:      useSudo,
		SudoPassword: sudoPwd,
	}
	binary, err := readAgentBinary(host)
	if err != nil {
		c.log.Error().Err(err).Msg("agent binary unavailable")
		respondError(w, http.StatusInternalServerError, "agent binary unavailable")
		return
	}
	cfg := agent.Config{
		AgentID:    req.AgentID,
		MQTTBroker: agentBrokerURL(),
	}
	if err := sshc.InstallAgent(host, cfg, binary); err != nil {
		c.log.Error().Err(err).Str("addr", addr).Msg("agent install failed")
		msg := "failed to install agent"
		if strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no route to host") || strings.Contains(err.Error(), "i/o timeout") {
			msg = "connection failed, check the address or restart the host"
		}
		respondError(w, http.StatusInternalServerError, msg)
		return
	}
	if err := c.DB.SetRobotInstallConfig(r.Context(), req.AgentID, db.InstallConfig{
		Address: req.Address,
		User:    req.User,
		SSHKey:  req.SSHKey,
	}); err != nil {
		c.log.Error().Err(err).Str("agent", req.AgentID).Msg("save install config failed")
		respondError(w, http.StatusInternalServerError, "failed to save install config")
		return
	}
	robot, err := c.DB.GetRobot(r.Context(), req.AgentID)
	if err != nil || robot == nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch robot")
		return
	}
	c.log.Info().Str("agent", req.AgentID).Str("addr", addr).Msg("agent installed")
	respondJSON(w, http.StatusCreated, robot)
}

// readAgentBinary picks the agent build matching the target host. With
// AGENT_BINARY_DIR set the host architecture is probed over SSH and
// agent-<arch> is used; AGENT_BINARY_PATH overrides with a single build.
func readAgentBinary(host sshc.HostSpec) ([]byte, error) {
	if path := os.Getenv("AGENT_BINARY_PATH"); path != "" {
		return os.ReadFile(path)
	}
	dir := os.Getenv("AGENT_BINARY_DIR")
	if dir == "" {
		dir = "/app/bin"
	}
	arch, err := sshc.DetectArch(host)
	if err != nil {
		return nil, fmt.Errorf("detect arch: %w", err)
	}
	return os.ReadFile(fmt.Sprintf("%s/agent-%s", dir, arch))
}

func agentBrokerURL() string {
	if v := os.Getenv("AGENT_MQTT_BROKER"); v != "" {
		return v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		return v
	}
	return "tcp://127.0.0.1:1883"
}
