package agent

import "encoding/json"

// Command represents a controller-issued instruction handled by an agent.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StartMissionData replaces the agent's destination queue and optionally
// its drive speed.
type StartMissionData struct {
	Destinations []string `json:"destinations"`
	Speed        float64  `json:"speed,omitempty"`
}

// AddWaypointsData appends destinations to the current queue.
type AddWaypointsData struct {
	Destinations []string `json:"destinations"`
}

// SetSpeedData adjusts the robot's drive speed.
type SetSpeedData struct {
	Speed float64 `json:"speed"`
}
