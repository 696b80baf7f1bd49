package controller

import (
	"context"
	"encoding/json"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"example.com/robot-bt/internal/agent"
)

const (
	statusTopicPrefix = "fleet/status/"
	treeTopicPrefix   = "fleet/tree/"
)

// SubscribeFleet wires the controller to the agents' status and tree
// topics. Status reports update the robot registry and close out runs;
// tree reports append to the per-run tick history and feed live viewers.
func (c *Controller) SubscribeFleet() {
	if c.MQTT == nil || c.DB == nil {
		return
	}
	c.MQTT.Subscribe(statusTopicPrefix+"+", c.handleStatus)
	c.MQTT.Subscribe(treeTopicPrefix+"+", c.handleTree)
}

func (c *Controller) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	agentID := strings.TrimPrefix(msg.Topic(), statusTopicPrefix)
	if agentID == "" || strings.Contains(agentID, "/") {
		c.log.Warn().Str("topic", msg.Topic()).Msg("unparseable status topic")
		return
	}
	var payload agent.StatusPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		c.log.Warn().Err(err).Str("agent", agentID).Msg("invalid status payload")
		return
	}
	ctx := context.Background()
	state := robotState(payload)
	if err := c.DB.UpsertRobotStatus(ctx, agentID, state, payload.Battery, payload.Position.X, payload.Position.Y); err != nil {
		c.log.Error().Err(err).Str("agent", agentID).Msg("robot upsert failed")
		return
	}
	if payload.Result != "" && payload.RunID != "" {
		if err := c.DB.FinishRun(ctx, payload.RunID, payload.Result); err != nil {
			c.log.Error().Err(err).Str("run", payload.RunID).Msg("finish run failed")
		}
	}
	if c.OnStatus != nil {
		c.OnStatus(agentID, msg.Payload())
	}
}

func (c *Controller) handleTree(_ mqtt.Client, msg mqtt.Message) {
	agentID := strings.TrimPrefix(msg.Topic(), treeTopicPrefix)
	if agentID == "" || strings.Contains(agentID, "/") {
		return
	}
	var payload agent.TreePayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		c.log.Warn().Err(err).Str("agent", agentID).Msg("invalid tree payload")
		return
	}
	if payload.RunID == "" {
		return
	}
	ctx := context.Background()
	if _, seen := c.runs.LoadOrStore(payload.RunID, struct{}{}); !seen {
		if err := c.DB.CreateRun(ctx, payload.RunID, agentID, ""); err != nil {
			c.log.Error().Err(err).Str("run", payload.RunID).Msg("create run failed")
		}
	}
	snap, err := json.Marshal(payload.Tree)
	if err != nil {
		return
	}
	status := ""
	if payload.Tree.Ran {
		status = payload.Tree.Status.String()
	}
	if err := c.DB.RecordTick(ctx, payload.RunID, payload.Seq, status, string(snap)); err != nil {
		c.log.Error().Err(err).Str("run", payload.RunID).Int64("seq", payload.Seq).Msg("record tick failed")
	}
	c.Live.Publish(agentID, msg.Payload())
}

// robotState condenses a status report into the registry's status column.
func robotState(p agent.StatusPayload) string {
	switch {
	case p.Result != "":
		return "finished"
	case p.Charging:
		return "charging"
	case p.Queued > 0:
		return "on_mission"
	default:
		return "idle"
	}
}
