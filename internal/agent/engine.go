package agent

import (
	"context"
	"encoding/json"
	"time"

	"example.com/robot-bt/internal/behavior"
	mqttc "example.com/robot-bt/internal/mqtt"
	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatusPayload is the retained heartbeat published to
// fleet/status/<agent_id>.
type StatusPayload struct {
	AgentID  string   `json:"agent_id"`
	RunID    string   `json:"run_id"`
	TS       string   `json:"ts"`
	Position Position `json:"position"`
	Battery  float64  `json:"battery"`
	Charging bool     `json:"charging"`
	Queued   int      `json:"queued"`
	Result   string   `json:"result,omitempty"`
}

// TreePayload carries a tree snapshot per tick on fleet/tree/<agent_id>.
type TreePayload struct {
	AgentID string                `json:"agent_id"`
	RunID   string                `json:"run_id"`
	Seq     int64                 `json:"seq"`
	TS      string                `json:"ts"`
	Tree    behavior.TreeSnapshot `json:"tree"`
}

// Engine owns a robot, its blackboard and the behavior tree that drives
// it. Commands arrive over MQTT and are applied between ticks; everything
// else happens inside the synchronous tick loop.
type Engine struct {
	Config     Config
	MQTTClient *mqttc.Client
	Robot      *Robot
	Blackboard *behavior.Blackboard

	tree    behavior.Node
	mission behavior.Node
	cmdChan chan Command
	log     zerolog.Logger

	runID      string
	seq        int64
	lastStatus time.Time
	finished   bool
}

func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	e := &Engine{
		Config:     cfg,
		Robot:      NewRobot(cfg.Speed, cfg.DischargeRate, cfg.ChargeRate),
		Blackboard: behavior.NewBlackboard(),
		cmdChan:    make(chan Command, 10),
		log:        logger.With().Str("agent_id", cfg.AgentID).Logger(),
		runID:      uuid.NewString(),
	}
	e.Blackboard.Set(KeyRobot, e.Robot)
	e.Blackboard.Set(KeyDestinations, append([]string(nil), cfg.Destinations...))
	return e
}

// Start connects to the broker and runs the tree until the mission
// terminates or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) (behavior.Status, error) {
	e.connectMQTT()
	e.tree = e.buildTree()

	e.log.Info().Str("run_id", e.runID).Msg("agent engine started")
	status, err := behavior.Run(ctx, e.tree, e.Blackboard, e.Config.TickInterval, nil)
	if err == nil {
		e.finished = true
		e.publishStatusNow(status)
	}
	e.log.Info().Stringer("result", status).Err(err).Msg("agent engine stopped")
	return status, err
}

func (e *Engine) connectMQTT() {
	onConnect := func(c mqttlib.Client) {
		e.log.Info().Msg("mqtt connected")
		for _, topic := range []string{
			"fleet/commands/" + e.Config.AgentID,
			"fleet/commands/all",
		} {
			if token := c.Subscribe(topic, 0, e.mqttHandler); token.Wait() && token.Error() != nil {
				e.log.Warn().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
			}
		}
	}
	e.MQTTClient = mqttc.NewClientWithHandler("agent-"+e.Config.AgentID, e.Config.MQTTBroker, onConnect, e.log)
}

func (e *Engine) mqttHandler(_ mqttlib.Client, msg mqttlib.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		e.log.Warn().Err(err).Msg("invalid command JSON")
		return
	}
	select {
	case e.cmdChan <- cmd:
		e.log.Info().Str("type", cmd.Type).Msg("queued command")
	default:
		e.log.Warn().Str("type", cmd.Type).Msg("command queue full, dropping")
	}
}

// buildTree composes the mission subtree with the housekeeping children.
// The housekeeping leaves never terminate; the evaluator forwards the
// mission child's status so it alone decides the overall result.
func (e *Engine) buildTree() behavior.Node {
	e.mission = MissionTree(e.Config.BatteryThreshold)
	missionResult := func(statuses []behavior.Status) behavior.Status {
		return statuses[len(statuses)-1]
	}
	return behavior.Parallel(missionResult,
		behavior.Action("sense", e.sense),
		behavior.Action("process_commands", e.processCommands),
		behavior.Action("publish_status", e.publishStatus),
		e.mission,
	)
}

// --- housekeeping leaves ---

func (e *Engine) sense(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	e.Robot.Sense()
	return behavior.StatusRunning, nil
}

func (e *Engine) processCommands(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	for {
		select {
		case cmd := <-e.cmdChan:
			if err := e.apply(cmd, bb); err != nil {
				e.log.Warn().Err(err).Str("type", cmd.Type).Msg("command rejected")
			}
		default:
			return behavior.StatusRunning, nil
		}
	}
}

func (e *Engine) publishStatus(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	e.seq++
	if time.Since(e.lastStatus) < e.Config.StatusInterval {
		return behavior.StatusRunning, nil
	}
	e.lastStatus = time.Now()
	e.publishStatusNow(behavior.StatusRunning)

	snap := TreePayload{
		AgentID: e.Config.AgentID,
		RunID:   e.runID,
		Seq:     e.seq,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Tree:    behavior.Snapshot(e.mission),
	}
	if buf, err := json.Marshal(snap); err == nil {
		e.MQTTClient.Publish("fleet/tree/"+e.Config.AgentID, buf)
	}
	return behavior.StatusRunning, nil
}

func (e *Engine) publishStatusNow(result behavior.Status) {
	dests, _ := e.Blackboard.Get(KeyDestinations).([]string)
	payload := StatusPayload{
		AgentID:  e.Config.AgentID,
		RunID:    e.runID,
		TS:       time.Now().UTC().Format(time.RFC3339),
		Position: e.Robot.Position(),
		Battery:  e.Robot.Battery(),
		Charging: e.Blackboard.GetBool(KeyCharging),
		Queued:   len(dests),
	}
	if e.finished {
		payload.Result = result.String()
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		e.log.Warn().Err(err).Msg("status marshal failed")
		return
	}
	e.MQTTClient.PublishRetained("fleet/status/"+e.Config.AgentID, buf)
}

func (e *Engine) apply(cmd Command, bb *behavior.Blackboard) error {
	switch cmd.Type {
	case "start_mission":
		var data StartMissionData
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			return err
		}
		bb.Set(KeyDestinations, append([]string(nil), data.Destinations...))
		if data.Speed > 0 {
			e.Robot.SetSpeed(data.Speed)
		}
	case "add_waypoints":
		var data AddWaypointsData
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			return err
		}
		dests, _ := bb.Get(KeyDestinations).([]string)
		bb.Set(KeyDestinations, append(dests, data.Destinations...))
	case "set_speed":
		var data SetSpeedData
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			return err
		}
		e.Robot.SetSpeed(data.Speed)
	case "stop":
		// Empty the queue; the mission terminates once the current
		// waypoint (if any) is resolved.
		bb.Set(KeyDestinations, []string(nil))
		bb.Delete(KeyWaypoint)
		e.Robot.ClearWaypoint()
	default:
		e.log.Warn().Str("type", cmd.Type).Msg("unknown command type")
	}
	return nil
}
