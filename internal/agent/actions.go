package agent

import (
	"context"
	"fmt"

	"example.com/robot-bt/internal/behavior"
)

// Blackboard keys shared between the engine and the leaf actions.
const (
	KeyRobot        = "robot"
	KeyDestinations = "destinations"
	KeyWaypoint     = "waypoint"
	KeyCharging     = "charging"
)

func robotFrom(bb *behavior.Blackboard) *Robot {
	return bb.Get(KeyRobot).(*Robot)
}

// setNextWaypoint pops the next destination off the queue onto the
// blackboard. It fails once the queue is empty, which is how a mission
// signals completion.
func setNextWaypoint(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	if bb.Has(KeyWaypoint) {
		return behavior.StatusSuccess, nil
	}
	dests, _ := bb.Get(KeyDestinations).([]string)
	if len(dests) == 0 {
		return behavior.StatusFailure, nil
	}
	name := dests[0]
	bb.Set(KeyDestinations, dests[1:])
	pos, ok := Locations[name]
	if !ok {
		return behavior.StatusFailure, fmt.Errorf("unknown destination %q", name)
	}
	bb.Set(KeyWaypoint, pos)
	return behavior.StatusSuccess, nil
}

// moveToWaypoint steers the robot toward the blackboard waypoint,
// reporting running until the robot arrives.
func moveToWaypoint(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	wp, ok := bb.Get(KeyWaypoint).(Position)
	if !ok {
		return behavior.StatusFailure, nil
	}
	robot := robotFrom(bb)
	if current, set := robot.Waypoint(); !set || current != wp {
		robot.SetWaypoint(wp)
	}
	if robot.Position().DistanceTo(wp) < arrivalRadius {
		bb.Delete(KeyWaypoint)
		return behavior.StatusSuccess, nil
	}
	return behavior.StatusRunning, nil
}

// setHome targets the charging dock.
func setHome(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	bb.Set(KeyWaypoint, Locations["home"])
	return behavior.StatusSuccess, nil
}

// chargeAtHome keeps running until the battery is full again.
func chargeAtHome(ctx context.Context, bb *behavior.Blackboard) (behavior.Status, error) {
	robot := robotFrom(bb)
	if robot.Battery() < 1.0 {
		bb.Set(KeyCharging, true)
		return behavior.StatusRunning, nil
	}
	bb.Set(KeyCharging, false)
	return behavior.StatusSuccess, nil
}

// hasBattery guards the nominal mission branch.
func hasBattery(threshold float64) behavior.Predicate {
	return func(ctx context.Context, bb *behavior.Blackboard) bool {
		return robotFrom(bb).Battery() > threshold
	}
}
