package agent

import "example.com/robot-bt/internal/behavior"

// MissionTree builds the navigation behavior for one mission: drive to
// each queued destination in turn, diverting to the charging dock
// whenever the battery guard trips. The failsafe is wrapped in a redo so
// that a completed charge restarts the nominal branch; the mission
// terminates once the destination queue is exhausted, which the outer
// remap reports as success.
func MissionTree(batteryThreshold float64) behavior.Node {
	navigate := func() behavior.Node {
		return behavior.Sequence(
			behavior.Action("set_next_waypoint", setNextWaypoint),
			behavior.Action("move_to_waypoint", moveToWaypoint),
		)
	}
	mission := func() behavior.Node {
		return behavior.Failsafe(
			hasBattery(batteryThreshold),
			behavior.Redo(behavior.Unlimited, navigate),
			behavior.Sequence(
				behavior.Action("set_home", setHome),
				behavior.Action("move_to_waypoint", moveToWaypoint),
				behavior.Action("charge_at_home", chargeAtHome),
			),
		)
	}
	return behavior.Always(behavior.Redo(behavior.Unlimited, mission), behavior.StatusSuccess)
}
