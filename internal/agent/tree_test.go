package agent

import (
	"context"
	"testing"
	"time"

	"example.com/robot-bt/internal/behavior"
	"github.com/stretchr/testify/require"
)

// driveMission ticks the mission tree with a simulated robot until it
// terminates or maxTicks elapses, advancing the fake clock by step per
// tick.
func driveMission(t *testing.T, robot *Robot, clock *fakeClock, bb *behavior.Blackboard, threshold float64, step time.Duration, maxTicks int) behavior.Status {
	t.Helper()
	root := MissionTree(threshold)
	tick := root.Enter()
	defer root.Exit()
	for i := 0; i < maxTicks; i++ {
		clock.advance(step)
		robot.Sense()
		status, err := tick(context.Background(), bb)
		require.NoError(t, err)
		if status.IsTerminal() {
			return status
		}
	}
	t.Fatalf("mission did not terminate within %d ticks", maxTicks)
	return behavior.StatusRunning
}

func missionBlackboard(robot *Robot, destinations ...string) *behavior.Blackboard {
	bb := behavior.NewBlackboard()
	bb.Set(KeyRobot, robot)
	bb.Set(KeyDestinations, destinations)
	return bb
}

func TestMissionVisitsAllDestinations(t *testing.T) {
	t.Parallel()

	robot, clock := newTestRobot(1.0, 0, 0)
	bb := missionBlackboard(robot, "north", "east", "home")

	status := driveMission(t, robot, clock, bb, 0.2, 100*time.Millisecond, 200)
	require.Equal(t, behavior.StatusSuccess, status)

	dests, _ := bb.Get(KeyDestinations).([]string)
	require.Empty(t, dests)
	require.True(t, robot.AtHome())
}

func TestMissionEmptyQueueCompletesImmediately(t *testing.T) {
	t.Parallel()

	robot, clock := newTestRobot(1.0, 0, 0)
	bb := missionBlackboard(robot)
	status := driveMission(t, robot, clock, bb, 0.2, 10*time.Millisecond, 5)
	require.Equal(t, behavior.StatusSuccess, status)
}

// A draining battery trips the failsafe: the robot returns home, charges
// to full, and then resumes the remaining destinations.
func TestMissionDivertsToChargeAndResumes(t *testing.T) {
	t.Parallel()

	robot, clock := newTestRobot(1.0, 0.05, 1.0)
	robot.battery = 0.25
	bb := missionBlackboard(robot, "north", "east")

	root := MissionTree(0.2)
	tick := root.Enter()
	defer root.Exit()

	charged := false
	for i := 0; i < 500; i++ {
		clock.advance(100 * time.Millisecond)
		robot.Sense()
		status, err := tick(context.Background(), bb)
		require.NoError(t, err)
		if bb.GetBool(KeyCharging) {
			charged = true
		}
		if status.IsTerminal() {
			require.Equal(t, behavior.StatusSuccess, status)
			require.True(t, charged, "failsafe charge branch never ran")
			dests, _ := bb.Get(KeyDestinations).([]string)
			require.Empty(t, dests)
			return
		}
	}
	t.Fatal("mission did not terminate")
}

func TestMissionSnapshotNamesLeaves(t *testing.T) {
	t.Parallel()

	robot, clock := newTestRobot(1.0, 0, 0)
	bb := missionBlackboard(robot, "north")

	root := MissionTree(0.2)
	tick := root.Enter()
	defer root.Exit()
	clock.advance(10 * time.Millisecond)
	robot.Sense()
	_, err := tick(context.Background(), bb)
	require.NoError(t, err)

	rendered := behavior.Snapshot(root).Render()
	require.Contains(t, rendered, "failsafe")
	require.Contains(t, rendered, "set_next_waypoint")
	require.Contains(t, rendered, "move_to_waypoint")
}
