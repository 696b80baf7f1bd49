package behavior

import (
	"context"
	"testing"
)

// The standard actions used across the composite tests. Each helper
// returns a factory so table entries get a fresh node per case.

func alwaysOK() Node {
	return Action("always_ok", func(ctx context.Context, bb *Blackboard) (Status, error) {
		return StatusSuccess, nil
	})
}

func alwaysFail() Node {
	return Action("always_fail", func(ctx context.Context, bb *Blackboard) (Status, error) {
		return StatusFailure, nil
	})
}

func alwaysRunning() Node {
	return Action("always_running", func(ctx context.Context, bb *Blackboard) (Status, error) {
		return StatusRunning, nil
	})
}

func neverRuns(t *testing.T) Node {
	return Action("never_runs", func(ctx context.Context, bb *Blackboard) (Status, error) {
		t.Fatalf("action should not run")
		return StatusFailure, nil
	})
}

// runThen returns StatusRunning for count ticks, then result forever.
func runThen(result Status, count int) Node {
	remaining := count
	return Action("run_then", func(ctx context.Context, bb *Blackboard) (Status, error) {
		if remaining > 0 {
			remaining--
			return StatusRunning, nil
		}
		return result, nil
	})
}

func runThenOK() Node   { return runThen(StatusSuccess, 1) }
func runThenFail() Node { return runThen(StatusFailure, 1) }

// counted wraps a node and tallies its enter/exit calls.
type counted struct {
	Node
	enters int
	exits  int
}

func count(n Node) *counted { return &counted{Node: n} }

func (c *counted) Enter() Tick {
	c.enters++
	return c.Node.Enter()
}

func (c *counted) Exit() {
	c.exits++
	c.Node.Exit()
}

// tickAll enters root, asserts the expected status sequence tick by tick,
// and exits root.
func tickAll(t *testing.T, root Node, expected []Status) {
	t.Helper()
	bb := NewBlackboard()
	tick := root.Enter()
	defer root.Exit()
	for i, want := range expected {
		got, err := tick(context.Background(), bb)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Fatalf("tick %d: got %v, want %v", i, got, want)
		}
	}
}
