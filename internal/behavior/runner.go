package behavior

import (
	"context"
	"fmt"
	"time"
)

// Run drives a tree to completion: it enters root once, ticks it at the
// given interval until a terminal status comes back or ctx is cancelled,
// then exits root exactly once, on every path out including error
// propagation. onTick, when non-nil, observes the status of every tick.
func Run(ctx context.Context, root Node, bb *Blackboard, interval time.Duration, onTick func(Status)) (Status, error) {
	if interval <= 0 {
		return StatusRunning, fmt.Errorf("behavior: run interval must be positive, got %v", interval)
	}
	tick := root.Enter()
	defer root.Exit()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := tick(ctx, bb)
		if err != nil {
			return status, err
		}
		if onTick != nil {
			onTick(status)
		}
		if status.IsTerminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return StatusRunning, ctx.Err()
		case <-ticker.C:
		}
	}
}
