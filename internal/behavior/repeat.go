package behavior

import (
	"context"
	"fmt"
)

// Unlimited removes the regeneration cap on Repeat, Retry and Redo.
const Unlimited = -1

type repeat struct {
	activation
	factory    Factory
	continueIf Status
	limit      int
	count      int
	child      Node
	tick       Tick
}

// Repeat regenerates its child from the factory whenever the child
// terminates with continueIf, up to limit regenerations (Unlimited for no
// cap). The opposite terminal status, or exhausting the cap, terminates
// the repeat with the child's status. At most one regeneration happens per
// outer tick; the fresh child is first ticked on the following call.
func Repeat(continueIf Status, limit int, factory Factory) Node {
	if !continueIf.IsTerminal() {
		panic(fmt.Sprintf("behavior: repeat cannot continue on %v", continueIf))
	}
	if limit < Unlimited {
		panic(fmt.Sprintf("behavior: invalid repeat limit %d", limit))
	}
	return &repeat{factory: factory, continueIf: continueIf, limit: limit}
}

// Retry repeats on failure: the child is regenerated until it succeeds or
// limit regenerations have been spent.
func Retry(limit int, factory Factory) Node {
	return Repeat(StatusFailure, limit, factory)
}

// Redo repeats on success, typically wrapped around a Failsafe so the
// fallback branch can break the loop.
func Redo(limit int, factory Factory) Node {
	return Repeat(StatusSuccess, limit, factory)
}

func (r *repeat) Name() string { return "repeat" }

func (r *repeat) Enter() Tick {
	r.activation.enter()
	r.count = 0
	r.child = nil
	r.tick = nil
	return r.doTick
}

func (r *repeat) Exit() {
	r.activation.exit()
	if r.child != nil {
		child := r.child
		r.child = nil
		r.tick = nil
		child.Exit()
	}
}

func (r *repeat) doTick(ctx context.Context, bb *Blackboard) (Status, error) {
	r.check()
	if r.child == nil {
		r.child = r.factory()
		r.tick = r.child.Enter()
	}
	status, err := r.tick(ctx, bb)
	if err != nil {
		return status, err
	}
	if status == StatusRunning {
		r.record(StatusRunning)
		return StatusRunning, nil
	}
	child := r.child
	r.child = nil
	r.tick = nil
	child.Exit()
	if status != r.continueIf || (r.limit != Unlimited && r.count >= r.limit) {
		r.done = true
		r.record(status)
		return status, nil
	}
	r.count++
	r.record(StatusRunning)
	return StatusRunning, nil
}

func (r *repeat) snapshot() TreeSnapshot {
	snap := TreeSnapshot{Node: r.Name(), Status: r.last, Ran: r.ran}
	if r.child != nil {
		snap.Children = childSnapshots([]Node{r.child})
	}
	return snap
}
