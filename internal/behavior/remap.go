package behavior

import (
	"context"
	"fmt"
)

// remap translates the wrapped child's status through a fixed table. It
// has no state of its own beyond delegating enter/exit to the child.
type remap struct {
	activation
	name    string
	child   Node
	mapping map[Status]Status
	tick    Tick
}

// Remap applies the mapping table to whatever the child returns on every
// tick, StatusRunning included when the table lists it. Statuses absent
// from the table pass through unchanged.
func Remap(child Node, mapping map[Status]Status) Node {
	for from, to := range mapping {
		if !from.valid() || !to.valid() {
			panic(fmt.Sprintf("behavior: invalid remap entry %v -> %v", from, to))
		}
	}
	return &remap{name: "remap", child: child, mapping: mapping}
}

// Swap exchanges statuses a and b reciprocally, leaving the third status
// untouched.
func Swap(child Node, a, b Status) Node {
	if a == b {
		panic(fmt.Sprintf("behavior: cannot swap %v with itself", a))
	}
	n := Remap(child, map[Status]Status{a: b, b: a}).(*remap)
	n.name = "swap"
	return n
}

// Invert swaps StatusSuccess and StatusFailure, passing StatusRunning
// through unchanged.
func Invert(child Node) Node {
	return Swap(child, StatusSuccess, StatusFailure)
}

// Always reports the fixed terminal status to once the child reaches any
// terminal state; StatusRunning still passes through.
func Always(child Node, to Status) Node {
	if !to.IsTerminal() {
		panic(fmt.Sprintf("behavior: always requires a terminal status, got %v", to))
	}
	n := Remap(child, map[Status]Status{StatusSuccess: to, StatusFailure: to}).(*remap)
	n.name = "always"
	return n
}

func (r *remap) Name() string { return r.name }

func (r *remap) Enter() Tick {
	r.activation.enter()
	r.tick = r.child.Enter()
	return r.doTick
}

func (r *remap) Exit() {
	r.activation.exit()
	r.tick = nil
	r.child.Exit()
}

func (r *remap) doTick(ctx context.Context, bb *Blackboard) (Status, error) {
	if !r.entered {
		panic(ErrNotEntered)
	}
	status, err := r.tick(ctx, bb)
	if err != nil {
		return status, err
	}
	if to, ok := r.mapping[status]; ok {
		status = to
	}
	r.record(status)
	return status, nil
}

func (r *remap) snapshot() TreeSnapshot {
	return TreeSnapshot{
		Node:     r.name,
		Status:   r.last,
		Ran:      r.ran,
		Children: childSnapshots([]Node{r.child}),
	}
}
