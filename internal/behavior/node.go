package behavior

import (
	"context"
	"errors"
)

// Tick advances a node by one synchronous evaluation step. Implementations
// must not block; long-running work belongs in external goroutines polled
// with StatusRunning. Returned errors propagate to the root caller
// unmodified.
type Tick func(ctx context.Context, bb *Blackboard) (Status, error)

// Predicate guards a subtree. It is evaluated against the blackboard and
// must be cheap and side-effect free.
type Predicate func(ctx context.Context, bb *Blackboard) bool

// Node is the unit of tree composition. Enter performs setup for one
// activation and returns the tick function to drive it; Exit releases
// whatever Enter acquired.
//
// Whoever enters a Node owns its tick function and must call Exit exactly
// once for that activation, on every path out: normal completion,
// abandonment by a parent, and error propagation. A Node may be entered
// again after it has been exited; it must never be entered twice without
// an Exit in between, and a tick function must never be called outside its
// activation.
type Node interface {
	Name() string
	Enter() Tick
	Exit()
}

// Factory produces a fresh Node per call. Repeat-style composites invoke
// it to regenerate their child between activations.
type Factory func() Node

// Protocol violations are programming errors, not tree outcomes. They are
// raised as panics carrying these sentinels so they can never be mistaken
// for StatusFailure.
var (
	ErrNotEntered     = errors.New("behavior: node used outside an activation")
	ErrAlreadyEntered = errors.New("behavior: node entered twice without exit")
	ErrComplete       = errors.New("behavior: node ticked after reaching a terminal status")
)

// activation is the enter/exit bookkeeping shared by the built-in nodes.
// done is set by composites when they report a terminal status; ran/last
// feed Snapshot.
type activation struct {
	entered bool
	done    bool
	ran     bool
	last    Status
}

func (a *activation) enter() {
	if a.entered {
		panic(ErrAlreadyEntered)
	}
	*a = activation{entered: true}
}

func (a *activation) exit() {
	if !a.entered {
		panic(ErrNotEntered)
	}
	a.entered = false
}

// check guards a composite tick against protocol violations.
func (a *activation) check() {
	if !a.entered {
		panic(ErrNotEntered)
	}
	if a.done {
		panic(ErrComplete)
	}
}

func (a *activation) record(s Status) {
	a.ran = true
	a.last = s
}
