package behavior

import "context"

// leaf adapts plain functions and scoped resources into Nodes. Unlike the
// composites a leaf may be ticked again after returning a terminal status;
// whether that is meaningful is up to the wrapped function.
type leaf struct {
	activation
	name     string
	setup    func() (Tick, func())
	tick     Tick
	teardown func()
}

// Action wraps a plain tick function as a node with no setup or teardown.
func Action(name string, f Tick) Node {
	return Scoped(name, func() (Tick, func()) { return f, nil })
}

// Condition wraps a predicate: true ticks as StatusSuccess, false as
// StatusFailure.
func Condition(name string, pred Predicate) Node {
	return Action(name, func(ctx context.Context, bb *Blackboard) (Status, error) {
		if pred(ctx, bb) {
			return StatusSuccess, nil
		}
		return StatusFailure, nil
	})
}

// Scoped builds a node around a resource-owning action. setup runs on
// Enter and returns the tick function for the activation plus an optional
// teardown. The teardown runs exactly once, on Exit, whether or not the
// tick function was ever called and regardless of errors raised from it.
func Scoped(name string, setup func() (Tick, func())) Node {
	return &leaf{name: name, setup: setup}
}

func (l *leaf) Name() string { return l.name }

func (l *leaf) Enter() Tick {
	l.activation.enter()
	l.tick, l.teardown = l.setup()
	return l.doTick
}

func (l *leaf) Exit() {
	l.activation.exit()
	l.tick = nil
	if l.teardown != nil {
		td := l.teardown
		l.teardown = nil
		td()
	}
}

func (l *leaf) doTick(ctx context.Context, bb *Blackboard) (Status, error) {
	if !l.entered {
		panic(ErrNotEntered)
	}
	status, err := l.tick(ctx, bb)
	if err != nil {
		return status, err
	}
	l.record(status)
	return status, nil
}

func (l *leaf) snapshot() TreeSnapshot {
	return TreeSnapshot{Node: l.name, Status: l.last, Ran: l.ran}
}
