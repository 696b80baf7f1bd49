package behavior

import "context"

type failsafeMode int

const (
	modePrimary failsafeMode = iota
	modeFallback
)

type failsafe struct {
	activation
	guard    Predicate
	primary  Node
	fallback Node
	mode     failsafeMode
	active   Tick
}

// Failsafe evaluates guard before every tick of the primary subtree. While
// the guard holds, the primary's result passes through unchanged. On the
// first tick where the guard fails, the primary is exited (if it was ever
// entered) and the fallback subtree takes over for the rest of the
// activation; the guard is not consulted again. Recovery to the primary
// only happens when the whole node is re-entered, e.g. under Redo.
func Failsafe(guard Predicate, primary, fallback Node) Node {
	return &failsafe{guard: guard, primary: primary, fallback: fallback}
}

func (f *failsafe) Name() string { return "failsafe" }

func (f *failsafe) Enter() Tick {
	f.activation.enter()
	f.mode = modePrimary
	f.active = nil
	return f.tick
}

func (f *failsafe) Exit() {
	f.activation.exit()
	if f.active == nil {
		return
	}
	f.active = nil
	if f.mode == modePrimary {
		f.primary.Exit()
	} else {
		f.fallback.Exit()
	}
}

func (f *failsafe) tick(ctx context.Context, bb *Blackboard) (Status, error) {
	f.check()
	if f.mode == modePrimary {
		if f.guard(ctx, bb) {
			if f.active == nil {
				f.active = f.primary.Enter()
			}
			return f.tickActive(ctx, bb, f.primary)
		}
		if f.active != nil {
			f.active = nil
			f.primary.Exit()
		}
		f.mode = modeFallback
	}
	if f.active == nil {
		f.active = f.fallback.Enter()
	}
	return f.tickActive(ctx, bb, f.fallback)
}

func (f *failsafe) tickActive(ctx context.Context, bb *Blackboard, node Node) (Status, error) {
	status, err := f.active(ctx, bb)
	if err != nil {
		return status, err
	}
	if status.IsTerminal() {
		f.active = nil
		node.Exit()
		f.done = true
	}
	f.record(status)
	return status, nil
}

func (f *failsafe) snapshot() TreeSnapshot {
	return TreeSnapshot{
		Node:     f.Name(),
		Status:   f.last,
		Ran:      f.ran,
		Children: childSnapshots([]Node{f.primary, f.fallback}),
	}
}
