package behavior

import "context"

// fallback is the mirror of sequence with success and failure swapped.
type fallback struct {
	activation
	children []Node
	idx      int
	child    Tick
}

// Fallback returns a composite that ticks its children left to right until
// one succeeds. A child failure advances to the next child within the same
// tick; exhausting every child fails the fallback. An empty fallback
// fails.
func Fallback(children ...Node) Node {
	return &fallback{children: children}
}

func (f *fallback) Name() string { return "fallback" }

func (f *fallback) Enter() Tick {
	f.activation.enter()
	f.idx = 0
	f.child = nil
	return f.tick
}

func (f *fallback) Exit() {
	f.activation.exit()
	if f.child != nil {
		f.child = nil
		f.children[f.idx].Exit()
	}
}

func (f *fallback) tick(ctx context.Context, bb *Blackboard) (Status, error) {
	f.check()
	for f.idx < len(f.children) {
		if f.child == nil {
			f.child = f.children[f.idx].Enter()
		}
		status, err := f.child(ctx, bb)
		if err != nil {
			return status, err
		}
		switch status {
		case StatusRunning:
			f.record(StatusRunning)
			return StatusRunning, nil
		case StatusFailure:
			f.child = nil
			f.children[f.idx].Exit()
			f.idx++
		case StatusSuccess:
			f.child = nil
			f.children[f.idx].Exit()
			f.done = true
			f.record(StatusSuccess)
			return StatusSuccess, nil
		}
	}
	f.done = true
	f.record(StatusFailure)
	return StatusFailure, nil
}

func (f *fallback) snapshot() TreeSnapshot {
	return TreeSnapshot{
		Node:     f.Name(),
		Status:   f.last,
		Ran:      f.ran,
		Children: childSnapshots(f.children),
	}
}
