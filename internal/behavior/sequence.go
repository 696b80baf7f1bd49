package behavior

import "context"

// sequence ticks children in order, advancing past each success within the
// same outer tick. It fails as a block on the first child failure.
type sequence struct {
	activation
	children []Node
	idx      int
	child    Tick
}

// Sequence returns a composite that ticks its children left to right.
// A child success advances to the next child immediately, still within the
// current tick, so a chain of trivially-succeeding children resolves in
// one call. The first child failure fails the whole sequence; later
// children are never entered. An empty sequence succeeds.
func Sequence(children ...Node) Node {
	return &sequence{children: children}
}

func (s *sequence) Name() string { return "sequence" }

func (s *sequence) Enter() Tick {
	s.activation.enter()
	s.idx = 0
	s.child = nil
	return s.tick
}

// Exit releases the currently entered child, if any, even mid-run.
func (s *sequence) Exit() {
	s.activation.exit()
	if s.child != nil {
		s.child = nil
		s.children[s.idx].Exit()
	}
}

func (s *sequence) tick(ctx context.Context, bb *Blackboard) (Status, error) {
	s.check()
	for s.idx < len(s.children) {
		if s.child == nil {
			s.child = s.children[s.idx].Enter()
		}
		status, err := s.child(ctx, bb)
		if err != nil {
			return status, err
		}
		switch status {
		case StatusRunning:
			s.record(StatusRunning)
			return StatusRunning, nil
		case StatusSuccess:
			s.child = nil
			s.children[s.idx].Exit()
			s.idx++
		case StatusFailure:
			s.child = nil
			s.children[s.idx].Exit()
			s.done = true
			s.record(StatusFailure)
			return StatusFailure, nil
		}
	}
	s.done = true
	s.record(StatusSuccess)
	return StatusSuccess, nil
}

func (s *sequence) snapshot() TreeSnapshot {
	return TreeSnapshot{
		Node:     s.Name(),
		Status:   s.last,
		Ran:      s.ran,
		Children: childSnapshots(s.children),
	}
}
