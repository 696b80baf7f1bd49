package behavior

import "context"

// Evaluator combines the ordered per-child statuses of a Parallel into the
// composite's status for the tick.
type Evaluator func(statuses []Status) Status

// EvaluateConservative succeeds only once every child has succeeded and
// fails as soon as any child has failed; otherwise it keeps running.
func EvaluateConservative(statuses []Status) Status {
	result := StatusSuccess
	for _, s := range statuses {
		switch s {
		case StatusFailure:
			return StatusFailure
		case StatusRunning:
			result = StatusRunning
		}
	}
	return result
}

// EvaluateWaitAll keeps running until no child is still running, then
// fails if any child failed and succeeds otherwise. Unlike
// EvaluateConservative, an early child failure does not cut the remaining
// children short.
func EvaluateWaitAll(statuses []Status) Status {
	result := StatusSuccess
	for _, s := range statuses {
		switch s {
		case StatusRunning:
			return StatusRunning
		case StatusFailure:
			result = StatusFailure
		}
	}
	return result
}

type parallel struct {
	activation
	eval     Evaluator
	children []Node
	ticks    []Tick
	statuses []Status
}

// Parallel ticks every still-live child exactly once per outer tick, in
// construction order, and hands the ordered latest statuses to eval to
// decide the composite result. A child that reached a terminal status is
// exited immediately and not re-entered; its frozen result keeps feeding
// the evaluator. Exit releases any children still live.
func Parallel(eval Evaluator, children ...Node) Node {
	if eval == nil {
		panic("behavior: parallel requires an evaluator")
	}
	return &parallel{eval: eval, children: children}
}

func (p *parallel) Name() string { return "parallel" }

func (p *parallel) Enter() Tick {
	p.activation.enter()
	p.ticks = make([]Tick, len(p.children))
	p.statuses = make([]Status, len(p.children))
	for i := range p.statuses {
		p.statuses[i] = StatusRunning
	}
	return p.tick
}

func (p *parallel) Exit() {
	p.activation.exit()
	for i, tick := range p.ticks {
		if tick != nil {
			p.ticks[i] = nil
			p.children[i].Exit()
		}
	}
}

func (p *parallel) tick(ctx context.Context, bb *Blackboard) (Status, error) {
	p.check()
	for i, child := range p.children {
		if p.statuses[i].IsTerminal() {
			continue
		}
		if p.ticks[i] == nil {
			p.ticks[i] = child.Enter()
		}
		status, err := p.ticks[i](ctx, bb)
		if err != nil {
			return status, err
		}
		p.statuses[i] = status
		if status.IsTerminal() {
			p.ticks[i] = nil
			child.Exit()
		}
	}
	result := p.eval(append([]Status(nil), p.statuses...))
	if result.IsTerminal() {
		p.done = true
	}
	p.record(result)
	return result, nil
}

func (p *parallel) snapshot() TreeSnapshot {
	return TreeSnapshot{
		Node:     p.Name(),
		Status:   p.last,
		Ran:      p.ran,
		Children: childSnapshots(p.children),
	}
}
