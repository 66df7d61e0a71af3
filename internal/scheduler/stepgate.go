package scheduler

import "context"

// stepGate pauses the dispatcher before each node until an external
// confirmation arrives. The gate holds at most one pending confirmation, so
// each confirm call advances the workflow by exactly one node
type stepGate struct {
	confirmed chan struct{}
}

func newStepGate() *stepGate {
	return &stepGate{confirmed: make(chan struct{}, 1)}
}

// confirm releases the next waiting node. A confirmation sent while no node
// is waiting is held for the next one; further confirmations are dropped
// until it is consumed
func (g *stepGate) confirm() {
	select {
	case g.confirmed <- struct{}{}:
	default:
	}
}

// wait blocks until a confirmation is available or the context is canceled
func (g *stepGate) wait(ctx context.Context) error {
	select {
	case <-g.confirmed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
