// Package gate provides the counting permit gate that bounds concurrent
// node execution
package gate

import (
	"context"
	"sync"
)

// Gate is a counting admission-control primitive. Acquire returns
// immediately while permits remain and otherwise suspends the caller in a
// FIFO queue; Release hands its permit directly to the oldest waiter when
// one exists. Outstanding acquisitions never exceed the configured limit
type Gate struct {
	waiters []chan struct{}
	permits int
	limit   int
	mu      sync.Mutex
}

// New creates a gate with the given concurrency limit. Limits below one are
// treated as one
func New(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{permits: limit, limit: limit}
}

// Acquire obtains a permit, blocking until one is available or the context
// is canceled
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.permits > 0 {
		g.permits--
		g.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	g.waiters = append(g.waiters, ready)
	g.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-ready:
			// a release already handed us the permit; pass it on
			g.mu.Unlock()
			g.Release()
		default:
			g.removeWaiter(ready)
			g.mu.Unlock()
		}
		return ctx.Err()
	}
}

// Release returns a permit, waking the oldest waiter if one is queued. The
// permit is either handed to the waiter or returned to the pool, never both
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.waiters) > 0 {
		ready := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(ready)
		return
	}
	if g.permits < g.limit {
		g.permits++
	}
}

// Available returns the number of permits currently free
func (g *Gate) Available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.permits
}

// Limit returns the configured concurrency limit
func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) removeWaiter(ready chan struct{}) {
	for i, w := range g.waiters {
		if w == ready {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			return
		}
	}
}
