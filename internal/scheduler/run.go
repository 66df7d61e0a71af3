package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lisahq/lisaflow/internal/gate"
	"github.com/lisahq/lisaflow/internal/graph"
	"github.com/lisahq/lisaflow/internal/handler"
	"github.com/lisahq/lisaflow/internal/util"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/expr"
	"github.com/lisahq/lisaflow/pkg/log"
)

// run holds all mutable state of one workflow execution. Nodes move from
// pending through running to completed or failed and are never re-entered
// once terminal; failed upstreams still count as processed so downstream
// branches cannot deadlock
type run struct {
	id      string
	sched   *Scheduler
	graph   *graph.Graph
	req     *api.ExecRequest
	gate    *gate.Gate
	step    *stepGate
	retry   api.RetryConfig
	timeout int64

	ctx     context.Context
	cancel  context.CancelFunc
	aborted atomic.Bool

	mu       sync.Mutex
	status   map[api.NodeID]api.NodeStatus
	results  map[api.NodeID]api.Values
	errs     map[api.NodeID]string
	path     []api.NodeID
	queued   util.Set[api.NodeID]
	ready    []api.NodeID
	inFlight int
	started  time.Time

	wake chan struct{}
	wg   sync.WaitGroup
	cbMu sync.Mutex
}

var (
	ErrRunAborted      = errors.New("execution aborted")
	ErrRunTimeout      = errors.New("execution timeout exceeded")
	ErrNodeTimeout     = errors.New("node execution timed out")
	ErrRetriesExceeded = errors.New("node failed after retries")
)

func newRun(
	ctx context.Context, id string, s *Scheduler, g *graph.Graph,
	req *api.ExecRequest,
) *run {
	concurrency := req.MaxConcurrency
	if concurrency <= 0 {
		concurrency = s.defaults.MaxConcurrency
	}
	timeout := req.DefaultTimeout
	if timeout <= 0 {
		timeout = s.defaults.NodeTimeout
	}

	r := &run{
		id:      id,
		sched:   s,
		graph:   g,
		req:     req,
		gate:    gate.New(concurrency),
		retry:   s.resolveRetry(req),
		timeout: timeout,
		status:  make(map[api.NodeID]api.NodeStatus, g.Len()),
		results: map[api.NodeID]api.Values{},
		errs:    map[api.NodeID]string{},
		queued:  util.Set[api.NodeID]{},
		wake:    make(chan struct{}, 1),
		started: time.Now(),
	}
	// the context exists before the run is ever visible to Abort or Stats
	r.ctx, r.cancel = context.WithCancel(ctx)
	if req.StepByStep {
		r.step = newStepGate()
	}
	for _, nodeID := range g.NodeIDs() {
		r.status[nodeID] = api.NodePending
	}
	return r
}

// execute drives the wavefront dispatch loop to completion and assembles
// the final report. The loop is an explicit ready-set algorithm: node
// completions enqueue newly eligible nodes and wake the dispatcher, so no
// recursion depth accumulates on large graphs
func (r *run) execute() *api.ExecutionReport {
	defer r.cancel()

	if r.req.MaxExecutionTime > 0 {
		timer := time.AfterFunc(
			time.Duration(r.req.MaxExecutionTime)*time.Millisecond,
			func() { r.abort(ErrRunTimeout) },
		)
		defer timer.Stop()
	}

	r.enqueueEligible()
	r.dispatch()
	r.wg.Wait()
	return r.buildReport()
}

func (r *run) dispatch() {
	for {
		if r.ctx.Err() != nil {
			return
		}

		nodeID, ok := r.popReady()
		if !ok {
			r.mu.Lock()
			idle := r.inFlight == 0 && len(r.ready) == 0
			r.mu.Unlock()
			if idle {
				return
			}
			select {
			case <-r.wake:
			case <-r.ctx.Done():
			}
			continue
		}

		if r.step != nil {
			if err := r.step.wait(r.ctx); err != nil {
				return
			}
		}
		if err := r.gate.Acquire(r.ctx); err != nil {
			return
		}

		r.markStarted(nodeID)
		r.wg.Add(1)
		go r.runNode(nodeID)
	}
}

// popReady removes and returns the highest-priority eligible node. Equal
// priorities launch in the order they became eligible
func (r *run) popReady() (api.NodeID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ready) == 0 {
		return "", false
	}

	best := 0
	for i := 1; i < len(r.ready); i++ {
		if r.nodePriority(r.ready[i]) > r.nodePriority(r.ready[best]) {
			best = i
		}
	}
	nodeID := r.ready[best]
	r.ready = append(r.ready[:best], r.ready[best+1:]...)
	r.inFlight++
	return nodeID, true
}

func (r *run) nodePriority(id api.NodeID) int {
	n, _ := r.graph.Node(id)
	return n.Priority
}

// enqueueEligible scans for pending nodes whose every dependency has
// reached a terminal state and adds them to the ready set
func (r *run) enqueueEligible() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []api.NodeID
	for _, nodeID := range r.graph.NodeIDs() {
		if r.status[nodeID] != api.NodePending ||
			r.queued.Contains(nodeID) {
			continue
		}
		if !r.dependenciesSettled(nodeID) {
			continue
		}
		r.queued.Add(nodeID)
		added = append(added, nodeID)
	}

	sort.SliceStable(added, func(i, j int) bool {
		return r.nodePriority(added[i]) > r.nodePriority(added[j])
	})
	r.ready = append(r.ready, added...)
}

func (r *run) dependenciesSettled(id api.NodeID) bool {
	for _, dep := range r.graph.Dependencies(id) {
		if !r.status[dep].Terminal() {
			return false
		}
	}
	return true
}

func (r *run) runNode(nodeID api.NodeID) {
	defer r.wg.Done()
	defer r.gate.Release()
	defer r.wakeDispatcher()

	node, _ := r.graph.Node(nodeID)
	inputs := r.gatherInputs(node)

	h, err := r.sched.registry.HandlerFor(node.Type)
	if err != nil {
		// unknown node types are fatal for the whole run
		r.markFailed(node, err)
		r.abort(err)
		return
	}

	outputs, err := r.runWithRetry(node, h, inputs)
	if err != nil {
		r.markFailed(node, err)
		return
	}
	r.markCompleted(node, outputs)
}

// runWithRetry executes a node attempt under its timeout, retrying failed
// attempts with backoff while attempts remain. Security violations and
// abort are never retried
func (r *run) runWithRetry(
	node *api.ExecutionNode, h handler.Handler, inputs api.Values,
) (api.Values, error) {
	maxRetries := r.retry.MaxRetries
	if node.RetryCount != nil {
		maxRetries = *node.RetryCount
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if attempt > 1 {
			r.markRetrying(node, attempt, lastErr)
			if err := r.sleep(backoffDelay(r.retry, attempt-1)); err != nil {
				return nil, lastErr
			}
		}
		if r.aborted.Load() {
			return nil, fmt.Errorf("%w: %s", ErrRunAborted, node.ID)
		}

		outputs, err := r.attempt(node, h, inputs)
		if err == nil {
			return outputs, nil
		}
		lastErr = err

		if r.ctx.Err() != nil || expr.IsSafeEvalError(err) {
			return nil, err
		}
	}

	if maxRetries > 0 {
		return nil, fmt.Errorf("%w (%d attempts): %w",
			ErrRetriesExceeded, maxRetries+1, lastErr)
	}
	return nil, lastErr
}

// attempt races the handler against the node's timeout. The attempt's
// context is canceled on timeout so cooperative handlers stop promptly;
// non-cooperative handlers are abandoned to finish in the background
func (r *run) attempt(
	node *api.ExecutionNode, h handler.Handler, inputs api.Values,
) (api.Values, error) {
	timeout := r.timeout
	if node.TimeoutMs != nil {
		timeout = *node.TimeoutMs
	}
	ctx, cancel := context.WithTimeout(
		r.ctx, time.Duration(timeout)*time.Millisecond)
	defer cancel()

	type outcome struct {
		outputs api.Values
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		outputs, err := h(ctx, node, inputs)
		done <- outcome{outputs: outputs, err: err}
	}()

	select {
	case res := <-done:
		return res.outputs, res.err
	case <-ctx.Done():
		if r.ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrRunAborted, node.ID)
		}
		return nil, fmt.Errorf("%w: %s after %dms",
			ErrNodeTimeout, node.ID, timeout)
	}
}

// gatherInputs merges the node's static inputs, the run's initial data,
// and upstream outputs. Edges naming both handles route a single field;
// all other edges merge the whole upstream result
func (r *run) gatherInputs(node *api.ExecutionNode) api.Values {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := node.Inputs.Clone().Merge(r.req.InitialData)
	for _, e := range r.graph.Incoming(node.ID) {
		outputs, ok := r.results[e.Source]
		if !ok {
			continue
		}
		if e.Routed() {
			if v, ok := outputs[e.SourceHandle]; ok {
				merged[e.TargetHandle] = v
			}
			continue
		}
		merged = merged.Merge(outputs)
	}
	return merged
}

func (r *run) sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

// abort sets the cooperative abort flag and cancels the run context. The
// first cause wins and is recorded under the global error key
func (r *run) abort(cause error) {
	if !r.aborted.CompareAndSwap(false, true) {
		return
	}
	r.mu.Lock()
	if _, ok := r.errs[api.GlobalErrorKey]; !ok {
		r.errs[api.GlobalErrorKey] = cause.Error()
	}
	r.mu.Unlock()
	r.cancel()
	r.wakeDispatcher()
}

func (r *run) wakeDispatcher() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *run) markStarted(nodeID api.NodeID) {
	node, _ := r.graph.Node(nodeID)
	r.mu.Lock()
	r.status[nodeID] = api.NodeRunning
	r.path = append(r.path, nodeID)
	r.mu.Unlock()

	r.emit(api.NodeEvent{
		NodeID:   nodeID,
		NodeType: node.Type,
		Status:   api.NodeRunning,
		Attempt:  1,
	})
}

func (r *run) markRetrying(node *api.ExecutionNode, attempt int, err error) {
	r.mu.Lock()
	r.status[node.ID] = api.NodeRetrying
	r.mu.Unlock()

	slog.Warn("Node attempt failed, retrying",
		log.RunID(r.id),
		log.NodeID(node.ID),
		log.Attempt(attempt),
		log.Error(err))
	r.emit(api.NodeEvent{
		NodeID:   node.ID,
		NodeType: node.Type,
		Status:   api.NodeRetrying,
		Attempt:  attempt,
		Error:    err.Error(),
	})
}

func (r *run) markCompleted(node *api.ExecutionNode, outputs api.Values) {
	if outputs == nil {
		outputs = api.Values{}
	}
	r.mu.Lock()
	r.status[node.ID] = api.NodeCompleted
	r.results[node.ID] = outputs
	r.inFlight--
	r.mu.Unlock()

	r.emit(api.NodeEvent{
		NodeID:   node.ID,
		NodeType: node.Type,
		Status:   api.NodeCompleted,
		Output:   outputs,
	})
	r.enqueueEligible()
}

func (r *run) markFailed(node *api.ExecutionNode, err error) {
	r.mu.Lock()
	r.status[node.ID] = api.NodeFailed
	r.errs[node.ID] = err.Error()
	r.inFlight--
	r.mu.Unlock()

	slog.Error("Node failed",
		log.RunID(r.id),
		log.NodeID(node.ID),
		log.NodeType(node.Type),
		log.Error(err))
	r.emit(api.NodeEvent{
		NodeID:   node.ID,
		NodeType: node.Type,
		Status:   api.NodeFailed,
		Error:    err.Error(),
	})
	r.enqueueEligible()
}

// emit delivers a node event to the caller's callback. Events for one run
// are serialized so observers see a consistent order
func (r *run) emit(event api.NodeEvent) {
	slog.Debug("Node event",
		log.RunID(r.id),
		log.NodeID(event.NodeID),
		log.NodeType(event.NodeType),
		log.Status(event.Status))

	if r.req.OnNodeExecution == nil {
		return
	}
	event.RunID = r.id
	event.Timestamp = time.Now()

	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.req.OnNodeExecution(event)
}

func (r *run) stats() *api.RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &api.RunStats{
		RunID:                r.id,
		ElapsedTime:          time.Since(r.started).Milliseconds(),
		AvailableConcurrency: r.gate.Available(),
	}
	for _, status := range r.status {
		switch {
		case status == api.NodeCompleted:
			stats.CompletedNodes++
		case status == api.NodeFailed:
			stats.FailedNodes++
		case status == api.NodeRunning || status == api.NodeRetrying:
			stats.RunningNodes++
		}
	}
	return stats
}

// buildReport assembles the immutable execution report: outputs of every
// node, the ordered start path, per-node errors, and the merged data of
// output-typed nodes
func (r *run) buildReport() *api.ExecutionReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &api.ExecutionReport{
		RunID:         r.id,
		Success:       len(r.errs) == 0,
		Data:          api.Values{},
		Errors:        make(map[api.NodeID]string, len(r.errs)),
		ExecutionPath: append([]api.NodeID{}, r.path...),
		ExecutionTime: time.Since(r.started).Milliseconds(),
		NodeResults:   make(map[api.NodeID]api.Values, len(r.results)),
	}
	for nodeID, msg := range r.errs {
		report.Errors[nodeID] = msg
	}
	for nodeID, outputs := range r.results {
		report.NodeResults[nodeID] = outputs
		if node, ok := r.graph.Node(nodeID); ok &&
			node.Type == api.NodeTypeOutput {
			report.Data = report.Data.Merge(outputs)
		}
	}
	return report
}
