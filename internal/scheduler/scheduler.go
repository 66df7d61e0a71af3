// Package scheduler drives dependency-ordered, bounded-concurrency
// execution of workflow graphs
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lisahq/lisaflow/internal/graph"
	"github.com/lisahq/lisaflow/internal/handler"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/log"
)

type (
	// Scheduler executes workflow graphs against a handler registry. It is
	// long-lived and safe for concurrent Execute calls; all per-run state
	// lives in the run created by each call
	Scheduler struct {
		registry *handler.Registry
		defaults Defaults
		runs     map[string]*run
		mu       sync.Mutex
	}

	// Defaults supplies fallback values for requests that leave the
	// corresponding knobs unset
	Defaults struct {
		Retry          api.RetryConfig
		MaxConcurrency int
		NodeTimeout    int64
	}
)

const (
	DefaultMaxConcurrency = 4
	DefaultNodeTimeout    = 30 * api.Second
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrNotStepByStep = errors.New("run is not in step-by-step mode")
)

// New creates a scheduler over the given registry
func New(registry *handler.Registry, defaults Defaults) *Scheduler {
	if defaults.MaxConcurrency <= 0 {
		defaults.MaxConcurrency = DefaultMaxConcurrency
	}
	if defaults.NodeTimeout <= 0 {
		defaults.NodeTimeout = DefaultNodeTimeout
	}
	return &Scheduler{
		registry: registry,
		defaults: defaults,
		runs:     map[string]*run{},
	}
}

// Execute runs a workflow to completion and returns its report. Structural
// problems (duplicate nodes, dangling edges, invalid retry settings) fail
// fast before any node starts; node failures are recorded in the report
// without stopping independent branches
func (s *Scheduler) Execute(
	ctx context.Context, req *api.ExecRequest,
) (*api.ExecutionReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	g, err := graph.Build(req.Nodes, req.Edges)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	r := newRun(ctx, runID, s, g, req)
	s.register(r)
	defer s.unregister(r)

	slog.Info("Workflow run starting",
		log.RunID(runID),
		slog.Int("nodes", g.Len()),
		slog.Int("max_concurrency", r.gate.Limit()))

	report := r.execute()

	if msg, ok := report.Errors[api.GlobalErrorKey]; ok {
		slog.Warn("Workflow run aborted",
			log.RunID(runID),
			log.ErrorString(msg))
	}
	slog.Info("Workflow run finished",
		log.RunID(runID),
		slog.Bool("success", report.Success),
		slog.Int64("execution_time_ms", report.ExecutionTime))
	return report, nil
}

// Abort cooperatively cancels a running workflow. In-flight nodes are
// interrupted at their next suspension point; partial results are retained
func (s *Scheduler) Abort(runID string) error {
	r, err := s.lookup(runID)
	if err != nil {
		return err
	}
	r.abort(ErrRunAborted)
	return nil
}

// ConfirmNextStep advances a step-by-step run by one node
func (s *Scheduler) ConfirmNextStep(runID string) error {
	r, err := s.lookup(runID)
	if err != nil {
		return err
	}
	if r.step == nil {
		return fmt.Errorf("%w: %s", ErrNotStepByStep, runID)
	}
	r.step.confirm()
	return nil
}

// Stats returns a point-in-time snapshot of a running workflow
func (s *Scheduler) Stats(runID string) (*api.RunStats, error) {
	r, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}
	return r.stats(), nil
}

// ActiveRuns returns the IDs of runs currently executing
func (s *Scheduler) ActiveRuns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) validate(req *api.ExecRequest) error {
	if req.MaxRetries < 0 {
		return api.ErrNegativeMaxRetries
	}
	retry := s.resolveRetry(req)
	return retry.Validate()
}

// resolveRetry layers the request's retry override over the scheduler
// defaults. The zero default applies no retries at all
func (s *Scheduler) resolveRetry(req *api.ExecRequest) api.RetryConfig {
	rc := s.defaults.Retry
	if req.MaxRetries > 0 {
		rc.MaxRetries = req.MaxRetries
	}
	return rc
}

func (s *Scheduler) register(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.id] = r
}

func (s *Scheduler) unregister(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, r.id)
}

func (s *Scheduler) lookup(runID string) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, nil
}
