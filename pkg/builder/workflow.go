package builder

import (
	"slices"

	"github.com/lisahq/lisaflow/pkg/api"
)

// Workflow is a builder for complete execution requests
type Workflow struct {
	runID   string
	nodes   []*Node
	edges   []api.Edge
	init    api.Values
	step    bool
	maxTime int64
	maxConc int
	timeout int64
	retries int
}

// NewWorkflow creates a workflow builder. An empty run ID lets the engine
// assign one
func NewWorkflow(runID string) *Workflow {
	return &Workflow{runID: runID}
}

// Add appends nodes to the workflow
func (w *Workflow) Add(nodes ...*Node) *Workflow {
	res := *w
	res.nodes = slices.Concat(w.nodes, nodes)
	return &res
}

// Connect adds a full-merge edge between two nodes
func (w *Workflow) Connect(source, target api.NodeID) *Workflow {
	res := *w
	res.edges = append(slices.Clone(w.edges), api.Edge{
		Source: source,
		Target: target,
	})
	return &res
}

// Route adds an edge carrying a single output field to a single input field
func (w *Workflow) Route(
	source api.NodeID, sourceHandle string,
	target api.NodeID, targetHandle string,
) *Workflow {
	res := *w
	res.edges = append(slices.Clone(w.edges), api.Edge{
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	})
	return &res
}

// WithInitialData seeds every root node with the given values
func (w *Workflow) WithInitialData(init api.Values) *Workflow {
	res := *w
	res.init = init.Clone()
	return &res
}

// WithMaxConcurrency bounds how many nodes run at once
func (w *Workflow) WithMaxConcurrency(limit int) *Workflow {
	res := *w
	res.maxConc = limit
	return &res
}

// WithMaxExecutionTime bounds the whole run in milliseconds
func (w *Workflow) WithMaxExecutionTime(ms int64) *Workflow {
	res := *w
	res.maxTime = ms
	return &res
}

// WithDefaultTimeout sets the per-node timeout applied to nodes without
// their own override
func (w *Workflow) WithDefaultTimeout(ms int64) *Workflow {
	res := *w
	res.timeout = ms
	return &res
}

// WithMaxRetries sets the retry count applied to nodes without their own
// override
func (w *Workflow) WithMaxRetries(count int) *Workflow {
	res := *w
	res.retries = count
	return &res
}

// StepByStep makes the run pause before each node until confirmed
func (w *Workflow) StepByStep() *Workflow {
	res := *w
	res.step = true
	return &res
}

// Build assembles the execution request
func (w *Workflow) Build() *api.ExecRequest {
	nodes := make([]*api.ExecutionNode, len(w.nodes))
	for i, n := range w.nodes {
		nodes[i] = n.Build()
	}
	return &api.ExecRequest{
		RunID:            w.runID,
		Nodes:            nodes,
		Edges:            slices.Clone(w.edges),
		InitialData:      w.init,
		StepByStep:       w.step,
		MaxExecutionTime: w.maxTime,
		MaxRetries:       w.retries,
		MaxConcurrency:   w.maxConc,
		DefaultTimeout:   w.timeout,
	}
}
