package api

// ExecutionReport is the aggregate outcome of one workflow run. It is built
// fresh per execution and never mutated after being returned
type ExecutionReport struct {
	RunID         string            `json:"run_id"`
	Success       bool              `json:"success"`
	Data          Values            `json:"data,omitempty"`
	Errors        map[NodeID]string `json:"errors,omitempty"`
	ExecutionPath []NodeID          `json:"execution_path"`
	ExecutionTime int64             `json:"execution_time_ms"`
	NodeResults   map[NodeID]Values `json:"node_results,omitempty"`
}

// GlobalErrorKey is the synthetic errors key under which run-fatal failures
// (unknown node types, global timeout, abort) are reported alongside any
// per-node errors
const GlobalErrorKey NodeID = "global"

// Failed reports whether any error, node-level or global, was recorded
func (r *ExecutionReport) Failed() bool {
	return len(r.Errors) > 0
}
