// Package lisaflow is a workflow automation engine. Callers compose a
// directed graph of typed nodes (HTTP calls, transforms, conditions, inline
// expressions) and the engine executes that graph with bounded concurrency,
// retries, timeouts, and priority ordering. Condition and expression nodes
// are evaluated by a sandboxed interpreter that cannot reach host code.
package lisaflow

const (
	Name    = "lisaflow"
	Version = "0.4.0"
)
