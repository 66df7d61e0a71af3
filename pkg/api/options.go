package api

import (
	"errors"
	"time"
)

type (
	// ExecRequest describes one workflow run: the graph, its seed data, and
	// the knobs controlling concurrency, retries, and timeouts. Zero-valued
	// fields fall back to the scheduler's configured defaults
	ExecRequest struct {
		RunID            string           `json:"run_id,omitempty"`
		Nodes            []*ExecutionNode `json:"nodes"`
		Edges            []Edge           `json:"edges,omitempty"`
		InitialData      Values           `json:"initial_data,omitempty"`
		StepByStep       bool             `json:"step_by_step,omitempty"`
		MaxExecutionTime int64            `json:"max_execution_time_ms,omitempty"`
		MaxRetries       int              `json:"max_retries,omitempty"`
		MaxConcurrency   int              `json:"max_concurrency,omitempty"`
		DefaultTimeout   int64            `json:"default_node_timeout_ms,omitempty"`

		// OnNodeExecution receives a NodeEvent at every node state
		// transition. Events for one run are delivered sequentially
		OnNodeExecution NodeCallback `json:"-"`
	}

	// NodeCallback observes node state transitions during a run
	NodeCallback func(NodeEvent)

	// NodeEvent reports one node state transition
	NodeEvent struct {
		RunID     string    `json:"run_id"`
		NodeID    NodeID    `json:"node_id"`
		NodeType  NodeType  `json:"node_type"`
		Status    NodeStatus `json:"status"`
		Attempt   int       `json:"attempt,omitempty"`
		Error     string    `json:"error,omitempty"`
		Output    Values    `json:"output,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	// NodeStatus is the lifecycle state of a node within one run
	NodeStatus string

	// RetryConfig controls the retry/backoff loop applied to failing node
	// attempts
	RetryConfig struct {
		MaxRetries  int    `json:"max_retries,omitempty"`
		InitBackoff int64  `json:"init_backoff_ms,omitempty"`
		MaxBackoff  int64  `json:"max_backoff_ms,omitempty"`
		BackoffType string `json:"backoff_type,omitempty"`
	}

	// RunStats is a point-in-time snapshot of a running execution
	RunStats struct {
		RunID                string `json:"run_id"`
		RunningNodes         int    `json:"running_nodes"`
		CompletedNodes       int    `json:"completed_nodes"`
		FailedNodes          int    `json:"failed_nodes"`
		ElapsedTime          int64  `json:"elapsed_time_ms"`
		AvailableConcurrency int    `json:"available_concurrency"`
	}
)

const (
	NodePending   NodeStatus = "pending"
	NodeRunning   NodeStatus = "running"
	NodeRetrying  NodeStatus = "retrying"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
)

const (
	BackoffTypeFixed       = "fixed"
	BackoffTypeLinear      = "linear"
	BackoffTypeExponential = "exponential"
)

var (
	ErrInvalidBackoffType = errors.New("invalid backoff type")
	ErrNegativeMaxRetries = errors.New("max retries cannot be negative")
)

// Terminal reports whether the status is an end state for a node. Completed
// and failed nodes are never re-entered
func (s NodeStatus) Terminal() bool {
	return s == NodeCompleted || s == NodeFailed
}

// Validate checks the retry configuration for consistency
func (rc *RetryConfig) Validate() error {
	if rc.MaxRetries < 0 {
		return ErrNegativeMaxRetries
	}
	switch rc.BackoffType {
	case "", BackoffTypeFixed, BackoffTypeLinear, BackoffTypeExponential:
		return nil
	default:
		return ErrInvalidBackoffType
	}
}
