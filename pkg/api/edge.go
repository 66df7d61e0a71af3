package api

import (
	"errors"
	"fmt"
)

// Edge connects a source node to a target node. When both handles are named
// the edge routes a single output field into a single input field instead of
// merging the whole result object
type Edge struct {
	Source       NodeID `json:"source"`
	Target       NodeID `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

var (
	ErrEdgeSourceEmpty = errors.New("edge source empty")
	ErrEdgeTargetEmpty = errors.New("edge target empty")
	ErrEdgeSelfLoop    = errors.New("edge connects node to itself")
)

// Routed reports whether the edge maps a single named field rather than
// merging the full upstream output
func (e *Edge) Routed() bool {
	return e.SourceHandle != "" && e.TargetHandle != ""
}

// Validate checks structural validity of an edge definition
func (e *Edge) Validate() error {
	if e.Source == "" {
		return ErrEdgeSourceEmpty
	}
	if e.Target == "" {
		return ErrEdgeTargetEmpty
	}
	if e.Source == e.Target {
		return fmt.Errorf("%w: %s", ErrEdgeSelfLoop, e.Source)
	}
	return nil
}
