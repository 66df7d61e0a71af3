package handler

import (
	"context"
	"time"

	"github.com/lisahq/lisaflow/pkg/api"
)

// InputHandler seeds a workflow branch: the node's static inputs merged
// with whatever initial data the run supplied
func InputHandler(
	_ context.Context, node *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	return node.Inputs.Merge(inputs), nil
}

// OutputHandler passes its merged inputs through unchanged; the scheduler
// collects outputs of "output" nodes into the report's data section
func OutputHandler(
	_ context.Context, _ *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	return inputs.Clone(), nil
}

// MergeHandler combines all upstream outputs, which the scheduler has
// already merged into the inputs map
func MergeHandler(
	_ context.Context, _ *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	return inputs.Clone(), nil
}

// DelayHandler pauses for the configured duration, honoring cancellation
func DelayHandler(
	ctx context.Context, node *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	ms := int64(0)
	if node.Delay != nil {
		ms = node.Delay.Ms
	} else {
		ms = int64(node.Config.GetInt("ms", 0))
	}
	if ms <= 0 {
		return inputs.Clone(), nil
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return inputs.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
