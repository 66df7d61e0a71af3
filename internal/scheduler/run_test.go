package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisahq/lisaflow/internal/graph"
	"github.com/lisahq/lisaflow/internal/handler"
	"github.com/lisahq/lisaflow/pkg/api"
)

func TestNewRunControllableBeforeExecute(t *testing.T) {
	g, err := graph.Build([]*api.ExecutionNode{
		{ID: "n", Type: api.NodeTypeInput},
	}, nil)
	require.NoError(t, err)

	s := New(handler.NewRegistry(), Defaults{})
	r := newRun(context.Background(), "early", s, g, &api.ExecRequest{})

	// Abort and Stats can arrive through the API as soon as the run is
	// registered, before execute has been entered
	require.NotNil(t, r.ctx)
	assert.False(t, r.started.IsZero())
	assert.NotPanics(t, func() { r.abort(ErrRunAborted) })
	assert.GreaterOrEqual(t, r.stats().ElapsedTime, int64(0))
}
