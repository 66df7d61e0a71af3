package builder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisahq/lisaflow/internal/handler"
	"github.com/lisahq/lisaflow/internal/scheduler"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/builder"
)

func TestBuildRequest(t *testing.T) {
	req := builder.NewWorkflow("order-check").
		Add(
			builder.Input("order").WithInputs(api.Values{
				"total": 120,
				"vip":   true,
			}),
			builder.Condition("discount", "total > 100 || vip").
				DependsOn("order").
				WithPriority(5),
			builder.Output("done").DependsOn("discount"),
		).
		WithMaxConcurrency(2).
		WithMaxExecutionTime(5000).
		Build()

	assert.Equal(t, "order-check", req.RunID)
	require.Len(t, req.Nodes, 3)
	assert.Equal(t, api.NodeTypeCondition, req.Nodes[1].Type)
	assert.Equal(t, 5, req.Nodes[1].Priority)
	assert.Equal(t,
		[]api.NodeID{"order"}, req.Nodes[1].Dependencies)
	assert.Equal(t, 2, req.MaxConcurrency)
	assert.Equal(t, int64(5000), req.MaxExecutionTime)
}

func TestBuilderIsImmutable(t *testing.T) {
	base := builder.NewWorkflow("").
		Add(builder.Input("seed"))

	a := base.Add(builder.Output("a").DependsOn("seed"))
	b := base.Add(builder.Output("b").DependsOn("seed"))

	assert.Len(t, a.Build().Nodes, 2)
	assert.Len(t, b.Build().Nodes, 2)
	assert.Len(t, base.Build().Nodes, 1)
	assert.Equal(t, api.NodeID("a"), a.Build().Nodes[1].ID)
	assert.Equal(t, api.NodeID("b"), b.Build().Nodes[1].ID)
}

func TestNodeOverrides(t *testing.T) {
	n := builder.HTTP("call", "POST", "http://example.test").
		WithHeaders(map[string]string{"X-K": "v"}).
		WithBody(api.Values{"q": 1}).
		WithRetries(2).
		WithTimeout(1500).
		Build()

	require.NotNil(t, n.HTTP)
	assert.Equal(t, "v", n.HTTP.Headers["X-K"])
	assert.Equal(t, 1, n.HTTP.Body["q"])
	require.NotNil(t, n.RetryCount)
	assert.Equal(t, 2, *n.RetryCount)
	require.NotNil(t, n.TimeoutMs)
	assert.Equal(t, int64(1500), *n.TimeoutMs)
}

func TestRoutedEdges(t *testing.T) {
	req := builder.NewWorkflow("").
		Add(builder.Input("src"), builder.Output("dst")).
		Route("src", "email", "dst", "contact").
		Build()

	require.Len(t, req.Edges, 1)
	assert.True(t, req.Edges[0].Routed())
}

func TestBuiltWorkflowExecutes(t *testing.T) {
	req := builder.NewWorkflow("built-run").
		Add(
			builder.Input("in").WithInputs(api.Values{"n": 6}),
			builder.Expression("calc", "n * 7", "answer").
				DependsOn("in"),
			builder.Output("out").DependsOn("calc"),
		).
		Build()

	sched := scheduler.New(
		handler.NewBuiltinRegistry(nil), scheduler.Defaults{})
	report, err := sched.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, float64(42), report.Data["answer"])
}
