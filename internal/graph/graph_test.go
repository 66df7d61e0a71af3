package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisahq/lisaflow/internal/graph"
	"github.com/lisahq/lisaflow/pkg/api"
)

func node(id api.NodeID, deps ...api.NodeID) *api.ExecutionNode {
	return &api.ExecutionNode{
		ID:           id,
		Type:         api.NodeTypeInput,
		Dependencies: deps,
	}
}

func TestBuildAdjacency(t *testing.T) {
	g, err := graph.Build(
		[]*api.ExecutionNode{
			node("a"),
			node("b", "a"),
			node("c", "a", "b"),
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []api.NodeID{"a"}, g.Roots())
	assert.ElementsMatch(t,
		[]api.NodeID{"b", "c"}, g.Dependents("a"))
	assert.ElementsMatch(t,
		[]api.NodeID{"a", "b"}, g.Dependencies("c"))
	assert.Empty(t, g.Dependencies("a"))

	n, ok := g.Node("b")
	require.True(t, ok)
	assert.Equal(t, api.NodeID("b"), n.ID)
}

func TestEdgesAndDependenciesMerge(t *testing.T) {
	// the same relationship expressed as both an edge and a dependency
	// must not produce a duplicate adjacency entry
	g, err := graph.Build(
		[]*api.ExecutionNode{
			node("a"),
			node("b", "a"),
		},
		[]api.Edge{{Source: "a", Target: "b"}})
	require.NoError(t, err)

	assert.Equal(t, []api.NodeID{"a"}, g.Dependencies("b"))
	assert.Equal(t, []api.NodeID{"b"}, g.Dependents("a"))
	assert.Len(t, g.Incoming("b"), 1)
}

func TestDuplicateNodeRejected(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{node("dup"), node("dup")}, nil)
	assert.ErrorIs(t, err, graph.ErrDuplicateNode)
}

func TestDanglingEdgeRejected(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{node("a")},
		[]api.Edge{{Source: "a", Target: "ghost"}})
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)

	_, err = graph.Build(
		[]*api.ExecutionNode{node("a")},
		[]api.Edge{{Source: "ghost", Target: "a"}})
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)
}

func TestDanglingDependencyRejected(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{node("a", "ghost")}, nil)
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)
}

func TestCycleRejected(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{node("a"), node("b")},
		[]api.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		})
	assert.ErrorIs(t, err, graph.ErrCycle)
}

func TestCycleWithReachableRootRejected(t *testing.T) {
	// a valid root does not excuse a cycle elsewhere in the graph
	_, err := graph.Build(
		[]*api.ExecutionNode{
			node("root"),
			node("b", "root", "d"),
			node("c", "b"),
			node("d", "c"),
		}, nil)
	assert.ErrorIs(t, err, graph.ErrCycle)
}

func TestDiamondIsNotACycle(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{
			node("a"),
			node("b", "a"),
			node("c", "a"),
			node("d", "b", "c"),
		}, nil)
	assert.NoError(t, err)
}

func TestSelfLoopRejected(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{node("a")},
		[]api.Edge{{Source: "a", Target: "a"}})
	assert.Error(t, err)
}

func TestInvalidNodeRejected(t *testing.T) {
	_, err := graph.Build(
		[]*api.ExecutionNode{{ID: "", Type: api.NodeTypeInput}}, nil)
	assert.Error(t, err)
}
