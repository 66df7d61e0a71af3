// Package graph builds the dependency adjacency used by the scheduler
package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lisahq/lisaflow/pkg/api"
)

// Graph holds forward (source to targets) and reverse (target to sources)
// adjacency derived from a workflow's node and edge lists, plus the inbound
// edges per target for input routing
type Graph struct {
	nodes    map[api.NodeID]*api.ExecutionNode
	forward  map[api.NodeID][]api.NodeID
	reverse  map[api.NodeID][]api.NodeID
	incoming map[api.NodeID][]api.Edge
	order    []api.NodeID
}

var (
	ErrDuplicateNode = errors.New("duplicate node ID")
	ErrDanglingEdge  = errors.New("edge references unknown node")
	ErrCycle         = errors.New("workflow graph contains a cycle")
)

// Build validates the node and edge lists and produces adjacency maps.
// Edges that reference nodes absent from the node list are rejected
// outright: a node that could never become eligible must fail fast instead
// of silently vanishing from the execution path
func Build(nodes []*api.ExecutionNode, edges []api.Edge) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[api.NodeID]*api.ExecutionNode, len(nodes)),
		forward:  map[api.NodeID][]api.NodeID{},
		reverse:  map[api.NodeID][]api.NodeID{},
		incoming: map[api.NodeID][]api.Edge{},
	}

	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		if _, ok := g.nodes[n.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	for _, e := range edges {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("%w: source %s", ErrDanglingEdge, e.Source)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("%w: target %s", ErrDanglingEdge, e.Target)
		}
		g.forward[e.Source] = append(g.forward[e.Source], e.Target)
		g.reverse[e.Target] = append(g.reverse[e.Target], e.Source)
		g.incoming[e.Target] = append(g.incoming[e.Target], e)
	}

	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("%w: dependency %s of %s",
					ErrDanglingEdge, dep, n.ID)
			}
			if !slices.Contains(g.reverse[n.ID], dep) {
				g.forward[dep] = append(g.forward[dep], n.ID)
				g.reverse[n.ID] = append(g.reverse[n.ID], dep)
			}
		}
	}

	if stuck := g.cycleNodes(); len(stuck) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrCycle, stuck)
	}
	return g, nil
}

// cycleNodes runs a Kahn pass over the adjacency and returns the nodes that
// never reach in-degree zero. Such nodes could never become eligible, so
// they are rejected the same way dangling edges are
func (g *Graph) cycleNodes() []api.NodeID {
	indegree := make(map[api.NodeID]int, len(g.nodes))
	var queue []api.NodeID
	for _, id := range g.order {
		indegree[id] = len(g.reverse[id])
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	settled := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		settled++
		for _, next := range g.forward[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if settled == len(g.nodes) {
		return nil
	}

	var stuck []api.NodeID
	for _, id := range g.order {
		if indegree[id] > 0 {
			stuck = append(stuck, id)
		}
	}
	return stuck
}

// Node returns the node definition for an ID
func (g *Graph) Node(id api.NodeID) (*api.ExecutionNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes in the graph
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodeIDs returns all node IDs in definition order
func (g *Graph) NodeIDs() []api.NodeID {
	return g.order
}

// Roots returns the nodes with no incoming dependency, in definition order
func (g *Graph) Roots() []api.NodeID {
	var roots []api.NodeID
	for _, id := range g.order {
		if len(g.reverse[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Dependencies returns the upstream node IDs of id (reverse adjacency)
func (g *Graph) Dependencies(id api.NodeID) []api.NodeID {
	return g.reverse[id]
}

// Dependents returns the downstream node IDs of id (forward adjacency)
func (g *Graph) Dependents(id api.NodeID) []api.NodeID {
	return g.forward[id]
}

// Incoming returns the inbound edges of id, in edge definition order
func (g *Graph) Incoming(id api.NodeID) []api.Edge {
	return g.incoming[id]
}
