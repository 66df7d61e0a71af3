package builder

import (
	"maps"
	"slices"

	"github.com/lisahq/lisaflow/pkg/api"
)

// Node is a builder for a single workflow node
type Node struct {
	node api.ExecutionNode
}

// NewNode creates a node builder of an arbitrary type
func NewNode(id api.NodeID, nodeType api.NodeType) *Node {
	return &Node{
		node: api.ExecutionNode{
			ID:   id,
			Type: nodeType,
		},
	}
}

// Input creates an input node seeding a workflow branch
func Input(id api.NodeID) *Node {
	return NewNode(id, api.NodeTypeInput)
}

// Output creates an output node whose results appear in the report data
func Output(id api.NodeID) *Node {
	return NewNode(id, api.NodeTypeOutput)
}

// Merge creates a node combining all upstream outputs
func Merge(id api.NodeID) *Node {
	return NewNode(id, api.NodeTypeMerge)
}

// Condition creates a node evaluating a boolean expression
func Condition(id api.NodeID, expression string) *Node {
	n := NewNode(id, api.NodeTypeCondition)
	n.node.Condition = &api.ConditionConfig{Expression: expression}
	return n
}

// Expression creates a node evaluating a single safe expression, storing
// the result under outputKey
func Expression(id api.NodeID, expression, outputKey string) *Node {
	n := NewNode(id, api.NodeTypeExpression)
	n.node.Expression = &api.ExpressionConfig{
		Expression: expression,
		OutputKey:  outputKey,
	}
	return n
}

// Transform creates a node projecting input fields through gjson paths
func Transform(id api.NodeID, mappings map[string]string) *Node {
	n := NewNode(id, api.NodeTypeTransform)
	n.node.Transform = &api.TransformConfig{
		Mappings: maps.Clone(mappings),
	}
	return n
}

// HTTP creates a node performing an outbound HTTP call
func HTTP(id api.NodeID, method, url string) *Node {
	n := NewNode(id, api.NodeTypeHTTP)
	n.node.HTTP = &api.HTTPConfig{
		Method: method,
		URL:    url,
	}
	return n
}

// Delay creates a node pausing its branch for ms milliseconds
func Delay(id api.NodeID, ms int64) *Node {
	n := NewNode(id, api.NodeTypeDelay)
	n.node.Delay = &api.DelayConfig{Ms: ms}
	return n
}

// CacheGet creates a node reading a cache key into its outputs
func CacheGet(id api.NodeID, key string) *Node {
	n := NewNode(id, api.NodeTypeCache)
	n.node.Cache = &api.CacheConfig{Op: api.CacheOpGet, Key: key}
	return n
}

// CacheSet creates a node writing its merged inputs under a cache key
func CacheSet(id api.NodeID, key string, ttlMs int64) *Node {
	n := NewNode(id, api.NodeTypeCache)
	n.node.Cache = &api.CacheConfig{
		Op:    api.CacheOpSet,
		Key:   key,
		TTLMs: ttlMs,
	}
	return n
}

// WithInputs sets the node's static inputs
func (n *Node) WithInputs(inputs api.Values) *Node {
	res := *n
	res.node.Inputs = inputs.Clone()
	return &res
}

// WithPriority sets the node's launch priority; higher launches first
func (n *Node) WithPriority(priority int) *Node {
	res := *n
	res.node.Priority = priority
	return &res
}

// WithRetries overrides the run's retry count for this node
func (n *Node) WithRetries(count int) *Node {
	res := *n
	res.node.RetryCount = &count
	return &res
}

// WithTimeout overrides the run's per-node timeout for this node
func (n *Node) WithTimeout(ms int64) *Node {
	res := *n
	res.node.TimeoutMs = &ms
	return &res
}

// WithHeaders sets request headers on an HTTP node
func (n *Node) WithHeaders(headers map[string]string) *Node {
	res := *n
	http := *n.node.HTTP
	http.Headers = maps.Clone(headers)
	res.node.HTTP = &http
	return &res
}

// WithBody sets the static request body on an HTTP node. The node's merged
// inputs are folded into it at execution time
func (n *Node) WithBody(body api.Values) *Node {
	res := *n
	http := *n.node.HTTP
	http.Body = body.Clone()
	res.node.HTTP = &http
	return &res
}

// DependsOn declares upstream nodes this node waits for
func (n *Node) DependsOn(deps ...api.NodeID) *Node {
	res := *n
	res.node.Dependencies = slices.Concat(n.node.Dependencies, deps)
	return &res
}

// Build returns the assembled node definition
func (n *Node) Build() *api.ExecutionNode {
	node := n.node
	node.Dependencies = slices.Clone(n.node.Dependencies)
	return &node
}
