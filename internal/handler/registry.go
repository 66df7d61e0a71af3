// Package handler maps node types to the functions that execute them.
// Registries are populated once at startup and read-only during runs
package handler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/lisahq/lisaflow/pkg/api"
)

type (
	// Handler executes one node given its merged inputs and returns its
	// outputs. Handlers must respect context cancellation on anything that
	// blocks
	Handler func(
		ctx context.Context, node *api.ExecutionNode, inputs api.Values,
	) (api.Values, error)

	// Registry maps node types to handlers. An unregistered type is a
	// scheduling error, never a silent no-op
	Registry struct {
		handlers map[api.NodeType]Handler
	}
)

var (
	ErrUnknownNodeType  = errors.New("unknown node type")
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrNilHandler       = errors.New("handler is nil")
)

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: map[api.NodeType]Handler{}}
}

// NewBuiltinRegistry creates a registry with all built-in node handlers.
// The cache handler is registered only when a store is provided
func NewBuiltinRegistry(cache *CacheStore) *Registry {
	r := NewRegistry()
	_ = r.Register(api.NodeTypeInput, InputHandler)
	_ = r.Register(api.NodeTypeOutput, OutputHandler)
	_ = r.Register(api.NodeTypeMerge, MergeHandler)
	_ = r.Register(api.NodeTypeDelay, DelayHandler)
	_ = r.Register(api.NodeTypeCondition, ConditionHandler)
	_ = r.Register(api.NodeTypeExpression, ExpressionHandler)
	_ = r.Register(api.NodeTypeCode, ExpressionHandler)
	_ = r.Register(api.NodeTypeTransform, TransformHandler)
	_ = r.Register(api.NodeTypeHTTP, NewHTTPHandler(nil))
	if cache != nil {
		_ = r.Register(api.NodeTypeCache, cache.Handler)
	}
	return r
}

// Register binds a handler to a node type. Re-registering a type is an
// error so a populated registry stays stable
func (r *Registry) Register(t api.NodeType, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, t)
	}
	if _, ok := r.handlers[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
	}
	r.handlers[t] = h
	return nil
}

// HandlerFor looks up the handler for a node type
func (r *Registry) HandlerFor(t api.NodeType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, t)
	}
	return h, nil
}

// Types returns the registered node types, sorted
func (r *Registry) Types() []api.NodeType {
	return slices.Sorted(maps.Keys(r.handlers))
}
