package api

import (
	"errors"
	"fmt"
)

type (
	// NodeID uniquely identifies a node within a workflow
	NodeID string

	// NodeType discriminates which handler executes a node
	NodeType string

	// ExecutionNode is one typed step in a workflow graph. The typed config
	// pointers carry the settings for the built-in node types; Config is an
	// open extension bag for handler types registered by the caller. A node
	// is immutable once scheduling starts
	ExecutionNode struct {
		Condition  *ConditionConfig  `json:"condition,omitempty"`
		Expression *ExpressionConfig `json:"expression,omitempty"`
		Transform  *TransformConfig  `json:"transform,omitempty"`
		HTTP       *HTTPConfig       `json:"http,omitempty"`
		Delay      *DelayConfig      `json:"delay,omitempty"`
		Cache      *CacheConfig      `json:"cache,omitempty"`

		ID           NodeID   `json:"id"`
		Type         NodeType `json:"type"`
		Inputs       Values   `json:"inputs,omitempty"`
		Outputs      Values   `json:"outputs,omitempty"`
		Config       Values   `json:"config,omitempty"`
		Dependencies []NodeID `json:"dependencies,omitempty"`
		Priority     int      `json:"priority,omitempty"`
		RetryCount   *int     `json:"retry_count,omitempty"`
		TimeoutMs    *int64   `json:"timeout_ms,omitempty"`
	}

	// ConditionConfig holds the boolean expression a condition node
	// evaluates against its merged inputs
	ConditionConfig struct {
		Expression string `json:"expression"`
	}

	// ExpressionConfig holds the single safe expression an expression node
	// evaluates. OutputKey names the result field, defaulting to "result"
	ExpressionConfig struct {
		Expression string `json:"expression"`
		OutputKey  string `json:"output_key,omitempty"`
	}

	// TransformConfig routes fields of the merged inputs to output names
	// using gjson paths
	TransformConfig struct {
		Mappings map[string]string `json:"mappings,omitempty"`
		Pick     []string          `json:"pick,omitempty"`
	}

	// HTTPConfig describes an outbound HTTP call node
	HTTPConfig struct {
		Method  string            `json:"method,omitempty"`
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers,omitempty"`
		Body    Values            `json:"body,omitempty"`
	}

	// DelayConfig pauses a node for the given number of milliseconds
	DelayConfig struct {
		Ms int64 `json:"ms"`
	}

	// CacheConfig describes a cache node operation against the shared
	// key-value store. An empty Key addresses the entry by the content hash
	// of the node's merged inputs
	CacheConfig struct {
		Op    string `json:"op"`
		Key   string `json:"key,omitempty"`
		TTLMs int64  `json:"ttl_ms,omitempty"`
	}
)

const (
	NodeTypeInput      NodeType = "input"
	NodeTypeOutput     NodeType = "output"
	NodeTypeCondition  NodeType = "condition"
	NodeTypeExpression NodeType = "expression"
	NodeTypeCode       NodeType = "code"
	NodeTypeTransform  NodeType = "transform"
	NodeTypeHTTP       NodeType = "http"
	NodeTypeDelay      NodeType = "delay"
	NodeTypeMerge      NodeType = "merge"
	NodeTypeCache      NodeType = "cache"
)

const (
	Second int64 = 1000
	Minute       = Second * 60
	Hour         = Minute * 60
)

const (
	CacheOpGet = "get"
	CacheOpSet = "set"
)

var (
	ErrNodeIDEmpty          = errors.New("node ID empty")
	ErrNodeTypeEmpty        = errors.New("node type empty")
	ErrConditionRequired    = errors.New("condition config required")
	ErrExpressionRequired   = errors.New("expression config required")
	ErrHTTPRequired         = errors.New("http config required")
	ErrCacheRequired        = errors.New("cache config required")
	ErrInvalidCacheOp       = errors.New("invalid cache op")
	ErrNegativeRetryCount   = errors.New("retry count cannot be negative")
	ErrNonPositiveTimeout   = errors.New("timeout must be positive")
	ErrExpressionTextEmpty  = errors.New("expression text empty")
)

// Validate checks structural validity of a node definition before it is
// handed to the scheduler
func (n *ExecutionNode) Validate() error {
	if n.ID == "" {
		return ErrNodeIDEmpty
	}
	if n.Type == "" {
		return fmt.Errorf("%w: %s", ErrNodeTypeEmpty, n.ID)
	}
	if n.RetryCount != nil && *n.RetryCount < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeRetryCount, n.ID)
	}
	if n.TimeoutMs != nil && *n.TimeoutMs <= 0 {
		return fmt.Errorf("%w: %s", ErrNonPositiveTimeout, n.ID)
	}

	switch n.Type {
	case NodeTypeCondition:
		// the expression may live in the typed config or the open bag
		if n.Condition == nil {
			if n.Config.GetString("expression", "") == "" {
				return fmt.Errorf("%w: %s", ErrConditionRequired, n.ID)
			}
		} else if n.Condition.Expression == "" {
			return fmt.Errorf("%w: %s", ErrExpressionTextEmpty, n.ID)
		}
	case NodeTypeExpression, NodeTypeCode:
		if n.Expression == nil {
			return fmt.Errorf("%w: %s", ErrExpressionRequired, n.ID)
		}
		if n.Expression.Expression == "" {
			return fmt.Errorf("%w: %s", ErrExpressionTextEmpty, n.ID)
		}
	case NodeTypeHTTP:
		if n.HTTP == nil || n.HTTP.URL == "" {
			return fmt.Errorf("%w: %s", ErrHTTPRequired, n.ID)
		}
	case NodeTypeCache:
		if n.Cache == nil {
			return fmt.Errorf("%w: %s", ErrCacheRequired, n.ID)
		}
		if n.Cache.Op != CacheOpGet && n.Cache.Op != CacheOpSet {
			return fmt.Errorf("%w: %q", ErrInvalidCacheOp, n.Cache.Op)
		}
	}
	return nil
}
