package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisahq/lisaflow/pkg/api"
)

func TestCloneIsIndependent(t *testing.T) {
	orig := api.Values{"a": 1}
	clone := orig.Clone()
	clone["a"] = 2
	clone["b"] = 3

	assert.Equal(t, 1, orig["a"])
	assert.NotContains(t, orig, "b")
}

func TestCloneNil(t *testing.T) {
	var v api.Values
	clone := v.Clone()
	require.NotNil(t, clone)

	// the clone of nil must be writable
	clone["x"] = 1
	assert.Equal(t, 1, clone["x"])
}

func TestMergeOtherWins(t *testing.T) {
	a := api.Values{"x": 1, "y": 1}
	b := api.Values{"y": 2, "z": 2}

	merged := a.Merge(b)
	assert.Equal(t, api.Values{"x": 1, "y": 2, "z": 2}, merged)

	// neither operand is mutated
	assert.Equal(t, 1, a["y"])
	assert.NotContains(t, a, "z")
}

func TestGetters(t *testing.T) {
	v := api.Values{
		"s": "text",
		"b": true,
		"i": 7,
		"f": float64(8),
	}

	assert.Equal(t, "text", v.GetString("s", "d"))
	assert.Equal(t, "d", v.GetString("missing", "d"))
	assert.Equal(t, "d", v.GetString("i", "d"))

	assert.True(t, v.GetBool("b", false))
	assert.False(t, v.GetBool("missing", false))

	assert.Equal(t, 7, v.GetInt("i", 0))
	assert.Equal(t, 8, v.GetInt("f", 0))
	assert.Equal(t, 9, v.GetInt("missing", 9))
}

func TestHashKeyDeterministic(t *testing.T) {
	a := api.Values{"x": 1, "y": "two", "z": true}
	b := api.Values{"z": true, "y": "two", "x": 1}

	ha, err := a.HashKey()
	require.NoError(t, err)
	hb, err := b.HashKey()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	hc, err := api.Values{"x": 2}.HashKey()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestNodeValidate(t *testing.T) {
	retries := -1
	timeout := int64(0)

	tests := []struct {
		name    string
		node    api.ExecutionNode
		wantErr error
	}{
		{
			name:    "empty_id",
			node:    api.ExecutionNode{Type: api.NodeTypeInput},
			wantErr: api.ErrNodeIDEmpty,
		},
		{
			name:    "empty_type",
			node:    api.ExecutionNode{ID: "n"},
			wantErr: api.ErrNodeTypeEmpty,
		},
		{
			name: "negative_retries",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeInput, RetryCount: &retries,
			},
			wantErr: api.ErrNegativeRetryCount,
		},
		{
			name: "zero_timeout",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeInput, TimeoutMs: &timeout,
			},
			wantErr: api.ErrNonPositiveTimeout,
		},
		{
			name: "condition_without_expression",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeCondition,
			},
			wantErr: api.ErrConditionRequired,
		},
		{
			name: "condition_via_config_bag",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeCondition,
				Config: api.Values{"expression": "x > 1"},
			},
		},
		{
			name: "expression_without_text",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeExpression,
				Expression: &api.ExpressionConfig{},
			},
			wantErr: api.ErrExpressionTextEmpty,
		},
		{
			name: "http_without_url",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeHTTP,
				HTTP: &api.HTTPConfig{},
			},
			wantErr: api.ErrHTTPRequired,
		},
		{
			name: "cache_bad_op",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeCache,
				Cache: &api.CacheConfig{Op: "flush", Key: "k"},
			},
			wantErr: api.ErrInvalidCacheOp,
		},
		{
			name: "cache_without_key_is_input_addressed",
			node: api.ExecutionNode{
				ID: "n", Type: api.NodeTypeCache,
				Cache: &api.CacheConfig{Op: api.CacheOpGet},
			},
		},
		{
			name: "valid_input",
			node: api.ExecutionNode{ID: "n", Type: api.NodeTypeInput},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEdgeValidate(t *testing.T) {
	assert.ErrorIs(t,
		(&api.Edge{Target: "b"}).Validate(), api.ErrEdgeSourceEmpty)
	assert.ErrorIs(t,
		(&api.Edge{Source: "a"}).Validate(), api.ErrEdgeTargetEmpty)
	assert.ErrorIs(t,
		(&api.Edge{Source: "a", Target: "a"}).Validate(),
		api.ErrEdgeSelfLoop)
	assert.NoError(t,
		(&api.Edge{Source: "a", Target: "b"}).Validate())
}

func TestEdgeRouted(t *testing.T) {
	assert.False(t, (&api.Edge{Source: "a", Target: "b"}).Routed())
	assert.False(t, (&api.Edge{
		Source: "a", Target: "b", SourceHandle: "x",
	}).Routed())
	assert.True(t, (&api.Edge{
		Source: "a", Target: "b",
		SourceHandle: "x", TargetHandle: "y",
	}).Routed())
}

func TestReportFailed(t *testing.T) {
	r := &api.ExecutionReport{}
	assert.False(t, r.Failed())

	r.Errors = map[api.NodeID]string{api.GlobalErrorKey: "timeout"}
	assert.True(t, r.Failed())
}
