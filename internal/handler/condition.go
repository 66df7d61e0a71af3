package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/lisahq/lisaflow/internal/util"
	"github.com/lisahq/lisaflow/pkg/api"
	"github.com/lisahq/lisaflow/pkg/expr"
)

const programCacheSize = 4096

var (
	ErrNotSingleExpression = errors.New(
		"only a single safe expression is supported; delegate complex " +
			"code to an external code execution service")

	// programCache memoizes compiled expressions by source text. Programs
	// are immutable, so sharing across runs is safe
	programCache = util.NewLRUCache[*expr.Program](programCacheSize)

	// statementPatterns heuristically detect multi-statement or
	// control-flow code that the expression grammar cannot represent
	statementPatterns = []*regexp.Regexp{
		regexp.MustCompile(`;`),
		regexp.MustCompile(`\b(if|else|for|while|do|switch|return|throw)\b`),
		regexp.MustCompile(`\b(function|class|var|let|const|new)\b`),
		regexp.MustCompile(`=>`),
	}
)

// ConditionHandler evaluates the node's boolean expression against its
// merged inputs and returns {"result": bool}
func ConditionHandler(
	_ context.Context, node *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	src := conditionSource(node)
	if src == "" {
		return nil, fmt.Errorf("%w: %s", api.ErrConditionRequired, node.ID)
	}
	program, err := compile(src)
	if err != nil {
		return nil, err
	}
	result, err := program.Evaluate(inputs)
	if err != nil {
		return nil, err
	}
	return api.Values{"result": expr.Truthy(result)}, nil
}

// ExpressionHandler evaluates a single safe expression against the merged
// inputs. Anything that looks like statements or control flow is rejected
// rather than executed; the scheduler never falls back to unrestricted
// execution
func ExpressionHandler(
	_ context.Context, node *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	cfg := node.Expression
	if cfg == nil || cfg.Expression == "" {
		return nil, fmt.Errorf("%w: %s", api.ErrExpressionRequired, node.ID)
	}
	for _, pattern := range statementPatterns {
		if pattern.MatchString(cfg.Expression) {
			return nil, fmt.Errorf("%w: %s", ErrNotSingleExpression, node.ID)
		}
	}

	program, err := compile(cfg.Expression)
	if err != nil {
		return nil, err
	}
	result, err := program.Evaluate(inputs)
	if err != nil {
		return nil, err
	}

	key := cfg.OutputKey
	if key == "" {
		key = "result"
	}
	return api.Values{key: result}, nil
}

func conditionSource(node *api.ExecutionNode) string {
	if node.Condition != nil && node.Condition.Expression != "" {
		return node.Condition.Expression
	}
	return node.Config.GetString("expression", "")
}

func compile(src string) (*expr.Program, error) {
	return programCache.Get(src, func() (*expr.Program, error) {
		return expr.Compile(src)
	})
}
