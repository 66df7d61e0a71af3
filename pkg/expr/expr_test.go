package expr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisahq/lisaflow/pkg/expr"
)

func eval(t *testing.T, src string, ctx map[string]any) any {
	t.Helper()
	res, err := expr.Evaluate(src, ctx)
	require.NoError(t, err, src)
	return res
}

func evalErr(t *testing.T, src string, ctx map[string]any) error {
	t.Helper()
	_, err := expr.Evaluate(src, ctx)
	require.Error(t, err, src)
	return err
}

func TestLiterals(t *testing.T) {
	assert.Equal(t, float64(42), eval(t, "42", nil))
	assert.Equal(t, 3.14, eval(t, "3.14", nil))
	assert.Equal(t, float64(1500), eval(t, "1.5e3", nil))
	assert.Equal(t, "hello", eval(t, "'hello'", nil))
	assert.Equal(t, "world", eval(t, `"world"`, nil))
	assert.Equal(t, "a\nb", eval(t, `'a\nb'`, nil))
	assert.Equal(t, true, eval(t, "true", nil))
	assert.Equal(t, false, eval(t, "false", nil))
	assert.Nil(t, eval(t, "null", nil))
	assert.Equal(t, expr.Undefined, eval(t, "undefined", nil))
}

func TestArithmetic(t *testing.T) {
	assert.Equal(t, float64(7), eval(t, "3 + 4", nil))
	assert.Equal(t, float64(12), eval(t, "3 * 4", nil))
	assert.Equal(t, 0.75, eval(t, "3 / 4", nil))
	assert.Equal(t, float64(1), eval(t, "10 % 3", nil))
	assert.Equal(t, float64(14), eval(t, "2 + 3 * 4", nil))
	assert.Equal(t, float64(20), eval(t, "(2 + 3) * 4", nil))
	assert.Equal(t, float64(-5), eval(t, "-5", nil))
	assert.Equal(t, float64(5), eval(t, "+'5'", nil))
}

func TestStringConcatenation(t *testing.T) {
	assert.Equal(t, "ab", eval(t, "'a' + 'b'", nil))
	assert.Equal(t, "x1", eval(t, "'x' + 1", nil))
	assert.Equal(t, "1x", eval(t, "1 + 'x'", nil))
}

func TestComparison(t *testing.T) {
	assert.Equal(t, true, eval(t, "3 < 4", nil))
	assert.Equal(t, false, eval(t, "4 <= 3", nil))
	assert.Equal(t, true, eval(t, "'abc' < 'abd'", nil))
	assert.Equal(t, true, eval(t, "10 > 2", nil))
	assert.Equal(t, true, eval(t, "2 >= 2", nil))
}

func TestEquality(t *testing.T) {
	// loose equality coerces
	assert.Equal(t, true, eval(t, "1 == '1'", nil))
	assert.Equal(t, true, eval(t, "null == undefined", nil))
	assert.Equal(t, true, eval(t, "true == 1", nil))

	// strict equality does not
	assert.Equal(t, false, eval(t, "1 === '1'", nil))
	assert.Equal(t, false, eval(t, "null === undefined", nil))
	assert.Equal(t, true, eval(t, "null === null", nil))
	assert.Equal(t, true, eval(t, "1 === 1", nil))
	assert.Equal(t, true, eval(t, "1 !== 2", nil))
}

func TestNonPrimitiveEquality(t *testing.T) {
	// objects and arrays compare by reference, so structurally equal
	// values from different evaluations are never equal
	ctx := map[string]any{
		"a":  map[string]any{"x": float64(1)},
		"b":  map[string]any{"x": float64(1)},
		"xs": []any{float64(1)},
		"ys": []any{float64(1)},
	}
	assert.Equal(t, false, eval(t, "a === b", ctx))
	assert.Equal(t, false, eval(t, "a == b", ctx))
	assert.Equal(t, false, eval(t, "xs === ys", ctx))
	assert.Equal(t, true, eval(t, "xs !== ys", ctx))
	assert.Equal(t, false, eval(t, "Object.keys(a) === Object.keys(b)", ctx))
}

func TestLogicalOperators(t *testing.T) {
	// && and || return operand values, not booleans
	assert.Equal(t, float64(2), eval(t, "1 && 2", nil))
	assert.Equal(t, float64(0), eval(t, "0 && 2", nil))
	assert.Equal(t, float64(1), eval(t, "1 || 2", nil))
	assert.Equal(t, float64(2), eval(t, "0 || 2", nil))

	// ?? only falls through on null and undefined
	assert.Equal(t, float64(5), eval(t, "null ?? 5", nil))
	assert.Equal(t, float64(5), eval(t, "undefined ?? 5", nil))
	assert.Equal(t, float64(0), eval(t, "0 ?? 5", nil))
	assert.Equal(t, "", eval(t, "'' ?? 'x'", nil))
}

func TestTernary(t *testing.T) {
	assert.Equal(t, "yes", eval(t, "1 < 2 ? 'yes' : 'no'", nil))
	assert.Equal(t, "no", eval(t, "1 > 2 ? 'yes' : 'no'", nil))
	assert.Equal(t, "b",
		eval(t, "false ? 'a' : true ? 'b' : 'c'", nil))
}

func TestContextAccess(t *testing.T) {
	ctx := map[string]any{
		"user": map[string]any{
			"name": "Ada",
			"tags": []any{"admin", "ops"},
		},
		"count": 3,
	}

	assert.Equal(t, "Ada", eval(t, "user.name", ctx))
	assert.Equal(t, "Ada", eval(t, "user['name']", ctx))
	assert.Equal(t, "admin", eval(t, "user.tags[0]", ctx))
	assert.Equal(t, float64(2), eval(t, "user.tags.length", ctx))
	assert.Equal(t, float64(4), eval(t, "count + 1", ctx))

	// unknown identifiers resolve to undefined, not errors
	assert.Equal(t, expr.Undefined, eval(t, "missing", ctx))
	assert.Equal(t, expr.Undefined, eval(t, "user.missing", ctx))
}

func TestMemberOfNullish(t *testing.T) {
	ctx := map[string]any{"gone": nil}
	assert.Equal(t, expr.Undefined, eval(t, "gone.anything", ctx))
	assert.Equal(t, expr.Undefined, eval(t, "missing.deep.path", ctx))
}

func TestStringIndexing(t *testing.T) {
	ctx := map[string]any{"s": "abc"}
	assert.Equal(t, "b", eval(t, "s[1]", ctx))
	assert.Equal(t, float64(3), eval(t, "s.length", ctx))
	assert.Equal(t, expr.Undefined, eval(t, "s[9]", ctx))
}

func TestTruthiness(t *testing.T) {
	assert.False(t, expr.Truthy(nil))
	assert.False(t, expr.Truthy(expr.Undefined))
	assert.False(t, expr.Truthy(false))
	assert.False(t, expr.Truthy(float64(0)))
	assert.False(t, expr.Truthy(math.NaN()))
	assert.False(t, expr.Truthy(""))

	assert.True(t, expr.Truthy(true))
	assert.True(t, expr.Truthy(float64(1)))
	assert.True(t, expr.Truthy("false"))
	assert.True(t, expr.Truthy([]any{}))
	assert.True(t, expr.Truthy(map[string]any{}))
}

func TestEvaluateCondition(t *testing.T) {
	ctx := map[string]any{
		"age":        21,
		"hasLicense": true,
	}

	ok, err := expr.EvaluateCondition(
		"age >= 18 && hasLicense === true", ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ctx["age"] = 16
	ok, err = expr.EvaluateCondition(
		"age >= 18 && hasLicense === true", ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowedCalls(t *testing.T) {
	assert.Equal(t, float64(4), eval(t, "Math.abs(-4)", nil))
	assert.Equal(t, float64(3), eval(t, "Math.floor(3.9)", nil))
	assert.Equal(t, float64(4), eval(t, "Math.ceil(3.1)", nil))
	assert.Equal(t, float64(8), eval(t, "Math.pow(2, 3)", nil))
	assert.Equal(t, float64(1), eval(t, "Math.min(3, 1, 2)", nil))
	assert.Equal(t, float64(3), eval(t, "Math.max(3, 1, 2)", nil))
	assert.Equal(t, float64(42), eval(t, "parseInt('42px')", nil))
	assert.Equal(t, float64(255), eval(t, "parseInt('ff', 16)", nil))
	assert.Equal(t, 3.5, eval(t, "parseFloat('3.5kg')", nil))
	assert.Equal(t, float64(7), eval(t, "Number('7')", nil))
	assert.Equal(t, "7", eval(t, "String(7)", nil))
	assert.Equal(t, true, eval(t, "Boolean(1)", nil))
	assert.Equal(t, true, eval(t, "isNaN(Number('x'))", nil))
	assert.Equal(t, true, eval(t, "isFinite(1)", nil))

	ctx := map[string]any{"obj": map[string]any{"a": 1}}
	keys := eval(t, "Object.keys(obj)", ctx)
	assert.Equal(t, []any{"a"}, keys)

	assert.Equal(t, true, eval(t, "Array.isArray(Object.keys(obj))", ctx))
	assert.Equal(t, false, eval(t, "Array.isArray(obj)", ctx))

	parsed := eval(t, `JSON.parse('{"x": 1}')`, nil)
	assert.Equal(t, map[string]any{"x": float64(1)}, parsed)
	assert.Equal(t, `{"a":1}`, eval(t, "JSON.stringify(obj)", ctx))
}

func TestBlockedIdentifiers(t *testing.T) {
	for _, src := range []string{
		"process.env",
		"global.x",
		"globalThis.x",
		"require.cache",
		"window.location",
		"document.cookie",
		"fetch",
		"setTimeout",
	} {
		err := evalErr(t, src, nil)
		assert.True(t, expr.IsSafeEvalError(err), src)
	}
}

func TestBlockedProperties(t *testing.T) {
	ctx := map[string]any{"x": map[string]any{}}
	for _, src := range []string{
		"x.constructor",
		"x.__proto__",
		"x['__proto__']",
		"x.prototype",
	} {
		err := evalErr(t, src, ctx)
		assert.True(t, expr.IsSafeEvalError(err), src)
	}
}

func TestEvalIsRejected(t *testing.T) {
	// pattern screening catches these before the parser runs
	for _, src := range []string{
		"eval('1+1')",
		"Function('return 1')()",
		"require('fs')",
		"import('fs')",
	} {
		err := evalErr(t, src, nil)
		assert.True(t, expr.IsSafeEvalError(err), src)
	}
}

func TestCallsOutsideAllowList(t *testing.T) {
	ctx := map[string]any{"f": map[string]any{}}
	for _, src := range []string{
		"Math.random()",
		"JSON.unknown()",
		"f()",
		"f.g()",
	} {
		err := evalErr(t, src, ctx)
		assert.True(t, expr.IsSafeEvalError(err), src)
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"(1 + 2",
		"'unterminated",
		"1 2",
		"a.",
		"?:",
	} {
		err := evalErr(t, src, nil)
		assert.ErrorIs(t, err, expr.ErrSyntax, src)
	}
}

func TestNaNSemantics(t *testing.T) {
	res := eval(t, "0 / 0", nil)
	f, ok := res.(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))

	// NaN never compares equal, and relational on NaN is false
	assert.Equal(t, false, eval(t, "NaN === NaN", nil))
	assert.Equal(t, false, eval(t, "NaN < 1", nil))
	assert.Equal(t, false, eval(t, "NaN > 1", nil))
}

func TestCompileReuse(t *testing.T) {
	p, err := expr.Compile("n * 2")
	require.NoError(t, err)
	assert.Equal(t, "n * 2", p.Source())

	for i := 1; i <= 3; i++ {
		res, err := p.Evaluate(map[string]any{"n": i})
		require.NoError(t, err)
		assert.Equal(t, float64(i*2), res)
	}
}

func TestSafeEvalErrorDetection(t *testing.T) {
	err := evalErr(t, "process.exit()", nil)
	assert.True(t, expr.IsSafeEvalError(err))

	assert.False(t, expr.IsSafeEvalError(nil))
	assert.False(t, expr.IsSafeEvalError(assert.AnError))
}
