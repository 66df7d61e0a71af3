package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type (
	// undefinedValue is the distinguished "undefined" value, distinct from
	// null (Go nil). Missing context entries and absent properties resolve
	// to it rather than erroring
	undefinedValue struct{}

	// evaluator walks an expression tree against a caller-supplied variable
	// context. It holds no state beyond the context and is purely
	// functional over its inputs
	evaluator struct {
		context map[string]any
	}
)

// Undefined is the value of unresolved identifiers and absent properties
var Undefined = undefinedValue{}

func (undefinedValue) String() string {
	return "undefined"
}

func (e *evaluator) eval(n node) (any, error) {
	switch n := n.(type) {
	case *literal:
		return n.value, nil
	case *identifier:
		return e.evalIdentifier(n)
	case *member:
		return e.evalMember(n)
	case *unary:
		return e.evalUnary(n)
	case *binary:
		return e.evalBinary(n)
	case *logical:
		return e.evalLogical(n)
	case *conditional:
		return e.evalConditional(n)
	case *call:
		return e.evalCall(n)
	default:
		return nil, newError(ErrSyntax, "unknown expression node %T", n)
	}
}

// evalIdentifier resolves a name: blocklist first, then the fixed safe
// globals, then the caller's context, defaulting to undefined
func (e *evaluator) evalIdentifier(n *identifier) (any, error) {
	if blockedNames.Contains(n.name) {
		return nil, newError(ErrBlockedIdentifier, "%s", n.name)
	}
	if v, ok := safeGlobals[n.name]; ok {
		return v, nil
	}
	if v, ok := e.context[n.name]; ok {
		return v, nil
	}
	return Undefined, nil
}

// evalMember applies the blocklist to the property name for both static and
// computed access, so obj.constructor and obj["constructor"] are rejected
// identically. Member access on null or undefined yields undefined
func (e *evaluator) evalMember(n *member) (any, error) {
	name, index, err := e.propertyKey(n)
	if err != nil {
		return nil, err
	}
	if name != "" && blockedNames.Contains(name) {
		return nil, newError(ErrBlockedProperty, "%s", name)
	}

	obj, err := e.eval(n.object)
	if err != nil {
		return nil, err
	}
	if isNullish(obj) {
		return Undefined, nil
	}

	if arr, ok := obj.([]any); ok {
		if name == "length" {
			return float64(len(arr)), nil
		}
		if index >= 0 && index < len(arr) {
			return arr[index], nil
		}
		return Undefined, nil
	}
	if s, ok := obj.(string); ok {
		if name == "length" {
			return float64(len(s)), nil
		}
		if index >= 0 && index < len(s) {
			return string(s[index]), nil
		}
		return Undefined, nil
	}
	if m := asObject(obj); m != nil {
		if v, ok := m[name]; ok {
			return v, nil
		}
		return Undefined, nil
	}
	return Undefined, nil
}

// propertyKey resolves the property of a member access to a string name
// and, when numeric, an index. Static properties are identifiers; computed
// properties are evaluated first
func (e *evaluator) propertyKey(n *member) (string, int, error) {
	if !n.computed {
		id, ok := n.property.(*identifier)
		if !ok {
			return "", -1, newError(ErrSyntax, "invalid property access")
		}
		return id.name, -1, nil
	}

	v, err := e.eval(n.property)
	if err != nil {
		return "", -1, err
	}
	if f, ok := asNumber(v); ok {
		if f == math.Trunc(f) && f >= 0 {
			return formatNumber(f), int(f), nil
		}
		return formatNumber(f), -1, nil
	}
	return toString(v), -1, nil
}

func (e *evaluator) evalUnary(n *unary) (any, error) {
	v, err := e.eval(n.operand)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !Truthy(v), nil
	case "-":
		return -toNumber(v), nil
	case "+":
		return toNumber(v), nil
	default:
		return nil, newError(ErrSyntax, "unknown unary operator %q", n.op)
	}
}

func (e *evaluator) evalBinary(n *binary) (any, error) {
	left, err := e.eval(n.left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+":
		if isStringy(left) || isStringy(right) {
			return toString(left) + toString(right), nil
		}
		return toNumber(left) + toNumber(right), nil
	case "-":
		return toNumber(left) - toNumber(right), nil
	case "*":
		return toNumber(left) * toNumber(right), nil
	case "/":
		return toNumber(left) / toNumber(right), nil
	case "%":
		return math.Mod(toNumber(left), toNumber(right)), nil
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "===":
		return strictEquals(left, right), nil
	case "!==":
		return !strictEquals(left, right), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, left, right), nil
	default:
		return nil, newError(ErrSyntax, "unknown operator %q", n.op)
	}
}

// evalLogical implements short-circuit && and ||, and nullish coalescing
// ?? which falls through only on null/undefined, not on falsy values
func (e *evaluator) evalLogical(n *logical) (any, error) {
	left, err := e.eval(n.left)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "&&":
		if !Truthy(left) {
			return left, nil
		}
	case "||":
		if Truthy(left) {
			return left, nil
		}
	case "??":
		if !isNullish(left) {
			return left, nil
		}
	default:
		return nil, newError(ErrSyntax, "unknown logical operator %q", n.op)
	}
	return e.eval(n.right)
}

// evalConditional evaluates only the taken branch
func (e *evaluator) evalConditional(n *conditional) (any, error) {
	test, err := e.eval(n.test)
	if err != nil {
		return nil, err
	}
	if Truthy(test) {
		return e.eval(n.then)
	}
	return e.eval(n.els)
}

// evalCall permits a call only when the callee's full dotted path is on the
// allow-list. The callee is then resolved normally, which re-applies the
// identifier and property checks
func (e *evaluator) evalCall(n *call) (any, error) {
	path, ok := calleePath(n.callee)
	if !ok {
		return nil, newError(ErrCallNotAllowed, "dynamic call target")
	}
	if !callAllowList.Contains(path) {
		return nil, newError(ErrCallNotAllowed, "%s", path)
	}

	callee, err := e.eval(n.callee)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(builtinFunc)
	if !ok {
		return nil, newError(ErrCallNotAllowed, "%s is not callable", path)
	}

	args := make([]any, len(n.args))
	for i, argNode := range n.args {
		if args[i], err = e.eval(argNode); err != nil {
			return nil, err
		}
	}
	res, err := fn(args)
	if err != nil {
		return nil, newError(ErrSyntax, "%s: %s", path, err)
	}
	return res, nil
}

// calleePath renders an identifier or static member chain as a dotted path.
// Computed members have no static path and are never callable
func calleePath(n node) (string, bool) {
	switch n := n.(type) {
	case *identifier:
		return n.name, true
	case *member:
		if n.computed {
			return "", false
		}
		base, ok := calleePath(n.object)
		if !ok {
			return "", false
		}
		id, ok := n.property.(*identifier)
		if !ok {
			return "", false
		}
		return base + "." + id.name, true
	default:
		return "", false
	}
}

// Truthy applies loose boolean coercion: false, 0, NaN, "", null, and
// undefined are false; everything else is true
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil, undefinedValue:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	if f, ok := asNumber(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func isNullish(v any) bool {
	switch v.(type) {
	case nil, undefinedValue:
		return true
	}
	return false
}

func isStringy(v any) bool {
	switch v.(type) {
	case string:
		return true
	}
	return false
}

// asNumber converts native Go numeric types to float64 without coercing
// other kinds
func asNumber(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// toNumber coerces a value the way the host's numeric operators do: null
// is 0, undefined is NaN, booleans are 0/1, and strings parse or yield NaN
func toNumber(v any) float64 {
	switch v := v.(type) {
	case nil:
		return 0
	case undefinedValue:
		return math.NaN()
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if f, ok := asNumber(v); ok {
		return f
	}
	return math.NaN()
}

func toString(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case undefinedValue:
		return "undefined"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	if f, ok := asNumber(v); ok {
		return formatNumber(f)
	}
	return fmt.Sprintf("%v", v)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// looseEquals matches conventional dynamic-language == semantics: null and
// undefined equal each other, numbers and numeric strings compare by value,
// and booleans coerce to numbers
func looseEquals(a, b any) bool {
	an, bn := isNullish(a), isNullish(b)
	if an || bn {
		return an && bn
	}

	if ab, ok := a.(bool); ok {
		return looseEquals(boolToNumber(ab), b)
	}
	if bb, ok := b.(bool); ok {
		return looseEquals(a, boolToNumber(bb))
	}

	af, aNum := asNumber(a)
	bf, bNum := asNumber(b)
	switch {
	case aNum && bNum:
		return af == bf
	case aNum:
		if bs, ok := b.(string); ok {
			return af == toNumber(bs)
		}
		return false
	case bNum:
		if as, ok := a.(string); ok {
			return toNumber(as) == bf
		}
		return false
	}

	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	// objects and arrays compare by reference, and references are never
	// shared across evaluation results, so non-primitives are never equal
	return false
}

// strictEquals requires matching kinds: all host numerics count as one
// number kind, and null is not undefined
func strictEquals(a, b any) bool {
	if af, ok := asNumber(a); ok {
		bf, ok := asNumber(b)
		return ok && af == bf
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case undefinedValue:
		_, ok := b.(undefinedValue)
		return ok
	case string:
		bs, ok := b.(string)
		return ok && a == bs
	case bool:
		bb, ok := b.(bool)
		return ok && a == bb
	default:
		// non-primitives compare by reference, never by structure
		return false
	}
}

func compare(op string, a, b any) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return compareOrdered(op, strings.Compare(as, bs), 0)
		}
	}
	af, bf := toNumber(a), toNumber(b)
	if math.IsNaN(af) || math.IsNaN(bf) {
		return false
	}
	return compareFloats(op, af, bf)
}

func compareOrdered(op string, a, b int) bool {
	return compareFloats(op, float64(a), float64(b))
}

func compareFloats(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	default:
		return false
	}
}

func boolToNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// asObject views map-typed values with string keys as a generic object,
// covering both map[string]any and named map types like api.Values
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map ||
		rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	res := make(map[string]any, rv.Len())
	for _, k := range rv.MapKeys() {
		res[k.String()] = rv.MapIndex(k).Interface()
	}
	return res
}

// normalize prepares a value for JSON marshaling, mapping undefined to null
func normalize(v any) any {
	if _, ok := v.(undefinedValue); ok {
		return nil
	}
	return v
}
