package expr

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/lisahq/lisaflow/internal/util"
)

// builtinFunc is a pure host function exposed to expressions. Only functions
// whose dotted path is on the call allow-list can ever be invoked
type builtinFunc func(args []any) (any, error)

// blockedNames rejects identifiers and property names that could reach host
// internals or I/O. The list is fixed and checked before any other
// resolution, for both static and computed access
var blockedNames = util.SetOf(
	"eval", "Function", "constructor", "__proto__", "prototype",
	"__defineGetter__", "__defineSetter__",
	"__lookupGetter__", "__lookupSetter__",
	"require", "import", "module", "exports",
	"global", "globalThis", "window", "document", "process", "Buffer",
	"setTimeout", "setInterval", "setImmediate",
	"clearTimeout", "clearInterval", "clearImmediate",
	"fetch", "XMLHttpRequest", "WebSocket",
)

// callAllowList is the closed set of dotted callee paths permitted as call
// targets. It is intentionally disjoint from whatever happens to be
// callable: a function passed in through the context cannot be invoked
var callAllowList = util.SetOf(
	"Math.abs", "Math.ceil", "Math.floor", "Math.round", "Math.trunc",
	"Math.sign", "Math.sqrt", "Math.pow", "Math.min", "Math.max",
	"Math.log", "Math.log2", "Math.log10", "Math.exp",
	"Object.keys", "Object.values", "Object.entries",
	"Array.isArray", "JSON.parse", "JSON.stringify",
	"Number", "String", "Boolean",
	"parseInt", "parseFloat", "isNaN", "isFinite",
)

// safeGlobals are the fixed namespace objects and conversion functions that
// resolve ahead of the caller's context, so context entries can never
// shadow them
var safeGlobals = map[string]any{
	"Math":       mathNamespace,
	"Object":     objectNamespace,
	"Array":      arrayNamespace,
	"JSON":       jsonNamespace,
	"Number":     builtinFunc(builtinNumber),
	"String":     builtinFunc(builtinString),
	"Boolean":    builtinFunc(builtinBoolean),
	"parseInt":   builtinFunc(builtinParseInt),
	"parseFloat": builtinFunc(builtinParseFloat),
	"isNaN":      builtinFunc(builtinIsNaN),
	"isFinite":   builtinFunc(builtinIsFinite),
	"NaN":        math.NaN(),
	"Infinity":   math.Inf(1),
}

var mathNamespace = map[string]any{
	"PI":    math.Pi,
	"E":     math.E,
	"abs":   numericFn(math.Abs),
	"ceil":  numericFn(math.Ceil),
	"floor": numericFn(math.Floor),
	"round": numericFn(math.Round),
	"trunc": numericFn(math.Trunc),
	"sqrt":  numericFn(math.Sqrt),
	"log":   numericFn(math.Log),
	"log2":  numericFn(math.Log2),
	"log10": numericFn(math.Log10),
	"exp":   numericFn(math.Exp),
	"sign": numericFn(func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return f
		}
	}),
	"pow": builtinFunc(func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow expects 2 arguments, got %d",
				len(args))
		}
		return math.Pow(toNumber(args[0]), toNumber(args[1])), nil
	}),
	"min": builtinFunc(func(args []any) (any, error) {
		return numericFold(args, math.Inf(1), math.Min), nil
	}),
	"max": builtinFunc(func(args []any) (any, error) {
		return numericFold(args, math.Inf(-1), math.Max), nil
	}),
}

var objectNamespace = map[string]any{
	"keys": builtinFunc(func(args []any) (any, error) {
		m, err := objectArg("Object.keys", args)
		if err != nil {
			return nil, err
		}
		keys := slices.Sorted(maps.Keys(m))
		res := make([]any, len(keys))
		for i, k := range keys {
			res[i] = k
		}
		return res, nil
	}),
	"values": builtinFunc(func(args []any) (any, error) {
		m, err := objectArg("Object.values", args)
		if err != nil {
			return nil, err
		}
		keys := slices.Sorted(maps.Keys(m))
		res := make([]any, len(keys))
		for i, k := range keys {
			res[i] = m[k]
		}
		return res, nil
	}),
	"entries": builtinFunc(func(args []any) (any, error) {
		m, err := objectArg("Object.entries", args)
		if err != nil {
			return nil, err
		}
		keys := slices.Sorted(maps.Keys(m))
		res := make([]any, len(keys))
		for i, k := range keys {
			res[i] = []any{k, m[k]}
		}
		return res, nil
	}),
}

var arrayNamespace = map[string]any{
	"isArray": builtinFunc(func(args []any) (any, error) {
		if len(args) != 1 {
			return false, nil
		}
		_, ok := args[0].([]any)
		return ok, nil
	}),
}

var jsonNamespace = map[string]any{
	"parse": builtinFunc(func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("JSON.parse expects 1 argument, got %d",
				len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			s = toString(args[0])
		}
		var res any
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, fmt.Errorf("JSON.parse: %w", err)
		}
		return res, nil
	}),
	"stringify": builtinFunc(func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf(
				"JSON.stringify expects 1 argument, got %d", len(args))
		}
		data, err := json.Marshal(normalize(args[0]))
		if err != nil {
			return nil, fmt.Errorf("JSON.stringify: %w", err)
		}
		return string(data), nil
	}),
}

func numericFn(f func(float64) float64) builtinFunc {
	return func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return f(toNumber(args[0])), nil
	}
}

func numericFold(
	args []any, initial float64, f func(float64, float64) float64,
) float64 {
	res := initial
	for _, a := range args {
		res = f(res, toNumber(a))
	}
	return res
}

func objectArg(name string, args []any) (map[string]any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects 1 argument, got %d",
			name, len(args))
	}
	if m := asObject(args[0]); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%s expects an object, got %T", name, args[0])
}

func builtinNumber(args []any) (any, error) {
	if len(args) == 0 {
		return float64(0), nil
	}
	return toNumber(args[0]), nil
}

func builtinString(args []any) (any, error) {
	if len(args) == 0 {
		return "", nil
	}
	return toString(args[0]), nil
}

func builtinBoolean(args []any) (any, error) {
	if len(args) == 0 {
		return false, nil
	}
	return Truthy(args[0]), nil
}

func builtinParseInt(args []any) (any, error) {
	if len(args) == 0 {
		return math.NaN(), nil
	}
	s := strings.TrimSpace(toString(args[0]))
	base := 10
	if len(args) > 1 {
		if b := int(toNumber(args[1])); b >= 2 && b <= 36 {
			base = b
		}
	}

	sign := ""
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < base {
		end++
	}
	if end == 0 {
		return math.NaN(), nil
	}
	v, err := strconv.ParseInt(sign+s[:end], base, 64)
	if err != nil {
		return math.NaN(), nil
	}
	return float64(v), nil
}

func builtinParseFloat(args []any) (any, error) {
	if len(args) == 0 {
		return math.NaN(), nil
	}
	s := strings.TrimSpace(toString(args[0]))
	end := len(s)
	for end > 0 {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v, nil
		}
		end--
	}
	return math.NaN(), nil
}

func builtinIsNaN(args []any) (any, error) {
	if len(args) == 0 {
		return true, nil
	}
	return math.IsNaN(toNumber(args[0])), nil
}

func builtinIsFinite(args []any) (any, error) {
	if len(args) == 0 {
		return false, nil
	}
	n := toNumber(args[0])
	return !math.IsNaN(n) && !math.IsInf(n, 0), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 99
	}
}
