package expr

import (
	"regexp"
	"strings"
)

// Program is a compiled expression. Programs are immutable and safe to
// evaluate concurrently against different contexts
type Program struct {
	root node
	src  string
}

// dangerousPatterns is a fast textual pre-screen applied to raw source
// before tokenizing. The structural checks in the evaluator would reject
// these anyway; screening early is defense in depth
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bFunction\s*\(`),
	regexp.MustCompile(`constructor`),
	regexp.MustCompile(`__proto__`),
	regexp.MustCompile(`prototype`),
	regexp.MustCompile(`\bimport\s*\(`),
	regexp.MustCompile(`\brequire\s*\(`),
}

// Compile screens, tokenizes, and parses an expression into a reusable
// Program. All errors are *SafeEvalError
func Compile(src string) (*Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, newError(ErrSyntax, "empty expression")
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(src) {
			return nil, newError(ErrDangerousPattern, "%s", pattern)
		}
	}

	tokens, err := scan(src)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Program{root: root, src: src}, nil
}

// Source returns the original expression text
func (p *Program) Source() string {
	return p.src
}

// Evaluate walks the compiled tree against the supplied variable context.
// Security checks (blocklist, call allow-list) are applied at evaluation
// time, not just at parse time
func (p *Program) Evaluate(context map[string]any) (any, error) {
	e := &evaluator{context: context}
	return e.eval(p.root)
}

// Evaluate compiles and evaluates an expression against the given context
func Evaluate(src string, context map[string]any) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(context)
}

// EvaluateCondition evaluates an expression and coerces the result to a
// boolean using loose truthiness rules
func EvaluateCondition(src string, context map[string]any) (bool, error) {
	v, err := Evaluate(src, context)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}
