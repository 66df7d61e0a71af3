package expr

import (
	"errors"
	"fmt"
)

// SafeEvalError is returned for every evaluator failure: security
// violations, malformed tokens, and parse errors. It is never retried and
// is surfaced verbatim to the caller
type SafeEvalError struct {
	kind   error
	detail string
}

var (
	ErrSyntax            = errors.New("syntax error")
	ErrDangerousPattern  = errors.New("dangerous pattern detected")
	ErrBlockedIdentifier = errors.New("identifier not allowed")
	ErrBlockedProperty   = errors.New("property access not allowed")
	ErrCallNotAllowed    = errors.New("function call not allowed")
)

func newError(kind error, format string, args ...any) *SafeEvalError {
	return &SafeEvalError{
		kind:   kind,
		detail: fmt.Sprintf(format, args...),
	}
}

func (e *SafeEvalError) Error() string {
	if e.detail == "" {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.detail)
}

// Unwrap exposes the category sentinel so callers can match with errors.Is
func (e *SafeEvalError) Unwrap() error {
	return e.kind
}

// IsSafeEvalError reports whether err originated from the safe evaluator
func IsSafeEvalError(err error) bool {
	var se *SafeEvalError
	return errors.As(err, &se)
}
