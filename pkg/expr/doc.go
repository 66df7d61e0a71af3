// Package expr implements a sandboxed expression language for condition and
// expression nodes
//
// Expressions are tokenized and parsed by a recursive descent parser into an
// immutable tree that a walking interpreter evaluates against a caller
// supplied context. The grammar has no assignment, function literals, or
// statement forms, so they are structurally unrepresentable. Security is
// enforced at evaluation time: a fixed blocklist rejects dangerous
// identifiers and property names, and function calls are permitted only when
// the callee's dotted path appears on a closed allow-list of pure built-ins.
// A textual pre-screen over the raw source provides defense in depth
package expr
