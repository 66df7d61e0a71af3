// Package builder provides a fluent API for composing workflow execution
// requests in code.
//
// Builders are immutable: every With method returns a copy, so partial
// workflows and nodes can be reused as templates without aliasing surprises.
package builder
