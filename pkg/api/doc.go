// Package api defines the core data types for the flow engine
//
// This package contains all the shared types used across the scheduler and
// its collaborators, including node and edge definitions, execution requests,
// node events, and execution reports
package api
