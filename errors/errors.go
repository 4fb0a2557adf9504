// Package errors provides error handling for the dialogue runtime.
//
// This package re-exports github.com/cockroachdb/errors so every layer gets
// stack traces, wrapping, hints and details from a single import:
//
//	// Wrap a sentinel with context
//	return errors.Wrapf(graph.ErrNodeNotFound, "source node %d", from)
//
//	// Attach a hint for the author of the dialogue
//	return errors.WithHint(err, "connect the start node to every branch")
//
//	// Check errors
//	if errors.Is(err, graph.ErrNodeNotFound) {
//	    // handle missing node
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// Hints and details for dialogue authors
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinels shared by the graph, asset and runner layers.
// Package-specific sentinels wrap these so callers can match either level.
var (
	// ErrNotFound indicates the requested node, edge or asset does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the caller asked for something the current state forbids
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates an insert collided with an existing key
	ErrConflict = New("conflict")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest.
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsConflictError checks if an error is or wraps ErrConflict.
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// Mark returns a new sentinel whose message is msg and which matches base
// under Is. Used to derive package sentinels from the shared ones.
func Mark(base error, msg string) error {
	return crdb.Mark(New(msg), base)
}
