package graph

import (
	"fmt"

	"github.com/teranos/dialogue/errors"
)

// Mutation and lookup errors
var (
	ErrNodeNotFound   = errors.Mark(errors.ErrNotFound, "graph: node not found")
	ErrNoConnection   = errors.Mark(errors.ErrNotFound, "graph: no connection")
	ErrDuplicateNode  = errors.Mark(errors.ErrConflict, "graph: duplicate node id")
	ErrNilNode        = errors.Mark(errors.ErrInvalidRequest, "graph: nil node")
	ErrNodeIDMismatch = errors.Mark(errors.ErrInvalidRequest, "graph: replacement node has a different id")
	ErrWrongVariant   = errors.Mark(errors.ErrInvalidRequest, "graph: operation not supported by node variant")
)

// Validation errors
var (
	ErrEdgeEndpointNotFound = errors.New("graph: edge endpoint not found")
	ErrStartNodeMissing     = errors.New("graph: start node missing")
	ErrUnreachableNode      = errors.New("graph: node unreachable from start")
	ErrTextBranches         = errors.New("graph: text node has more than one outgoing edge")
)

// Internal consistency errors, reported only by ValidateMapping
var (
	ErrMappingInconsistent = errors.New("graph: id mapping points at a different node")
	ErrMissingMapping      = errors.New("graph: node has no id mapping")
	ErrStaleMapping        = errors.New("graph: id mapping points past the node store")
)

// ValidationError names the first structural problem Validate found.
// Edge is set only for edge endpoint failures.
type ValidationError struct {
	Err  error
	Node NodeID
	Edge *Edge
}

func (e *ValidationError) Error() string {
	if e.Edge != nil {
		return fmt.Sprintf("%v: edge %d -> %d references node %d", e.Err, e.Edge.From, e.Edge.To, e.Node)
	}
	return fmt.Sprintf("%v: node %d", e.Err, e.Node)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
