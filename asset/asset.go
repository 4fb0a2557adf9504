// Package asset wraps dialogue graphs as loadable assets and provides the
// stores runners look them up in.
package asset

import (
	"github.com/google/uuid"

	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/graph"
)

// ErrAssetNotFound is returned by store operations that address a missing handle.
var ErrAssetNotFound = errors.Mark(errors.ErrNotFound, "asset: not found")

// Handle is an opaque reference to an asset in a store.
type Handle string

// NewHandle returns a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

func (h Handle) String() string {
	return string(h)
}

// Asset is a compiled dialogue: one graph, read-only once published.
type Asset struct {
	Graph *graph.Graph
}

// New wraps g.
func New(g *graph.Graph) *Asset {
	return &Asset{Graph: g}
}

// Parse decodes an asset from its JSON document.
func Parse(data []byte, opts ...graph.Option) (*Asset, error) {
	g, err := graph.Parse(data, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "parse dialogue asset")
	}
	return New(g), nil
}

// Name returns the graph name.
func (a *Asset) Name() string {
	if a == nil || a.Graph == nil {
		return ""
	}
	return a.Graph.Name()
}

func (a *Asset) MarshalJSON() ([]byte, error) {
	if a.Graph == nil {
		return nil, errors.New("asset has no graph")
	}
	return a.Graph.MarshalJSON()
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	g := graph.New(0)
	if err := g.UnmarshalJSON(data); err != nil {
		return err
	}
	a.Graph = g
	return nil
}
