package graph

import "github.com/teranos/dialogue/errors"

// RebuildMapping recomputes the id -> position map from the node store.
// It is idempotent and ignores whatever the map held before.
func (g *Graph) RebuildMapping() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.index = make(map[NodeID]int, len(g.nodes))
	for pos, n := range g.nodes {
		g.index[n.ID()] = pos
	}
}

// ValidateMapping is a debug pass over the id -> position map. It is not run
// on any mutation path.
func (g *Graph) ValidateMapping() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, pos := range g.index {
		if pos < 0 || pos >= len(g.nodes) {
			return errors.Wrapf(ErrStaleMapping, "node %d -> position %d of %d", id, pos, len(g.nodes))
		}
		if got := g.nodes[pos].ID(); got != id {
			return errors.Wrapf(ErrMappingInconsistent, "node %d -> position %d holding node %d", id, pos, got)
		}
	}
	for pos, n := range g.nodes {
		if _, ok := g.index[n.ID()]; !ok {
			return errors.Wrapf(ErrMissingMapping, "node %d at position %d", n.ID(), pos)
		}
	}
	return nil
}
