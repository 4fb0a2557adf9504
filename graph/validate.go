package graph

import "github.com/teranos/dialogue/errors"

// Validate checks, in order, that every edge endpoint exists, that the start
// node exists, and that every node is reachable from the start node. It
// returns the first violation as a *ValidationError.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for i := range g.edges {
		e := g.edges[i]
		if _, ok := g.index[e.From]; !ok {
			return &ValidationError{Err: ErrEdgeEndpointNotFound, Node: e.From, Edge: &e}
		}
		if _, ok := g.index[e.To]; !ok {
			return &ValidationError{Err: ErrEdgeEndpointNotFound, Node: e.To, Edge: &e}
		}
	}

	if _, ok := g.index[g.start]; !ok {
		return errors.WithHint(
			&ValidationError{Err: ErrStartNodeMissing, Node: g.start},
			"add the start node or point the graph at an existing node",
		)
	}

	visited := g.reachableLocked(g.start)
	for _, n := range g.nodes {
		if !visited[n.ID()] {
			return errors.WithHint(
				&ValidationError{Err: ErrUnreachableNode, Node: n.ID()},
				"connect the node to a path from the start node or remove it",
			)
		}
	}
	return nil
}

// Reachable returns the set of node ids reachable from id, including id
// itself when present.
func (g *Graph) Reachable(id NodeID) map[NodeID]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reachableLocked(id)
}

// reachableLocked is a breadth-first search over outgoing edges. Cycles are
// cut by the visited set.
func (g *Graph) reachableLocked(from NodeID) map[NodeID]bool {
	visited := make(map[NodeID]bool, len(g.nodes))
	if _, ok := g.index[from]; !ok {
		return visited
	}

	adj := make(map[NodeID][]NodeID, len(g.nodes))
	for _, e := range g.edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	queue := []NodeID{from}
	visited[from] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}

// CheckTextBranching reports the first text node with more than one outgoing
// edge. A runner only ever follows the first edge of a text node, so the
// others are dead. Not part of Validate.
func (g *Graph) CheckTextBranching() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[NodeID]int, len(g.nodes))
	for _, e := range g.edges {
		out[e.From]++
	}
	for _, n := range g.nodes {
		if n.Kind() == KindText && out[n.ID()] > 1 {
			return errors.WithDetailf(
				&ValidationError{Err: ErrTextBranches, Node: n.ID()},
				"%d outgoing edges", out[n.ID()],
			)
		}
	}
	return nil
}
