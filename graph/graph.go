// Package graph holds dialogue graphs: text and choice nodes joined by
// directed, optionally labeled edges, with a designated start node.
//
// Nodes are addressed only by NodeID. Internally they live in a dense slice
// with a NodeID -> position map; removal moves the last node into the freed
// slot and rewrites that node's map entry, so surviving ids always resolve
// to the same logical node.
//
// A graph may be invalid while it is being built. Validate checks it on
// demand. Once a graph is wrapped in an asset and handed to runners it is
// treated as read-only; the lock only makes concurrent readers safe.
package graph

import (
	"iter"
	"sync"

	"github.com/teranos/dialogue/errors"
)

// ConnectionData is the payload carried by an edge.
type ConnectionData struct {
	// Label doubles as the player-visible choice text on choice nodes.
	Label string
}

// Edge is a directed link between two nodes.
type Edge struct {
	From NodeID
	To   NodeID
	Data ConnectionData
}

// Connection is an outgoing edge seen from its source.
type Connection struct {
	Target NodeID
	Data   ConnectionData
}

// ConnectedNode is a Connection projected to target and label.
type ConnectedNode struct {
	ID    NodeID
	Label string
}

// Graph is a dialogue graph.
type Graph struct {
	mu sync.RWMutex

	name   string
	start  NodeID
	strict bool

	nodes []Node
	index map[NodeID]int
	edges []Edge
}

// Option configures a Graph at construction.
type Option func(*Graph)

// WithName sets the graph name.
func WithName(name string) Option {
	return func(g *Graph) { g.name = name }
}

// WithStrictInsert makes AddNode reject ids that are already present
// instead of replacing the stored node.
func WithStrictInsert() Option {
	return func(g *Graph) { g.strict = true }
}

// New returns an empty graph whose entry point will be start.
func New(start NodeID, opts ...Option) *Graph {
	g := &Graph{
		start: start,
		index: make(map[NodeID]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode inserts n, or replaces the node already stored under n's id.
// A replaced node keeps its slot and its edges.
func (g *Graph) AddNode(n Node) error {
	if n == nil {
		return ErrNilNode
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := n.ID()
	if pos, ok := g.index[id]; ok {
		if g.strict {
			return errors.Wrapf(ErrDuplicateNode, "node %d", id)
		}
		g.nodes[pos] = n.Clone()
		return nil
	}

	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, n.Clone())
	return nil
}

// Node returns a copy of the node stored under id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pos, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[pos].Clone(), true
}

// MutateNode runs fn against the stored node under the write lock.
// The node must not be retained after fn returns.
func (g *Graph) MutateNode(id NodeID, fn func(Node) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.index[id]
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "node %d", id)
	}
	return fn(g.nodes[pos])
}

// UpdateNode replaces the node stored under id in place. The replacement may
// be a different variant; edges are untouched.
func (g *Graph) UpdateNode(id NodeID, n Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.ID() != id {
		return errors.Wrapf(ErrNodeIDMismatch, "update node %d with node %d", id, n.ID())
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.index[id]
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "node %d", id)
	}
	g.nodes[pos] = n.Clone()
	return nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.index[id]
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "node %d", id)
	}

	last := len(g.nodes) - 1
	if pos != last {
		moved := g.nodes[last]
		g.nodes[pos] = moved
		g.index[moved.ID()] = pos
	}
	g.nodes[last] = nil
	g.nodes = g.nodes[:last]
	delete(g.index, id)

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	clear(g.edges[len(kept):])
	g.edges = kept
	return nil
}

// Connect appends an edge from -> to. Parallel edges and self-loops are allowed.
func (g *Graph) Connect(from, to NodeID, data ConnectionData) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.index[from]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "source node %d", from)
	}
	if _, ok := g.index[to]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "target node %d", to)
	}

	g.edges = append(g.edges, Edge{From: from, To: to, Data: data})
	return nil
}

// Disconnect removes every edge from -> to.
func (g *Graph) Disconnect(from, to NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	kept := g.edges[:0]
	removed := 0
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(g.edges[len(kept):])
	g.edges = kept

	if removed == 0 {
		return errors.Wrapf(ErrNoConnection, "%d -> %d", from, to)
	}
	return nil
}

// Connections returns the outgoing edges of from in insertion order.
// For a choice node, position i is choice i.
func (g *Graph) Connections(from NodeID) []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connectionsLocked(from)
}

func (g *Graph) connectionsLocked(from NodeID) []Connection {
	var out []Connection
	for _, e := range g.edges {
		if e.From == from {
			out = append(out, Connection{Target: e.To, Data: e.Data})
		}
	}
	return out
}

// ConnectedNodes returns target ids and labels of the outgoing edges of from, in order.
func (g *Graph) ConnectedNodes(from NodeID) []ConnectedNode {
	conns := g.Connections(from)
	out := make([]ConnectedNode, len(conns))
	for i, c := range conns {
		out[i] = ConnectedNode{ID: c.Target, Label: c.Data.Label}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges, counting parallel edges separately.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Contains reports whether id is present.
func (g *Graph) Contains(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[id]
	return ok
}

// NodeIDs returns every node id. The order is unspecified.
func (g *Graph) NodeIDs() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]NodeID, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID()
	}
	return ids
}

// Nodes returns copies of every node. The order is unspecified.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Clone()
	}
	return out
}

// All iterates over copies of every node.
func (g *Graph) All() iter.Seq[Node] {
	nodes := g.Nodes()
	return func(yield func(Node) bool) {
		for _, n := range nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.edges...)
}

// StartNode returns the id of the entry point.
func (g *Graph) StartNode() NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.start
}

// SetStartNode moves the entry point. The id need not exist yet.
func (g *Graph) SetStartNode(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.start = id
}

// Start returns a copy of the start node.
func (g *Graph) Start() (Node, bool) {
	return g.Node(g.StartNode())
}

func (g *Graph) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

func (g *Graph) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = name
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := &Graph{
		name:   g.name,
		start:  g.start,
		strict: g.strict,
		nodes:  make([]Node, len(g.nodes)),
		index:  make(map[NodeID]int, len(g.index)),
		edges:  append([]Edge(nil), g.edges...),
	}
	for i, n := range g.nodes {
		c.nodes[i] = n.Clone()
	}
	for id, pos := range g.index {
		c.index[id] = pos
	}
	return c
}
