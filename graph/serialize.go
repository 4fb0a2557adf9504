package graph

import (
	"encoding/json"

	"github.com/teranos/dialogue/errors"
)

// document is the interchange shape of a graph.
type document struct {
	Name      string         `json:"name,omitempty"`
	StartNode NodeID         `json:"start_node"`
	Nodes     []nodeDocument `json:"nodes"`
	Edges     []edgeDocument `json:"edges"`
}

type nodeDocument struct {
	Kind     Kind    `json:"kind"`
	ID       NodeID  `json:"id"`
	Text     *string `json:"text,omitempty"`
	Prompt   string  `json:"prompt,omitempty"`
	Speaker  string  `json:"speaker,omitempty"`
	Portrait string  `json:"portrait,omitempty"`
}

type edgeDocument struct {
	From  NodeID `json:"from"`
	To    NodeID `json:"to"`
	Label string `json:"label,omitempty"`
}

// MarshalJSON encodes nodes in store order and edges in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc := document{
		Name:      g.name,
		StartNode: g.start,
		Nodes:     make([]nodeDocument, 0, len(g.nodes)),
		Edges:     make([]edgeDocument, 0, len(g.edges)),
	}

	for _, n := range g.nodes {
		nd := nodeDocument{
			Kind:     n.Kind(),
			ID:       n.ID(),
			Speaker:  n.Speaker(),
			Portrait: n.Portrait(),
		}
		switch v := n.(type) {
		case *TextNode:
			text := v.Text()
			nd.Text = &text
		case *ChoiceNode:
			nd.Prompt = v.Prompt()
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, edgeDocument{From: e.From, To: e.To, Label: e.Data.Label})
	}

	return json.Marshal(doc)
}

// UnmarshalJSON replaces the graph's contents with the decoded document.
// Unknown node kinds, text nodes without text and edges naming absent nodes
// are rejected. Duplicate node ids follow AddNode semantics.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "decode dialogue graph")
	}

	g.mu.RLock()
	strict := g.strict
	g.mu.RUnlock()

	decoded := New(doc.StartNode, WithName(doc.Name))
	decoded.strict = strict

	for i, nd := range doc.Nodes {
		var n Node
		switch nd.Kind {
		case KindText:
			if nd.Text == nil {
				return errors.Newf("node %d (index %d): text node without text", nd.ID, i)
			}
			n = NewText(nd.ID, *nd.Text).WithSpeaker(nd.Speaker).WithPortrait(nd.Portrait)
		case KindChoice:
			n = NewChoice(nd.ID).WithPrompt(nd.Prompt).WithSpeaker(nd.Speaker).WithPortrait(nd.Portrait)
		default:
			return errors.Newf("node %d (index %d): unknown node kind %q", nd.ID, i, nd.Kind)
		}
		if err := decoded.AddNode(n); err != nil {
			return errors.Wrapf(err, "node index %d", i)
		}
	}
	for i, ed := range doc.Edges {
		if err := decoded.Connect(ed.From, ed.To, ConnectionData{Label: ed.Label}); err != nil {
			return errors.Wrapf(err, "edge index %d", i)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = decoded.name
	g.start = decoded.start
	g.nodes = decoded.nodes
	g.index = decoded.index
	g.edges = decoded.edges
	return nil
}

// Parse decodes a graph document.
func Parse(data []byte, opts ...Option) (*Graph, error) {
	g := New(0, opts...)
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}
