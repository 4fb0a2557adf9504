package server

import (
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/driver"
	"github.com/teranos/dialogue/graph"
)

// Inbound message types
const (
	TypeStart   = "start"
	TypeAdvance = "advance"
	TypeSelect  = "select"
	TypeStop    = "stop"
)

// Outbound message types
const (
	TypeWelcome    = "welcome"
	TypeStarted    = "started"
	TypeNode       = "node"
	TypeChoiceMade = "choice_made"
	TypeEnded      = "ended"
	TypeError      = "error"
)

// InboundMessage is a command sent by a websocket client.
//
//	{"type":"start","asset":"<handle>"}
//	{"type":"advance"}
//	{"type":"select","index":1}
//	{"type":"stop"}
type InboundMessage struct {
	Type  string `json:"type"`
	Asset string `json:"asset,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// OutboundMessage is a notification or error sent to a websocket client.
// Only the fields relevant to Type are set.
type OutboundMessage struct {
	Type      string        `json:"type"`
	Owner     driver.Owner  `json:"owner,omitempty"`
	Asset     asset.Handle  `json:"asset,omitempty"`
	StartNode *graph.NodeID `json:"start_node,omitempty"`
	Node      *NodeView     `json:"node,omitempty"`
	NodeID    *graph.NodeID `json:"node_id,omitempty"`
	Index     *int          `json:"index,omitempty"`
	Normal    *bool         `json:"normal,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NodeView is what a client needs to render a node
type NodeView struct {
	ID       graph.NodeID `json:"id"`
	Kind     graph.Kind   `json:"kind,omitempty"`
	Text     string       `json:"text,omitempty"`
	Prompt   string       `json:"prompt,omitempty"`
	Speaker  string       `json:"speaker,omitempty"`
	Portrait string       `json:"portrait,omitempty"`
	Options  []OptionView `json:"options,omitempty"`
}

// OptionView is one outgoing edge of a choice node, in choice order
type OptionView struct {
	Index  int          `json:"index"`
	Target graph.NodeID `json:"target"`
	Label  string       `json:"label"`
}

func errorMessage(msg string) OutboundMessage {
	return OutboundMessage{Type: TypeError, Error: msg}
}

// notificationMessage converts a driver notification for a client playing h
func notificationMessage(store asset.Store, h asset.Handle, n driver.Notification) (OutboundMessage, bool) {
	switch n := n.(type) {
	case driver.Started:
		return OutboundMessage{Type: TypeStarted, Asset: n.Asset, StartNode: &n.StartNode}, true
	case driver.NodeActivated:
		return OutboundMessage{Type: TypeNode, Node: nodeView(store, h, n.Node)}, true
	case driver.ChoiceMade:
		return OutboundMessage{Type: TypeChoiceMade, NodeID: &n.Node, Index: &n.Index}, true
	case driver.Ended:
		return OutboundMessage{Type: TypeEnded, Normal: &n.Normal}, true
	}
	return OutboundMessage{}, false
}

// nodeView looks id up in the asset. A missing asset or node yields a bare id.
func nodeView(store asset.Store, h asset.Handle, id graph.NodeID) *NodeView {
	view := &NodeView{ID: id}

	a, ok := store.Get(h)
	if !ok {
		return view
	}
	node, ok := a.Graph.Node(id)
	if !ok {
		return view
	}

	view.Kind = node.Kind()
	view.Speaker = node.Speaker()
	view.Portrait = node.Portrait()

	switch n := node.(type) {
	case *graph.TextNode:
		view.Text = n.Text()
	case *graph.ChoiceNode:
		view.Prompt = n.Prompt()
		for i, c := range a.Graph.ConnectedNodes(id) {
			label := c.Label
			if label == "" {
				if target, ok := a.Graph.Node(c.ID); ok {
					label = target.DisplayName()
				}
			}
			view.Options = append(view.Options, OptionView{Index: i, Target: c.ID, Label: label})
		}
	}
	return view
}
