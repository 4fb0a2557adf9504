package driver

import (
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/graph"
)

// Owner identifies the party a conversation belongs to, typically a game
// entity. The driver keeps at most one runner per owner.
type Owner string

// Command is a request from the host. The implementations are Start, Stop,
// Advance, Select and Release.
type Command interface {
	OwnerID() Owner
	// CommandName is a stable lower-case name used in logs and metrics.
	CommandName() string
}

// Start begins (or restarts) the conversation in Asset for Owner.
type Start struct {
	Owner Owner
	Asset asset.Handle
}

// Stop ends Owner's conversation.
type Stop struct {
	Owner Owner
}

// Advance confirms the current node of Owner's conversation.
type Advance struct {
	Owner Owner
}

// Select picks choice Index on Owner's current choice node.
type Select struct {
	Owner Owner
	Index int
}

// Release ends Owner's conversation if one is running and discards its
// runner. Hosts send it when an owner goes away for good.
type Release struct {
	Owner Owner
}

func (c Start) OwnerID() Owner   { return c.Owner }
func (c Stop) OwnerID() Owner    { return c.Owner }
func (c Advance) OwnerID() Owner { return c.Owner }
func (c Select) OwnerID() Owner  { return c.Owner }
func (c Release) OwnerID() Owner { return c.Owner }

func (Start) CommandName() string   { return "start" }
func (Stop) CommandName() string    { return "stop" }
func (Advance) CommandName() string { return "advance" }
func (Select) CommandName() string  { return "select" }
func (Release) CommandName() string { return "release" }

// Notification reports a change to the host. The implementations are
// Started, NodeActivated, ChoiceMade and Ended.
type Notification interface {
	OwnerID() Owner
}

// Started is emitted when a conversation on Asset starts at StartNode.
type Started struct {
	Owner     Owner
	Asset     asset.Handle
	StartNode graph.NodeID
}

// NodeActivated is emitted when a conversation moves onto Node.
type NodeActivated struct {
	Owner Owner
	Node  graph.NodeID
}

// ChoiceMade is emitted when choice Index is selected on Node.
type ChoiceMade struct {
	Owner Owner
	Node  graph.NodeID
	Index int
}

// Ended is emitted when a conversation ends. Normal is true when it ran to
// completion and false when it was stopped.
type Ended struct {
	Owner  Owner
	Normal bool
}

func (n Started) OwnerID() Owner       { return n.Owner }
func (n NodeActivated) OwnerID() Owner { return n.Owner }
func (n ChoiceMade) OwnerID() Owner    { return n.Owner }
func (n Ended) OwnerID() Owner         { return n.Owner }
