package graph

import "github.com/teranos/dialogue/errors"

// NodeID is the stable key of a node within one graph. It says nothing about
// where the node is stored.
type NodeID uint32

// Kind tags a node variant.
type Kind string

const (
	KindText   Kind = "text"
	KindChoice Kind = "choice"
)

// Node is one beat of dialogue. The set of implementations is closed:
// *TextNode and *ChoiceNode. Code that needs variant-specific behaviour
// switches on the concrete type.
type Node interface {
	ID() NodeID
	Kind() Kind
	Speaker() string
	Portrait() string
	SetSpeaker(speaker string)
	SetPortrait(portrait string)
	// SetText returns ErrWrongVariant on a choice node.
	SetText(text string) error
	// SetPrompt returns ErrWrongVariant on a text node.
	SetPrompt(prompt string) error
	// DisplayName is a one-line summary for lists and logs.
	DisplayName() string
	Clone() Node

	sealed()
}

// TextNode carries narrative content.
type TextNode struct {
	id       NodeID
	text     string
	speaker  string
	portrait string
}

// NewText creates a text node.
func NewText(id NodeID, text string) *TextNode {
	return &TextNode{id: id, text: text}
}

// WithSpeaker sets the speaker and returns the node for chaining.
func (n *TextNode) WithSpeaker(speaker string) *TextNode {
	n.speaker = speaker
	return n
}

// WithPortrait sets the portrait identifier and returns the node for chaining.
func (n *TextNode) WithPortrait(portrait string) *TextNode {
	n.portrait = portrait
	return n
}

func (n *TextNode) ID() NodeID       { return n.id }
func (n *TextNode) Kind() Kind       { return KindText }
func (n *TextNode) Text() string     { return n.text }
func (n *TextNode) Speaker() string  { return n.speaker }
func (n *TextNode) Portrait() string { return n.portrait }

func (n *TextNode) SetSpeaker(speaker string)   { n.speaker = speaker }
func (n *TextNode) SetPortrait(portrait string) { n.portrait = portrait }

func (n *TextNode) SetText(text string) error {
	n.text = text
	return nil
}

func (n *TextNode) SetPrompt(string) error {
	return errors.Wrapf(ErrWrongVariant, "set prompt on text node %d", n.id)
}

func (n *TextNode) DisplayName() string {
	if n.speaker == "" {
		return n.text
	}
	return n.speaker + ": " + n.text
}

func (n *TextNode) Clone() Node {
	c := *n
	return &c
}

func (*TextNode) sealed() {}

// ChoiceNode branches the conversation. Its outgoing edges, in order, are the
// choices offered to the player.
type ChoiceNode struct {
	id       NodeID
	prompt   string
	speaker  string
	portrait string
}

// NewChoice creates a choice node with no prompt.
func NewChoice(id NodeID) *ChoiceNode {
	return &ChoiceNode{id: id}
}

func (n *ChoiceNode) WithPrompt(prompt string) *ChoiceNode {
	n.prompt = prompt
	return n
}

func (n *ChoiceNode) WithSpeaker(speaker string) *ChoiceNode {
	n.speaker = speaker
	return n
}

func (n *ChoiceNode) WithPortrait(portrait string) *ChoiceNode {
	n.portrait = portrait
	return n
}

func (n *ChoiceNode) ID() NodeID       { return n.id }
func (n *ChoiceNode) Kind() Kind       { return KindChoice }
func (n *ChoiceNode) Prompt() string   { return n.prompt }
func (n *ChoiceNode) Speaker() string  { return n.speaker }
func (n *ChoiceNode) Portrait() string { return n.portrait }

func (n *ChoiceNode) SetSpeaker(speaker string)   { n.speaker = speaker }
func (n *ChoiceNode) SetPortrait(portrait string) { n.portrait = portrait }

func (n *ChoiceNode) SetText(string) error {
	return errors.Wrapf(ErrWrongVariant, "set text on choice node %d", n.id)
}

func (n *ChoiceNode) SetPrompt(prompt string) error {
	n.prompt = prompt
	return nil
}

func (n *ChoiceNode) DisplayName() string {
	switch {
	case n.prompt == "":
		return "Choice"
	case n.speaker == "":
		return n.prompt + " [Choice]"
	default:
		return n.speaker + ": " + n.prompt + " [Choice]"
	}
}

func (n *ChoiceNode) Clone() Node {
	c := *n
	return &c
}

func (*ChoiceNode) sealed() {}
