// Package dtree implements the decoder-tree node hierarchy: tagged
// variants for empty, rule, sequence, if/else, switch and
// child-reference nodes, structural equality, and a pre-order visitor.
package dtree

import (
	"github.com/9uanhuo/decodetree/internal/bitfield"
	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/spec"
)

// Kind tags the variant a Node holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindRule
	KindSequence
	KindIfElse
	KindSwitch
	KindChildReference
)

// Node is a decoder-tree node. Only the fields relevant to Kind are
// populated; the zero value of the others is ignored.
type Node struct {
	Kind Kind

	// KindRule
	Rule *spec.Rule

	// KindSequence
	Children []*Node

	// KindIfElse
	IfCond condition.Condition
	Then   *Node
	Else   *Node

	// KindSwitch
	Expr  bitfield.Switchable
	Cases []*Node

	// KindChildReference
	RefIndex int
}

// Empty returns a newly allocated Empty node.
func Empty() *Node { return &Node{Kind: KindEmpty} }

// NewRule wraps a rule reference.
func NewRule(r *spec.Rule) *Node { return &Node{Kind: KindRule, Rule: r} }

// NewSequence builds an ordered sequence node.
func NewSequence(children ...*Node) *Node {
	return &Node{Kind: KindSequence, Children: children}
}

// NewIfElse builds an if/else node.
func NewIfElse(cond condition.Condition, then, els *Node) *Node {
	return &Node{Kind: KindIfElse, IfCond: cond, Then: then, Else: els}
}

// NewSwitch builds a switch node over expr, with 2^expr.NumBits() case
// slots, all initially Empty.
func NewSwitch(expr bitfield.Switchable) *Node {
	cases := make([]*Node, expr.NumValues())
	for i := range cases {
		cases[i] = Empty()
	}
	return &Node{Kind: KindSwitch, Expr: expr, Cases: cases}
}

// NewChildReference builds a fallthrough marker pointing at case
// caseIndex of the enclosing switch.
func NewChildReference(caseIndex int) *Node {
	return &Node{Kind: KindChildReference, RefIndex: caseIndex}
}

// Equal reports structural equality: same tagged variant, recursively
// equal children. ChildReference(i) equals ChildReference(j) iff
// i == j.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindEmpty:
		return true
	case KindRule:
		return n.Rule == o.Rule
	case KindSequence:
		if len(n.Children) != len(o.Children) {
			return false
		}
		for i := range n.Children {
			if !n.Children[i].Equal(o.Children[i]) {
				return false
			}
		}
		return true
	case KindIfElse:
		return n.IfCond.Equal(o.IfCond) && n.Then.Equal(o.Then) && n.Else.Equal(o.Else)
	case KindSwitch:
		if !n.Expr.Equal(o.Expr) || len(n.Cases) != len(o.Cases) {
			return false
		}
		for i := range n.Cases {
			if !n.Cases[i].Equal(o.Cases[i]) {
				return false
			}
		}
		return true
	case KindChildReference:
		return n.RefIndex == o.RefIndex
	}
	return false
}

// Visitor is called once per node, pre-order, by Touch.
type Visitor func(n *Node)

// Touch walks the tree pre-order, calling visit on every node
// including Empty and ChildReference leaves.
func Touch(n *Node, visit Visitor) {
	if n == nil {
		return
	}
	visit(n)
	switch n.Kind {
	case KindSequence:
		for _, c := range n.Children {
			Touch(c, visit)
		}
	case KindIfElse:
		Touch(n.Then, visit)
		Touch(n.Else, visit)
	case KindSwitch:
		for _, c := range n.Cases {
			Touch(c, visit)
		}
	}
}
