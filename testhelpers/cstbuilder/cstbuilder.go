// Package cstbuilder assembles workerproto.CST values by hand for visitor
// tests, standing in for a worker's real tree-sitter output so visitor
// behavior can be tested without spawning a parser process.
package cstbuilder

import "github.com/standardbeagle/bmcp/internal/workerproto"

// Builder accumulates CSTNode entries in the same pre-order, reserve-then-
// fill arena layout cmd/bmcp-worker's appendNode produces: a parent's id is
// always lower than any of its children's ids, and the tree root is always
// node 0.
type Builder struct {
	nodes []workerproto.CSTNode
}

func New() *Builder { return &Builder{} }

// Node reserves an id for a node spanning [startByte, endByte) in the
// source the visitor under test will also receive, then calls children to
// build its subtree (each call returning the child's id via a nested Node
// call), and finally fills in the reserved slot.
func (b *Builder) Node(nodeType string, startByte, endByte uint32, line int, children func() []workerproto.NodeID) workerproto.NodeID {
	id := workerproto.NodeID(len(b.nodes))
	b.nodes = append(b.nodes, workerproto.CSTNode{})

	var kids []workerproto.NodeID
	if children != nil {
		kids = children()
	}

	b.nodes[id] = workerproto.CSTNode{
		Type:      nodeType,
		Named:     true,
		StartByte: startByte,
		EndByte:   endByte,
		StartLine: line,
		EndLine:   line,
		Children:  kids,
	}
	return id
}

// Leaf is a Node with no children.
func (b *Builder) Leaf(nodeType string, startByte, endByte uint32, line int) workerproto.NodeID {
	return b.Node(nodeType, startByte, endByte, line, nil)
}

func (b *Builder) Build() *workerproto.CST {
	return &workerproto.CST{Nodes: b.nodes}
}
