package tree

import (
	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
)

// NodeID is the handle of a node in the arena of a Tree
type NodeID int

// NoNode is the child handle of leaves
const NoNode NodeID = -1

// NoLabel is the label of a tree grown from an empty dataset
const NoLabel = dataset.NoClass

/*
Node is a node of the tree
*/
type Node struct {
	// The majority class of the rows that reached the node
	// during growth.
	Label int
	// The test applied to rows on this node, nil for leaves.
	// Rows for which the split's GoesRight method returns true
	// continue on the Right node, the rest on the Left node.
	Split *feature.Split
	// Handles of the nodes directly under this node, NoNode
	// for leaves.
	Left  NodeID
	Right NodeID
	// The number of rows that reached the node during growth
	Weight int
	// The Gini impurity of those rows
	Impurity float64
}

// IsLeaf returns whether the node has no children
func (n Node) IsLeaf() bool {
	return n.Split == nil
}
