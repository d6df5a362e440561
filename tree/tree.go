/*
Package tree holds binary classification trees: an immutable arena of nodes
addressed by NodeID, the stores used to keep the nodes of a tree while it is
growing and the operations to predict with a grown tree.
*/
package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
)

// Tree represents a classification tree. It is composed of
// the arena of its nodes, the handle of the root node, the
// number of classes it predicts and the features of the rows
// it classifies. A Tree is never modified once built, so it is
// safe for concurrent use.
type Tree struct {
	nodes      []Node
	root       NodeID
	classes    int
	features   []feature.Feature
	classNames []string
}

/*
New takes the nodes of a tree, the handle of its root, the number of classes,
the features of the rows and optionally the names of the classes, and returns
the tree they form.

It returns an error wrapping ErrInvalidTree if the nodes do not form a binary
tree rooted at root, with children exactly on the nodes that have a split,
labels below the number of classes and splits matching the kind of the
column they test.
*/
func New(nodes []Node, root NodeID, classes int, features []feature.Feature, classNames []string) (*Tree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no nodes: %w", ErrInvalidTree)
	}
	if root < 0 || int(root) >= len(nodes) {
		return nil, fmt.Errorf("root %d out of range: %w", root, ErrInvalidTree)
	}
	parents := make([]int, len(nodes))
	for i, n := range nodes {
		if n.Label < NoLabel || n.Label >= classes {
			return nil, fmt.Errorf("node %d has label %d for %d classes: %w", i, n.Label, classes, ErrInvalidTree)
		}
		if n.Split == nil {
			if n.Left != NoNode || n.Right != NoNode {
				return nil, fmt.Errorf("leaf %d has children: %w", i, ErrInvalidTree)
			}
			continue
		}
		if n.Left == NoNode || n.Right == NoNode {
			return nil, fmt.Errorf("decision node %d lacks a child: %w", i, ErrInvalidTree)
		}
		if err := checkSplit(*n.Split, features); err != nil {
			return nil, fmt.Errorf("decision node %d: %v: %w", i, err, ErrInvalidTree)
		}
		for _, c := range []NodeID{n.Left, n.Right} {
			if c < 0 || int(c) >= len(nodes) {
				return nil, fmt.Errorf("node %d has child %d out of range: %w", i, c, ErrInvalidTree)
			}
			parents[c]++
		}
	}
	for i, p := range parents {
		if NodeID(i) == root && p != 0 {
			return nil, fmt.Errorf("root %d has a parent: %w", i, ErrInvalidTree)
		}
		if NodeID(i) != root && p != 1 {
			return nil, fmt.Errorf("node %d has %d parents: %w", i, p, ErrInvalidTree)
		}
	}
	// with one parent per non-root node, reaching every node from the
	// root rules out cycles
	reached := 0
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		if n := nodes[id]; n.Split != nil {
			stack = append(stack, n.Right, n.Left)
		}
		if reached > len(nodes) {
			break
		}
	}
	if reached != len(nodes) {
		return nil, fmt.Errorf("%d of %d nodes reachable from root: %w", reached, len(nodes), ErrInvalidTree)
	}
	return &Tree{nodes, root, classes, features, classNames}, nil
}

func checkSplit(s feature.Split, features []feature.Feature) error {
	if s.Column < 0 {
		return fmt.Errorf("split on negative column %d", s.Column)
	}
	k := s.Threshold.Kind()
	if k != feature.Numeric && k != feature.Categorical {
		return fmt.Errorf("split on column %d has a threshold with no kind", s.Column)
	}
	if features == nil {
		return nil
	}
	if s.Column >= len(features) {
		return fmt.Errorf("split on column %d of %d", s.Column, len(features))
	}
	if fk := features[s.Column].Kind(); fk != k {
		return fmt.Errorf("%s split on %s column %s", k, fk, features[s.Column].Name())
	}
	return nil
}

// Root returns the handle of the root node
func (t *Tree) Root() NodeID {
	return t.root
}

// Node returns the node with the given handle. It panics if the
// handle does not belong to the tree.
func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

// Len returns the number of nodes in the tree
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Classes returns the number of classes the tree was grown for
func (t *Tree) Classes() int {
	return t.classes
}

// Features returns the features of the rows the tree classifies
func (t *Tree) Features() []feature.Feature {
	return t.features
}

// ClassNames returns the names of the classes, which may be nil
func (t *Tree) ClassNames() []string {
	return t.classNames
}

// ClassName returns the name of the given class, or its number if the
// tree has no name for it.
func (t *Tree) ClassName(label int) string {
	if label >= 0 && label < len(t.classNames) {
		return t.classNames[label]
	}
	return fmt.Sprintf("%d", label)
}

// Height returns the number of edges on the longest path from the root
// to a leaf.
func (t *Tree) Height() int {
	type entry struct {
		id    NodeID
		depth int
	}
	height := 0
	stack := []entry{{t.root, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.depth > height {
			height = e.depth
		}
		if n := t.nodes[e.id]; n.Split != nil {
			stack = append(stack, entry{n.Left, e.depth + 1}, entry{n.Right, e.depth + 1})
		}
	}
	return height
}

// Predict takes a row and returns the label of the leaf it reaches, or an
// error wrapping ErrRowShape if the row cannot be classified by the tree.
func (t *Tree) Predict(row []feature.Value) (int, error) {
	path, err := t.PredictPath(row)
	if err != nil {
		return NoLabel, err
	}
	predictionsTotal.Inc()
	return t.nodes[path[len(path)-1]].Label, nil
}

/*
PredictPath takes a row and returns the handles of the nodes it goes
through from the root to a leaf. On every decision node, the row continues
on the right child if the node split's GoesRight method holds for it, on the
left child otherwise.
*/
func (t *Tree) PredictPath(row []feature.Value) ([]NodeID, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot predict samples")
	}
	if t.features != nil && len(row) != len(t.features) {
		return nil, fmt.Errorf("row with %d values for %d features: %w", len(row), len(t.features), ErrRowShape)
	}
	id := t.root
	path := []NodeID{id}
	for {
		n := &t.nodes[id]
		if n.Right == NoNode {
			return path, nil
		}
		if err := n.Split.Check(row); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrRowShape)
		}
		if n.Split.GoesRight(row) {
			id = n.Right
		} else {
			id = n.Left
		}
		path = append(path, id)
	}
}

/*
PredictMany takes a matrix and returns the prediction for each of its rows,
in the same order, or an error if any of them cannot be classified.
*/
func (t *Tree) PredictMany(x *dataset.Matrix) ([]int, error) {
	labels := make([]int, x.Len())
	for i, row := range x.Rows() {
		l, err := t.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("predicting row %d: %w", i, err)
		}
		labels[i] = l
	}
	return labels, nil
}

/*
Sample represents a row whose values are obtained on demand, such as rows
read interactively.
*/
type Sample interface {
	ValueFor(ctx context.Context, column int) (feature.Value, error)
}

/*
PredictSample walks the tree like PredictPath, asking the sample only for
the values of the columns tested on its way. It returns the predicted label
and the path followed, or an error if a value cannot be obtained or has the
wrong kind.
*/
func (t *Tree) PredictSample(ctx context.Context, s Sample) (int, []NodeID, error) {
	id := t.root
	path := []NodeID{id}
	row := make([]feature.Value, len(t.features))
	for {
		n := &t.nodes[id]
		if n.Right == NoNode {
			predictionsTotal.Inc()
			return n.Label, path, nil
		}
		c := n.Split.Column
		if c >= len(row) {
			return NoLabel, nil, fmt.Errorf("split on column %d of %d: %w", c, len(row), ErrRowShape)
		}
		v, err := s.ValueFor(ctx, c)
		if err != nil {
			return NoLabel, nil, fmt.Errorf("obtaining value for column %d: %w", c, err)
		}
		row[c] = v
		if err := n.Split.Check(row); err != nil {
			return NoLabel, nil, fmt.Errorf("%v: %w", err, ErrRowShape)
		}
		if n.Split.GoesRight(row) {
			id = n.Right
		} else {
			id = n.Left
		}
		path = append(path, id)
	}
}

// Traverse takes a context, bottomup boolean and an
// error-returning function that takes a context, a node handle
// and the node as parameters, and goes through the tree running
// the function with the context and every traversed node.
// Traverse will call the function with a parent node before
// calling it for its children if bottomup is false, and
// call it after its children if bottomup is true. Left
// children are visited before right children.
// If the given context times out or is cancelled, the context
// error is returned. If the call to the function returns an
// error, the traversing is aborted and the error is returned.
// Otherwise, when the traversing is over, nil is returned.
func (t *Tree) Traverse(ctx context.Context, bottomup bool, f func(context.Context, NodeID, Node) error) error {
	return t.traverse(ctx, t.root, bottomup, f)
}

func (t *Tree) traverse(ctx context.Context, id NodeID, bottomup bool, f func(context.Context, NodeID, Node) error) error {
	err := ctx.Err()
	if err != nil {
		return err
	}
	n := t.nodes[id]
	if !bottomup {
		err = f(ctx, id, n)
		if err != nil {
			return err
		}
	}
	if n.Split != nil {
		for _, c := range []NodeID{n.Left, n.Right} {
			err = t.traverse(ctx, c, bottomup, f)
			if err != nil {
				return err
			}
		}
	}
	if bottomup {
		err = f(ctx, id, n)
	}
	return err
}

func (t *Tree) String() string {
	return t.subtreeString(t.root, "")
}

func (t *Tree) subtreeString(id NodeID, criterion string) string {
	n := t.nodes[id]
	result := fmt.Sprintf("[%d]\n", id)
	if criterion != "" {
		result = fmt.Sprintf("%s{ %s }\n", result, criterion)
	}
	result = fmt.Sprintf("%s{ %s (samples: %d, gini: %.4f) }\n", result, t.ClassName(n.Label), n.Weight, n.Impurity)
	if n.Split == nil {
		return fmt.Sprintf("%s \n", result)
	}
	result = fmt.Sprintf("%s|\n", result)
	description := n.Split.Describe(t.features)
	children := []struct {
		id        NodeID
		criterion string
	}{
		{n.Left, fmt.Sprintf("not %s", description)},
		{n.Right, description},
	}
	for i, child := range children {
		for j, line := range strings.Split(t.subtreeString(child.id, child.criterion), "\n") {
			if len(line) > 0 {
				if j == 0 {
					result = fmt.Sprintf("%s|__%s\n", result, line)
				} else {
					if i == len(children)-1 {
						result = fmt.Sprintf("%s   %s\n", result, line)
					} else {
						result = fmt.Sprintf("%s|  %s\n", result, line)
					}
				}
			}
		}
	}
	return result
}
