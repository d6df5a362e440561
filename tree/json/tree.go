/*
Package json serializes trees and node growth records as JSON.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pbanos/cart/feature"
	featurejson "github.com/pbanos/cart/feature/json"
	"github.com/pbanos/cart/tree"
)

type jsonTree struct {
	Classes    int           `json:"classes"`
	ClassNames []string      `json:"classNames,omitempty"`
	Features   []jsonFeature `json:"features"`
	Root       *node         `json:"root"`
}

type jsonFeature struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Values []string `json:"values,omitempty"`
}

type node struct {
	Label    int                `json:"label"`
	Weight   int                `json:"w"`
	Impurity float64            `json:"g"`
	Split    *featurejson.Split `json:"split,omitempty"`
	Left     *node              `json:"left,omitempty"`
	Right    *node              `json:"right,omitempty"`
}

/*
WriteJSONTree takes a context.Context, a pointer to a tree.Tree and an
io.Writer and serializes the given tree as JSON onto the io.Writer.
A tree is serialized as a JSON object with the following fields:
  - "classes": the number of classes the tree predicts
  - "classNames": an optional array with the names of those classes
  - "features": an array describing the columns of the rows the tree
    classifies, each an object with a "name", a "kind" ("numeric" or
    "categorical") and the categorical "values" if any
  - "root": the root node. Nodes are objects with their "label", the number
    of rows "w" and Gini impurity "g" at growth time and, for decision nodes,
    their "split" (see feature/json.Split) and their "left" and "right"
    subtrees.

An error is returned if the tree cannot be traversed, serialized or written
onto the io.Writer.
*/
func WriteJSONTree(ctx context.Context, t *tree.Tree, w io.Writer) error {
	jt := &jsonTree{
		Classes:    t.Classes(),
		ClassNames: t.ClassNames(),
	}
	for _, f := range t.Features() {
		jf := jsonFeature{Name: f.Name(), Kind: f.Kind().String()}
		if cf, ok := f.(*feature.CategoricalFeature); ok {
			jf.Values = cf.AvailableValues()
		}
		jt.Features = append(jt.Features, jf)
	}
	nodes := make(map[tree.NodeID]*node, t.Len())
	err := t.Traverse(ctx, true, func(ctx context.Context, id tree.NodeID, n tree.Node) error {
		jn := &node{Label: n.Label, Weight: n.Weight, Impurity: n.Impurity}
		if n.Split != nil {
			s, err := featurejson.FromSplit(*n.Split)
			if err != nil {
				return err
			}
			jn.Split = &s
			jn.Left = nodes[n.Left]
			jn.Right = nodes[n.Right]
		}
		nodes[id] = jn
		return nil
	})
	if err != nil {
		return err
	}
	jt.Root = nodes[t.Root()]
	return json.NewEncoder(w).Encode(jt)
}

/*
ReadJSONTree takes a context.Context and an io.Reader and returns the tree
serialized as JSON on it by WriteJSONTree. An error is returned if the JSON
cannot be read from the io.Reader or does not describe a valid tree.
*/
func ReadJSONTree(ctx context.Context, r io.Reader) (*tree.Tree, error) {
	jt := &jsonTree{}
	err := json.NewDecoder(r).Decode(jt)
	if err != nil {
		return nil, err
	}
	if jt.Root == nil {
		return nil, fmt.Errorf("no root node available")
	}
	// trees grown on no rows have no features and take rows of any width
	var features []feature.Feature
	for _, jf := range jt.Features {
		switch jf.Kind {
		case feature.Numeric.String():
			features = append(features, feature.NewNumericFeature(jf.Name))
		case feature.Categorical.String():
			features = append(features, feature.NewCategoricalFeature(jf.Name, jf.Values))
		default:
			return nil, fmt.Errorf("feature %s has unknown kind %q", jf.Name, jf.Kind)
		}
	}
	var nodes []tree.Node
	_, err = decodeNode(ctx, jt.Root, features, &nodes)
	if err != nil {
		return nil, err
	}
	return tree.New(nodes, 0, jt.Classes, features, jt.ClassNames)
}

func decodeNode(ctx context.Context, jn *node, features []feature.Feature, nodes *[]tree.Node) (tree.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return tree.NoNode, err
	}
	id := tree.NodeID(len(*nodes))
	*nodes = append(*nodes, tree.Node{
		Label:    jn.Label,
		Left:     tree.NoNode,
		Right:    tree.NoNode,
		Weight:   jn.Weight,
		Impurity: jn.Impurity,
	})
	if jn.Split == nil {
		if jn.Left != nil || jn.Right != nil {
			return tree.NoNode, fmt.Errorf("node %d has subtrees but no split: %w", id, tree.ErrInvalidTree)
		}
		return id, nil
	}
	if jn.Left == nil || jn.Right == nil {
		return tree.NoNode, fmt.Errorf("node %d has a split but lacks a subtree: %w", id, tree.ErrInvalidTree)
	}
	s, err := jn.Split.ToSplit(features)
	if err != nil {
		return tree.NoNode, fmt.Errorf("decoding node %d: %w", id, err)
	}
	left, err := decodeNode(ctx, jn.Left, features, nodes)
	if err != nil {
		return tree.NoNode, err
	}
	right, err := decodeNode(ctx, jn.Right, features, nodes)
	if err != nil {
		return tree.NoNode, err
	}
	(*nodes)[id].Split = &s
	(*nodes)[id].Left = left
	(*nodes)[id].Right = right
	return id, nil
}

/*
ReadJSONTreeFromFile takes a file path, opens it and returns the tree read
from it with ReadJSONTree.
*/
func ReadJSONTreeFromFile(ctx context.Context, path string) (*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tree file %s: %w", path, err)
	}
	defer f.Close()
	t, err := ReadJSONTree(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("reading tree file %s: %w", path, err)
	}
	return t, nil
}
