package tree

import (
	"fmt"

	"github.com/pbanos/cart/dataset"
)

// PredictionError represents an error related with predictions
// or with the structure of the tree making them
type PredictionError string

/*
ErrRowShape is the error returned by the prediction methods of a tree when
a row does not have the width of the tree's feature set or holds a value of
the wrong kind on a column the tree tests.
*/
const ErrRowShape = PredictionError("row does not match the shape of the tree's features")

/*
ErrInvalidTree is the error returned when building a tree from nodes that
do not form a binary tree: a leaf with children, a decision node without
them, a child handle out of range, a node with more than one parent or a
node unreachable from the root.
*/
const ErrInvalidTree = PredictionError("nodes do not form a valid tree")

func (pe PredictionError) Error() string {
	return string(pe)
}

/*
Evaluation holds the results of testing a tree against a labeled dataset.
*/
type Evaluation struct {
	// Accuracy is the fraction of rows whose label was predicted correctly,
	// 0 for an empty dataset.
	Accuracy float64
	// Count is the number of rows tested
	Count int
	// Confusion counts rows by actual class (first index) and predicted
	// class (second index).
	Confusion [][]int
	// Unlabeled counts rows for which the tree predicted NoLabel
	Unlabeled int
}

/*
Test takes a labeled dataset and returns an Evaluation of the tree's
predictions over it or an error if a row cannot be predicted.
*/
func (t *Tree) Test(d *dataset.Dataset) (*Evaluation, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot be tested")
	}
	classes := t.classes
	if c := d.Y().Classes(); c > classes {
		classes = c
	}
	e := &Evaluation{Count: d.Len(), Confusion: make([][]int, classes)}
	for i := range e.Confusion {
		e.Confusion[i] = make([]int, classes)
	}
	predictions, err := t.PredictMany(d.X())
	if err != nil {
		return nil, err
	}
	hits := 0
	for i, p := range predictions {
		actual := d.Y()[i]
		if p == NoLabel {
			e.Unlabeled++
			continue
		}
		e.Confusion[actual][p]++
		if p == actual {
			hits++
		}
	}
	if e.Count > 0 {
		e.Accuracy = float64(hits) / float64(e.Count)
	}
	return e, nil
}
