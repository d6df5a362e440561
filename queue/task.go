package queue

import (
	"fmt"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/tree"
)

// Task represents a node to be branched out
// on a growing tree.
type Task struct {
	// The growth record of the node
	Node *tree.Record
	// The dataset of training data with the rows
	// satisfying the criteria on the path from the
	// root to the node.
	Dataset *dataset.Dataset
}

// ID returns a string that identifies the
// task, the ID of its Node.
func (t *Task) ID() string {
	return t.Node.ID
}

func (t *Task) String() string {
	return fmt.Sprintf("{Task %s rows: %d}", t.Node.ID, t.Dataset.Len())
}
