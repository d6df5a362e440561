package tree

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pbanos/cart/feature"
)

/*
Record is the growth record of a node. Records are kept on a NodeStore
while a tree grows, possibly by many workers at once, and are compiled into
a Tree once growth is over.
*/
type Record struct {
	// An ID to identify the node
	ID string
	// The ID for the parent of the node in the tree, empty for the root
	ParentID string
	// The majority class of the rows of the node
	Label int
	// The number of rows of the node and their Gini impurity
	Weight   int
	Impurity float64
	// The split of the node, nil while the node has not been branched out
	// or if it is a leaf.
	Split *feature.Split
	// The IDs of the nodes under this node, empty for leaves.
	LeftID  string
	RightID string
}

/*
NodeStore keeps the records of a growing tree. Implementations must be
safe for concurrent use, and fail with the context error once the given
context is done.
*/
type NodeStore interface {
	// Create stores a new record, setting its ID.
	Create(ctx context.Context, r *Record) error
	// Get returns the record with the given ID, nil if there is none.
	Get(ctx context.Context, id string) (*Record, error)
	// Store replaces a record previously created.
	Store(ctx context.Context, r *Record) error
	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, r *Record) error
	// Close releases the resources of the store.
	Close(ctx context.Context) error
}

// memoryNodeStore keeps copies of the records so that callers cannot
// modify stored records
type memoryNodeStore struct {
	mu      sync.RWMutex
	records map[string]Record
	nextID  uint64
}

// NewMemoryNodeStore returns a NodeStore keeping records in the process
// memory. IDs are consecutive numbers starting at 1.
func NewMemoryNodeStore() NodeStore {
	return &memoryNodeStore{records: make(map[string]Record)}
}

func (mns *memoryNodeStore) Create(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mns.mu.Lock()
	defer mns.mu.Unlock()
	mns.nextID++
	r.ID = strconv.FormatUint(mns.nextID, 10)
	mns.records[r.ID] = *r
	return nil
}

func (mns *memoryNodeStore) Store(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mns.mu.Lock()
	defer mns.mu.Unlock()
	if _, ok := mns.records[r.ID]; !ok {
		return fmt.Errorf("storing record %s: not found", r.ID)
	}
	mns.records[r.ID] = *r
	return nil
}

func (mns *memoryNodeStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mns.mu.RLock()
	defer mns.mu.RUnlock()
	r, ok := mns.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (mns *memoryNodeStore) Delete(ctx context.Context, r *Record) error {
	mns.mu.Lock()
	defer mns.mu.Unlock()
	delete(mns.records, r.ID)
	return nil
}

func (mns *memoryNodeStore) Close(ctx context.Context) error {
	return nil
}

/*
Compile takes a node store, the ID of the root record and the tree
metadata, and returns the Tree formed by the records reachable from the
root. Nodes are numbered in pre-order, left subtrees first, so the handles
of a tree depend only on its shape and not on the order in which its
records were created.
*/
func Compile(ctx context.Context, ns NodeStore, rootID string, classes int, features []feature.Feature, classNames []string) (*Tree, error) {
	var nodes []Node
	_, err := compile(ctx, ns, rootID, &nodes)
	if err != nil {
		return nil, err
	}
	return New(nodes, 0, classes, features, classNames)
}

func compile(ctx context.Context, ns NodeStore, id string, nodes *[]Node) (NodeID, error) {
	r, err := ns.Get(ctx, id)
	if err != nil {
		return NoNode, fmt.Errorf("retrieving node %s: %w", id, err)
	}
	if r == nil {
		return NoNode, fmt.Errorf("node %s not found: %w", id, ErrInvalidTree)
	}
	nid := NodeID(len(*nodes))
	*nodes = append(*nodes, Node{
		Label:    r.Label,
		Left:     NoNode,
		Right:    NoNode,
		Weight:   r.Weight,
		Impurity: r.Impurity,
	})
	if r.Split == nil {
		return nid, nil
	}
	left, err := compile(ctx, ns, r.LeftID, nodes)
	if err != nil {
		return NoNode, err
	}
	right, err := compile(ctx, ns, r.RightID, nodes)
	if err != nil {
		return NoNode, err
	}
	s := *r.Split
	(*nodes)[nid].Split = &s
	(*nodes)[nid].Left = left
	(*nodes)[nid].Right = right
	return nid, nil
}
