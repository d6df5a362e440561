/*
Package json encodes growth tasks as JSON documents holding the ID of
the task's node and its dataset, so that tasks can be shared between
processes through a queue backend such as redis.

The node itself is not part of the document: it lives on the node store
shared by the processes, from which it is fetched on decoding.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"

	datasetjson "github.com/pbanos/cart/dataset/json"
	"github.com/pbanos/cart/queue"
	"github.com/pbanos/cart/tree"
)

// TaskEncodeDecoder encodes tasks as bytes and decodes them back
type TaskEncodeDecoder interface {
	Encode(context.Context, *queue.Task) ([]byte, error)
	Decode(context.Context, []byte) (*queue.Task, error)
}

type document struct {
	Node    string          `json:"node"`
	Dataset json.RawMessage `json:"dataset"`
}

type encodeDecoder struct {
	ded datasetjson.DatasetEncodeDecoder
	ns  tree.NodeStore
}

// New returns a TaskEncodeDecoder encoding datasets with the given
// DatasetEncodeDecoder and getting the nodes of decoded tasks from ns.
func New(ded datasetjson.DatasetEncodeDecoder, ns tree.NodeStore) TaskEncodeDecoder {
	return &encodeDecoder{ded: ded, ns: ns}
}

func (ed *encodeDecoder) Encode(ctx context.Context, t *queue.Task) ([]byte, error) {
	d, err := ed.ded.Encode(ctx, t.Dataset)
	if err != nil {
		return nil, fmt.Errorf("encoding task %s: %w", t.ID(), err)
	}
	return json.Marshal(&document{Node: t.ID(), Dataset: d})
}

func (ed *encodeDecoder) Decode(ctx context.Context, data []byte) (*queue.Task, error) {
	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding task: %w", err)
	}
	n, err := ed.ns.Get(ctx, doc.Node)
	if err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", doc.Node, err)
	}
	if n == nil {
		return nil, fmt.Errorf("decoding task %s: node not found", doc.Node)
	}
	d, err := ed.ded.Decode(ctx, doc.Dataset)
	if err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", doc.Node, err)
	}
	return &queue.Task{Node: n, Dataset: d}, nil
}
