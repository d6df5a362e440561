/*
Package json encodes datasets derived by partitioning as JSON documents
that reference their root dataset, and decodes them back by applying the
recorded criteria to that root.

A document holds the URI of the root, the number of rows of the dataset
and its criteria, encoded with a feature/json CriteriaEncodeDecoder:

	{"uri":"data.csv","rows":12,"criteria":[...]}

The number of rows lets a process holding a different copy of the root
dataset notice the difference instead of growing a node on other rows.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbanos/cart/dataset"
	featurejson "github.com/pbanos/cart/feature/json"
)

// DatasetEncodeDecoder encodes datasets as bytes and decodes them back
type DatasetEncodeDecoder interface {
	Encode(context.Context, *dataset.Dataset) ([]byte, error)
	Decode(context.Context, []byte) (*dataset.Dataset, error)
}

type document struct {
	URI      string            `json:"uri"`
	Rows     int               `json:"rows"`
	Criteria []json.RawMessage `json:"criteria,omitempty"`
}

type encodeDecoder struct {
	root    *dataset.Dataset
	rootURI string
	ced     featurejson.CriteriaEncodeDecoder
}

/*
New takes a root dataset, an URI identifying it and a CriteriaEncodeDecoder
and returns a DatasetEncodeDecoder for the datasets derived from that root.
Documents naming another URI are rejected on decoding.
*/
func New(root *dataset.Dataset, rootURI string, ced featurejson.CriteriaEncodeDecoder) DatasetEncodeDecoder {
	return &encodeDecoder{root: root, rootURI: rootURI, ced: ced}
}

func (ed *encodeDecoder) Encode(ctx context.Context, d *dataset.Dataset) ([]byte, error) {
	doc := &document{URI: ed.rootURI, Rows: d.Len()}
	for _, c := range d.Criteria() {
		ec, err := ed.ced.Encode(c)
		if err != nil {
			return nil, fmt.Errorf("encoding dataset criterion %s: %w", c, err)
		}
		doc.Criteria = append(doc.Criteria, ec)
	}
	return json.Marshal(doc)
}

func (ed *encodeDecoder) Decode(ctx context.Context, data []byte) (*dataset.Dataset, error) {
	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if doc.URI != ed.rootURI {
		return nil, fmt.Errorf("decoding dataset: derived from %q instead of %q", doc.URI, ed.rootURI)
	}
	d := ed.root
	for _, ec := range doc.Criteria {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := ed.ced.Decode(ec)
		if err != nil {
			return nil, fmt.Errorf("decoding dataset criterion: %w", err)
		}
		d = d.Subset(c)
	}
	if d.Len() != doc.Rows {
		return nil, fmt.Errorf("decoding dataset: %d rows instead of %d, the root dataset at %q differs from the one encoded", d.Len(), doc.Rows, ed.rootURI)
	}
	return d, nil
}
