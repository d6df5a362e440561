package json

import (
	"encoding/json"
	"fmt"

	"github.com/pbanos/cart/feature"
	featurejson "github.com/pbanos/cart/feature/json"
	"github.com/pbanos/cart/tree"
)

/*
RecordEncodeDecoder is an interface for objects
that allow encoding node growth records into slices of
bytes and decoding them back to records.
*/
type RecordEncodeDecoder interface {

	//Encode receives a *tree.Record
	//and returns a slice of bytes with the record
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*tree.Record) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *tree.Record decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*tree.Record, error)
}

type recordEncodeDecoder struct {
	features []feature.Feature
}

type record struct {
	ID       string             `json:"id"`
	ParentID string             `json:"pId,omitempty"`
	Label    int                `json:"l"`
	Weight   int                `json:"w"`
	Impurity float64            `json:"g"`
	Split    *featurejson.Split `json:"s,omitempty"`
	LeftID   string             `json:"lId,omitempty"`
	RightID  string             `json:"rId,omitempty"`
}

/*
NewRecordEncodeDecoder returns a RecordEncodeDecoder that encodes records
as JSON objects, checking decoded splits against the given features.
*/
func NewRecordEncodeDecoder(features []feature.Feature) RecordEncodeDecoder {
	return &recordEncodeDecoder{features}
}

func (red *recordEncodeDecoder) Encode(r *tree.Record) ([]byte, error) {
	jr := &record{
		ID:       r.ID,
		ParentID: r.ParentID,
		Label:    r.Label,
		Weight:   r.Weight,
		Impurity: r.Impurity,
		LeftID:   r.LeftID,
		RightID:  r.RightID,
	}
	if r.Split != nil {
		s, err := featurejson.FromSplit(*r.Split)
		if err != nil {
			return nil, fmt.Errorf("encoding node %s: %w", r.ID, err)
		}
		jr.Split = &s
	}
	return json.Marshal(jr)
}

func (red *recordEncodeDecoder) Decode(data []byte) (*tree.Record, error) {
	jr := &record{}
	err := json.Unmarshal(data, jr)
	if err != nil {
		return nil, err
	}
	r := &tree.Record{
		ID:       jr.ID,
		ParentID: jr.ParentID,
		Label:    jr.Label,
		Weight:   jr.Weight,
		Impurity: jr.Impurity,
		LeftID:   jr.LeftID,
		RightID:  jr.RightID,
	}
	if jr.Split != nil {
		s, err := jr.Split.ToSplit(red.features)
		if err != nil {
			return nil, fmt.Errorf("unmarshalling node %v: %w", jr.ID, err)
		}
		r.Split = &s
	}
	return r, nil
}
