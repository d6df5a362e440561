/*
Package json encodes splits and criteria as JSON documents and decodes
them back.
*/
package json

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/pbanos/cart/feature"
)

/*
CriteriaEncodeDecoder is an interface for objects
that allow encoding criteria into slices of
bytes and decoding them back to criteria.
*/
type CriteriaEncodeDecoder interface {

	//Encode receives a feature.Criterion
	//and returns a slice of bytes with the criterion
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(feature.Criterion) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a feature.Criterion decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (feature.Criterion, error)
}

// Split is the JSON representation of a feature.Split. The threshold is
// kept as a string with its kind tag so numbers round-trip exactly.
type Split struct {
	Column    int    `json:"c"`
	Type      string `json:"t"`
	Threshold string `json:"v"`
}

type jsonCriterion struct {
	Split Split `json:"s"`
	Right bool  `json:"r,omitempty"`
}

type jsonCriteriaEncodeDecoder []feature.Feature

// NewCriteriaEncodeDecoder takes the slice of feature.Feature of the
// dataset the criteria apply to and returns a CriteriaEncodeDecoder that
// marshals and unmarshals criteria into/from slices of bytes as JSON.
// Specifically, criteria are encoded as a JSON object with a "s" property
// holding the split and an "r" property set to true for the right side of
// the split. Splits are objects with:
//   - "c": the column index
//   - "t": the threshold type, "numeric" or "categorical"
//   - "v": the threshold value as a string
//
// Decoding checks the split against the given features.
func NewCriteriaEncodeDecoder(features []feature.Feature) CriteriaEncodeDecoder {
	return jsonCriteriaEncodeDecoder(features)
}

func (jced jsonCriteriaEncodeDecoder) Encode(c feature.Criterion) ([]byte, error) {
	js, err := FromSplit(c.Split)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&jsonCriterion{Split: js, Right: c.Right})
}

func (jced jsonCriteriaEncodeDecoder) Decode(data []byte) (feature.Criterion, error) {
	jc := &jsonCriterion{}
	err := json.Unmarshal(data, jc)
	if err != nil {
		return feature.Criterion{}, err
	}
	s, err := jc.Split.ToSplit(jced)
	if err != nil {
		return feature.Criterion{}, err
	}
	return feature.Criterion{Split: s, Right: jc.Right}, nil
}

// FromSplit returns the JSON representation of the given split.
func FromSplit(s feature.Split) (Split, error) {
	js := Split{Column: s.Column}
	switch s.Threshold.Kind() {
	case feature.Numeric:
		js.Type = feature.Numeric.String()
		js.Threshold = strconv.FormatFloat(s.Threshold.Float(), 'g', -1, 64)
	case feature.Categorical:
		js.Type = feature.Categorical.String()
		js.Threshold = s.Threshold.String()
	default:
		return Split{}, fmt.Errorf("encoding split on column %d: threshold has no kind", s.Column)
	}
	return js, nil
}

// ToSplit returns the feature.Split the JSON representation stands for.
// When features is not nil, the column must exist and have the kind of
// the threshold.
func (js Split) ToSplit(features []feature.Feature) (feature.Split, error) {
	var t feature.Value
	switch js.Type {
	case feature.Numeric.String():
		f, err := strconv.ParseFloat(js.Threshold, 64)
		if err != nil {
			return feature.Split{}, fmt.Errorf("decoding numeric threshold %q: %w", js.Threshold, err)
		}
		if math.IsNaN(f) {
			return feature.Split{}, fmt.Errorf("decoding numeric threshold %q: not a number", js.Threshold)
		}
		t = feature.Number(f)
	case feature.Categorical.String():
		t = feature.Category(js.Threshold)
	default:
		return feature.Split{}, fmt.Errorf("unknown split type '%s'", js.Type)
	}
	if js.Column < 0 {
		return feature.Split{}, fmt.Errorf("invalid split column %d", js.Column)
	}
	if features != nil {
		if js.Column >= len(features) {
			return feature.Split{}, fmt.Errorf("split on column %d but only %d features are defined", js.Column, len(features))
		}
		if k := features[js.Column].Kind(); k != t.Kind() {
			return feature.Split{}, fmt.Errorf("expected %s threshold for %s feature %v but found %s", k, k, features[js.Column].Name(), t.Kind())
		}
	}
	return feature.Split{Column: js.Column, Threshold: t}, nil
}
