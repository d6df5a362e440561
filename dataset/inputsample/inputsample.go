/*
Package inputsample provides a sample whose values are read from an
io.Reader as they are needed.
*/
package inputsample

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pbanos/cart/feature"
)

/*
Sample represents a row whose values are retrieved from a reader. A value
will be requested using a FeatureValueRequester before reading it, and is
remembered once read.
*/
type Sample struct {
	obtainedValues        map[int]feature.Value
	scanner               *bufio.Scanner
	featureValueRequester FeatureValueRequester
	features              []feature.Feature
}

/*
FeatureValueRequester represents a way to ask
for feature values and reject the given values.
*/
type FeatureValueRequester interface {
	RequestValueFor(feature.Feature) error
	RejectValueFor(feature.Feature, string) error
}

/*
New takes an io.Reader, the slice of features of the columns of a row and a
FeatureValueRequester and returns a Sample.

The returned Sample ValueFor method reads the value of a column first
requesting it with the given FeatureValueRequester and then parsing the
value from the reader.

The parsing expects each value to be presented ending with the
'\n' character, that is in new lines.

For a numeric feature, lines will be read from the reader until a line
containing a valid float64 number is found.

For a categorical feature, lines will be read from the reader until a line
with a valid value for the feature is found.

For both kinds of feature, non accepted values will be rejected with the
FeatureValueRequester's RejectValueFor method.
*/
func New(r io.Reader, features []feature.Feature, featureValueRequester FeatureValueRequester) *Sample {
	return &Sample{
		obtainedValues:        make(map[int]feature.Value),
		scanner:               bufio.NewScanner(r),
		featureValueRequester: featureValueRequester,
		features:              features,
	}
}

// ValueFor returns the value of the given column, reading it if it was
// not read before.
func (rs *Sample) ValueFor(ctx context.Context, column int) (feature.Value, error) {
	if value, ok := rs.obtainedValues[column]; ok {
		return value, nil
	}
	if column < 0 || column >= len(rs.features) {
		return feature.Value{}, fmt.Errorf("have no information about column %d, do not know how to read its value", column)
	}
	f := rs.features[column]
	err := rs.featureValueRequester.RequestValueFor(f)
	if err != nil {
		return feature.Value{}, err
	}
	for rs.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return feature.Value{}, err
		}
		line := rs.scanner.Text()
		value, err := feature.ParseValue(line, f.Kind())
		if err == nil {
			if ok, _ := f.Valid(value); ok {
				rs.obtainedValues[column] = value
				return value, nil
			}
		}
		err = rs.featureValueRequester.RejectValueFor(f, line)
		if err != nil {
			return feature.Value{}, err
		}
	}
	err = rs.scanner.Err()
	if err != nil {
		return feature.Value{}, err
	}
	return feature.Value{}, fmt.Errorf("EOF when requesting value for %s", f.Name())
}

// Row returns the values read so far, indexed by column. Columns that
// were never requested hold the zero Value.
func (rs *Sample) Row() []feature.Value {
	row := make([]feature.Value, len(rs.features))
	for c, v := range rs.obtainedValues {
		row[c] = v
	}
	return row
}
