/*
Package dataset defines the training data consumed by tree growth: a
feature matrix with typed columns, the vector of class labels for its rows
and the operations on them (partitioning, class counting, impurity and
train/test splitting).
*/
package dataset

import (
	"fmt"
	"math"

	"github.com/pbanos/cart/feature"
)

// Error represents a precondition failure on dataset construction.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrLengthMismatch is returned when a feature matrix and a label vector
	// do not have the same number of rows.
	ErrLengthMismatch = Error("feature matrix and label vector have different lengths")
	// ErrRaggedMatrix is returned when a row does not have one value per feature.
	ErrRaggedMatrix = Error("row width does not match the number of features")
	// ErrKindMismatch is returned when a value does not have the kind of its column.
	ErrKindMismatch = Error("value kind does not match its column")
	// ErrNegativeLabel is returned when a label is not a valid class index.
	ErrNegativeLabel = Error("labels must be non-negative class indices")
	// ErrNaN is returned when a numeric value is not a number, as such
	// values cannot be ordered against split thresholds.
	ErrNaN = Error("numeric values must not be NaN")
)

/*
Matrix is an ordered collection of rows of fixed width. Each column holds
values of the kind of the corresponding feature. Matrices are never modified
once built: partitioning produces new matrices that share the row slices.
*/
type Matrix struct {
	features []feature.Feature
	rows     [][]feature.Value
}

/*
NewMatrix takes a slice of features and a slice of rows and returns a matrix
with them or an error if a row does not have exactly one value per feature,
a value does not have the kind of its feature or a numeric value is NaN.
*/
func NewMatrix(features []feature.Feature, rows [][]feature.Value) (*Matrix, error) {
	for i, row := range rows {
		if len(row) != len(features) {
			return nil, fmt.Errorf("row %d has %d values for %d features: %w", i, len(row), len(features), ErrRaggedMatrix)
		}
		for c, v := range row {
			if v.Kind() != features[c].Kind() {
				return nil, fmt.Errorf("row %d column %s: expected %s value, got %s: %w", i, features[c].Name(), features[c].Kind(), v.Kind(), ErrKindMismatch)
			}
			if v.Kind() == feature.Numeric && math.IsNaN(v.Float()) {
				return nil, fmt.Errorf("row %d column %s: %w", i, features[c].Name(), ErrNaN)
			}
		}
	}
	return &Matrix{features, rows}, nil
}

/*
FromRows takes a slice of rows and returns a matrix whose columns are named
x0, x1... and whose kinds are taken from the values on the first row.
*/
func FromRows(rows [][]feature.Value) (*Matrix, error) {
	var features []feature.Feature
	if len(rows) > 0 {
		features = make([]feature.Feature, len(rows[0]))
		for c, v := range rows[0] {
			name := fmt.Sprintf("x%d", c)
			switch v.Kind() {
			case feature.Numeric:
				features[c] = feature.NewNumericFeature(name)
			case feature.Categorical:
				features[c] = feature.NewCategoricalFeature(name, nil)
			default:
				return nil, fmt.Errorf("row 0 column %d: value has no kind: %w", c, ErrKindMismatch)
			}
		}
	}
	return NewMatrix(features, rows)
}

// Features returns the columns of the matrix
func (m *Matrix) Features() []feature.Feature {
	return m.features
}

// Rows returns the rows of the matrix. Callers must not modify them.
func (m *Matrix) Rows() [][]feature.Value {
	return m.rows
}

// Row returns the i-th row of the matrix
func (m *Matrix) Row(i int) []feature.Value {
	return m.rows[i]
}

// Len returns the number of rows
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Width returns the number of columns
func (m *Matrix) Width() int {
	return len(m.features)
}

/*
Dataset is a feature matrix paired with the class label of each of its rows.

Its Criteria method returns the criteria that were applied through
partitions to the root dataset to obtain it, in application order.
*/
type Dataset struct {
	x        *Matrix
	y        Labels
	criteria []feature.Criterion
}

/*
New takes a matrix and a label vector and returns the dataset they form or
an error if they do not have the same length or a label is negative.
*/
func New(x *Matrix, y Labels) (*Dataset, error) {
	if x == nil {
		return nil, fmt.Errorf("nil feature matrix: %w", ErrLengthMismatch)
	}
	if x.Len() != len(y) {
		return nil, fmt.Errorf("%d rows and %d labels: %w", x.Len(), len(y), ErrLengthMismatch)
	}
	for i, l := range y {
		if l < 0 {
			return nil, fmt.Errorf("row %d has label %d: %w", i, l, ErrNegativeLabel)
		}
	}
	return &Dataset{x: x, y: y}, nil
}

// X returns the feature matrix of the dataset
func (d *Dataset) X() *Matrix {
	return d.x
}

// Y returns the labels of the dataset
func (d *Dataset) Y() Labels {
	return d.y
}

// Features returns the columns of the dataset
func (d *Dataset) Features() []feature.Feature {
	return d.x.features
}

// Len returns the number of rows in the dataset
func (d *Dataset) Len() int {
	return len(d.y)
}

// Criteria returns the criteria that derived the dataset from its root
func (d *Dataset) Criteria() []feature.Criterion {
	return d.criteria
}

// Subset takes a criterion and returns the dataset with only the rows
// satisfying it, in their original order.
func (d *Dataset) Subset(c feature.Criterion) *Dataset {
	var rows [][]feature.Value
	var labels Labels
	for i, row := range d.x.rows {
		if c.SatisfiedBy(row) {
			rows = append(rows, row)
			labels = append(labels, d.y[i])
		}
	}
	return d.derive(rows, labels, c)
}

func (d *Dataset) derive(rows [][]feature.Value, labels Labels, c feature.Criterion) *Dataset {
	criteria := make([]feature.Criterion, len(d.criteria), len(d.criteria)+1)
	copy(criteria, d.criteria)
	return &Dataset{
		x:        &Matrix{d.x.features, rows},
		y:        labels,
		criteria: append(criteria, c),
	}
}

func (d *Dataset) String() string {
	return fmt.Sprintf("{Dataset rows: %d columns: %d criteria: %v}", d.Len(), d.x.Width(), d.criteria)
}
