package feature

import (
	"fmt"
	"strconv"
)

/*
Split is a binary test on one column of a row. The kind of the threshold
decides the comparison:
  - numeric thresholds send rows with a value strictly greater than the
    threshold to the right, the rest to the left
  - categorical thresholds send rows with a value equal to the threshold
    to the right, the rest to the left

The same test is used when searching for splits, when partitioning
datasets and when predicting.
*/
type Split struct {
	Column    int
	Threshold Value
}

// GoesRight takes a row and returns whether it belongs to the right side
// of the split. A categorical value never seen by the split goes left.
func (s Split) GoesRight(row []Value) bool {
	v := row[s.Column]
	if s.Threshold.Kind() == Numeric {
		return v.Float() > s.Threshold.Float()
	}
	return v.Kind() == Categorical && v.String() == s.Threshold.String()
}

// Check takes a row and returns an error if the split cannot be
// applied to it.
func (s Split) Check(row []Value) error {
	if s.Column < 0 || s.Column >= len(row) {
		return fmt.Errorf("split on column %d cannot be applied to row with %d columns", s.Column, len(row))
	}
	if k := row[s.Column].Kind(); k != s.Threshold.Kind() {
		return fmt.Errorf("split on column %d expects %s value, got %s value", s.Column, s.Threshold.Kind(), k)
	}
	return nil
}

func (s Split) String() string {
	if s.Threshold.Kind() == Numeric {
		return fmt.Sprintf("X[%d] > %s", s.Column, s.Threshold)
	}
	return fmt.Sprintf("X[%d] is %s", s.Column, strconv.Quote(s.Threshold.String()))
}

// Describe renders the split with the column name taken from the given
// features when available.
func (s Split) Describe(features []Feature) string {
	if s.Column < 0 || s.Column >= len(features) {
		return s.String()
	}
	name := features[s.Column].Name()
	if s.Threshold.Kind() == Numeric {
		return fmt.Sprintf("%s > %s", name, s.Threshold)
	}
	return fmt.Sprintf("%s is %s", name, s.Threshold)
}

/*
Criterion represents a constraint on a row: being on one side of a split.

Datasets obtained by partitioning keep the criteria that lead from the root
dataset to them, so a subset can be described (and rebuilt) as its root
plus a list of criteria.
*/
type Criterion struct {
	Split Split
	Right bool
}

// SatisfiedBy takes a row and returns whether it lies on the criterion's
// side of the split.
func (c Criterion) SatisfiedBy(row []Value) bool {
	return c.Split.GoesRight(row) == c.Right
}

func (c Criterion) String() string {
	if c.Right {
		return c.Split.String()
	}
	return fmt.Sprintf("not %s", c.Split)
}
