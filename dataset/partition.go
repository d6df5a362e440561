package dataset

import (
	"fmt"

	"github.com/pbanos/cart/feature"
)

/*
Partition takes a split and returns the datasets with the rows on its left
and right sides. Every row ends up in exactly one side, and rows keep their
relative order. Both datasets are freshly allocated and remember the
criterion that derived them.
*/
func (d *Dataset) Partition(s feature.Split) (left, right *Dataset) {
	xl, yl, xr, yr := partition(d.x.rows, d.y, s)
	left = d.derive(xl, yl, feature.Criterion{Split: s})
	right = d.derive(xr, yr, feature.Criterion{Split: s, Right: true})
	return left, right
}

/*
Partition takes a matrix, its label vector and a split and returns the rows
and labels on the left side followed by those on the right side of the split.
It fails with ErrLengthMismatch if the matrix and the labels have different
lengths.
*/
func Partition(x *Matrix, y Labels, s feature.Split) (*Matrix, Labels, *Matrix, Labels, error) {
	if x == nil {
		return nil, nil, nil, nil, fmt.Errorf("partitioning nil feature matrix: %w", ErrLengthMismatch)
	}
	if x.Len() != len(y) {
		return nil, nil, nil, nil, fmt.Errorf("partitioning %d rows and %d labels: %w", x.Len(), len(y), ErrLengthMismatch)
	}
	xl, yl, xr, yr := partition(x.rows, y, s)
	return &Matrix{x.features, xl}, yl, &Matrix{x.features, xr}, yr, nil
}

func partition(rows [][]feature.Value, y Labels, s feature.Split) (xl [][]feature.Value, yl Labels, xr [][]feature.Value, yr Labels) {
	xl = make([][]feature.Value, 0, len(rows))
	yl = make(Labels, 0, len(rows))
	for i, row := range rows {
		if s.GoesRight(row) {
			xr = append(xr, row)
			yr = append(yr, y[i])
		} else {
			xl = append(xl, row)
			yl = append(yl, y[i])
		}
	}
	return xl, yl, xr, yr
}
