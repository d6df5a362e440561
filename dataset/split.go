package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pbanos/cart/feature"
)

/*
TrainTestSplit takes a dataset, the fraction of its rows to hold out for
testing and a source of randomness, and returns a training and a testing
dataset. The number of testing rows is the given fraction of the rows
rounded to the nearest integer; rows keep their relative order on both sides.
*/
func TrainTestSplit(d *Dataset, testFraction float64, rnd *rand.Rand) (train, test *Dataset, err error) {
	if testFraction < 0 || testFraction > 1 || math.IsNaN(testFraction) {
		return nil, nil, fmt.Errorf("test fraction %v is not between 0 and 1", testFraction)
	}
	n := d.Len()
	perm := rnd.Perm(n)
	testCount := int(math.Round(testFraction * float64(n)))
	testIdx := append([]int(nil), perm[:testCount]...)
	trainIdx := append([]int(nil), perm[testCount:]...)
	sort.Ints(testIdx)
	sort.Ints(trainIdx)
	return d.pick(trainIdx), d.pick(testIdx), nil
}

func (d *Dataset) pick(idx []int) *Dataset {
	rows := make([][]feature.Value, len(idx))
	labels := make(Labels, len(idx))
	for i, j := range idx {
		rows[i] = d.x.rows[j]
		labels[i] = d.y[j]
	}
	return &Dataset{x: &Matrix{d.x.features, rows}, y: labels}
}
