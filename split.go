package cart

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type candidate struct {
	split *feature.Split
	cost  float64
}

/*
FindBestSplit takes a context, a dataset and the number of classes of its
labels and returns the split of the dataset with the lowest weighted Gini
impurity of its sides, along with that cost.

Every distinct value of every column is a candidate threshold. Candidates
are compared in column order, then in ascending value order within a
column, and a candidate replaces the best one only if its cost is strictly
lower, so ties are won by the first candidate in that order.

It returns a nil split and a cost of +Inf if the dataset has fewer than two
rows or no columns. Columns are evaluated concurrently, which yields the
same split as evaluating them one after the other. The error is non-nil
if classes is not greater than every label or the context is done before
the search is over.
*/
func FindBestSplit(ctx context.Context, d *dataset.Dataset, classes int) (*feature.Split, float64, error) {
	rows := d.X().Rows()
	width := d.X().Width()
	ctx, span := tracer.Start(ctx, "cart.FindBestSplit",
		trace.WithAttributes(attribute.Int("rows", len(rows)), attribute.Int("columns", width)))
	defer span.End()
	start := time.Now()
	defer func() {
		splitSearchDuration.Observe(time.Since(start).Seconds())
	}()
	y := d.Y()
	if c := y.Classes(); classes < c {
		return nil, math.Inf(1), fmt.Errorf("finding best split: %d classes for labels up to %d", classes, c-1)
	}
	if len(rows) <= 1 || width == 0 {
		return nil, math.Inf(1), nil
	}
	features := d.Features()
	total := y.Counts(classes)
	bests := make([]candidate, width)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for c := 0; c < width; c++ {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if features[c].Kind() == feature.Numeric {
				bests[c] = bestNumericSplit(c, rows, y, total)
			} else {
				bests[c] = bestCategoricalSplit(c, rows, y, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, math.Inf(1), err
	}
	best := candidate{cost: math.Inf(1)}
	for _, b := range bests {
		if b.split != nil && b.cost < best.cost {
			best = b
		}
	}
	return best.split, best.cost, nil
}

// bestNumericSplit sweeps the rows sorted by their value on column c,
// accumulating class counts on the left side. For a threshold v, the left
// side holds exactly the rows with a value not greater than v.
func bestNumericSplit(c int, rows [][]feature.Value, y dataset.Labels, total []int) candidate {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rows[order[i]][c].Float() < rows[order[j]][c].Float()
	})
	n := len(rows)
	left := make([]int, len(total))
	right := append([]int(nil), total...)
	best := candidate{cost: math.Inf(1)}
	for i := 0; i < n; {
		v := rows[order[i]][c].Float()
		for ; i < n && rows[order[i]][c].Float() == v; i++ {
			l := y[order[i]]
			left[l]++
			right[l]--
		}
		cost := weightedGini(left, i, right, n-i)
		if cost < best.cost {
			best = candidate{&feature.Split{Column: c, Threshold: feature.Number(v)}, cost}
		}
	}
	return best
}

// bestCategoricalSplit counts the classes of the rows holding each
// distinct value of column c. For a threshold v, the right side holds
// exactly the rows with value v.
func bestCategoricalSplit(c int, rows [][]feature.Value, y dataset.Labels, total []int) candidate {
	byValue := make(map[string][]int)
	for i, row := range rows {
		v := row[c].String()
		counts, ok := byValue[v]
		if !ok {
			counts = make([]int, len(total))
			byValue[v] = counts
		}
		counts[y[i]]++
	}
	values := make([]string, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	sort.Strings(values)
	n := len(rows)
	left := make([]int, len(total))
	best := candidate{cost: math.Inf(1)}
	for _, v := range values {
		right := byValue[v]
		nr := 0
		for k, count := range right {
			left[k] = total[k] - count
			nr += count
		}
		cost := weightedGini(left, n-nr, right, nr)
		if cost < best.cost {
			best = candidate{&feature.Split{Column: c, Threshold: feature.Category(v)}, cost}
		}
	}
	return best
}

// weightedGini returns the Gini impurity of both sides of a split weighted
// by their share of the rows.
func weightedGini(left []int, nl int, right []int, nr int) float64 {
	n := float64(nl + nr)
	return float64(nl)/n*dataset.Gini(left, nl) + float64(nr)/n*dataset.Gini(right, nr)
}
