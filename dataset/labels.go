package dataset

// NoClass is the label of a node grown from no rows at all.
const NoClass = -1

// Labels is a vector of class indices in {0, ..., C-1}, one per row.
type Labels []int

// Classes returns the number of classes the labels imply: the greatest
// label plus one, or 0 for an empty vector.
func (y Labels) Classes() int {
	c := 0
	for _, l := range y {
		if l+1 > c {
			c = l + 1
		}
	}
	return c
}

// Counts returns the number of rows of every class in {0, ..., classes-1}.
// Every label must be below classes.
func (y Labels) Counts(classes int) []int {
	counts := make([]int, classes)
	for _, l := range y {
		counts[l]++
	}
	return counts
}

// Majority returns the class with the most rows, the lowest class index
// among tied ones, or NoClass for an empty vector.
func (y Labels) Majority(classes int) int {
	if len(y) == 0 {
		return NoClass
	}
	return majority(y.Counts(classes))
}

func majority(counts []int) int {
	best := NoClass
	bestCount := 0
	for c, n := range counts {
		if n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}

// Gini returns the Gini impurity of a set of rows given the number of rows
// of each class and their total: 1 - sum over classes of (count/total)^2.
// An empty set has an impurity of 0.
func Gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	t := float64(total)
	sum := 0.0
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / t
		sum += p * p
	}
	return 1 - sum
}

// Impurity returns the Gini impurity of the labels
func (y Labels) Impurity(classes int) float64 {
	return Gini(y.Counts(classes), len(y))
}
