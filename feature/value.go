package feature

import (
	"fmt"
	"sort"
	"strconv"
)

// Value is a single cell of a dataset, tagged with the kind of the
// feature it belongs to. The zero Value has no kind and is not valid
// for any feature.
type Value struct {
	kind Kind
	num  float64
	cat  string
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: Numeric, num: f}
}

// Category returns a categorical Value.
func Category(s string) Value {
	return Value{kind: Categorical, cat: s}
}

// Kind returns the kind tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the numeric content of the value, 0 for categorical values.
func (v Value) Float() float64 {
	return v.num
}

// String returns the categorical content of the value, or the formatted
// number for numeric values.
func (v Value) String() string {
	if v.kind == Numeric {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.cat
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == Numeric {
		return v.num == o.num
	}
	return v.cat == o.cat
}

// Less orders values of the same kind: numerically for numeric values,
// lexicographically for categorical ones.
func (v Value) Less(o Value) bool {
	if v.kind == Numeric {
		return v.num < o.num
	}
	return v.cat < o.cat
}

// GoString helps test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case Numeric:
		return fmt.Sprintf("feature.Number(%v)", v.num)
	case Categorical:
		return fmt.Sprintf("feature.Category(%q)", v.cat)
	}
	return "feature.Value{}"
}

// ParseValue takes a string and a kind and returns the value of that kind
// the string represents.
func ParseValue(s string, k Kind) (Value, error) {
	switch k {
	case Numeric:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("converting %s to float64: %w", s, err)
		}
		return Number(f), nil
	case Categorical:
		return Category(s), nil
	}
	return Value{}, fmt.Errorf("cannot parse value %q of unknown kind %v", s, k)
}

// SortValues sorts a slice of values of the same kind in ascending order.
func SortValues(vs []Value) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
