package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitGoesRightNumeric verifies rows strictly above the threshold go right
func TestSplitGoesRightNumeric(t *testing.T) {
	s := Split{Column: 1, Threshold: Number(2.5)}
	assert.False(t, s.GoesRight([]Value{Category("a"), Number(1)}))
	assert.False(t, s.GoesRight([]Value{Category("a"), Number(2.5)}))
	assert.True(t, s.GoesRight([]Value{Category("a"), Number(2.6)}))
}

// TestSplitGoesRightCategorical verifies only rows equal to the threshold go right
func TestSplitGoesRightCategorical(t *testing.T) {
	s := Split{Column: 0, Threshold: Category("red")}
	assert.True(t, s.GoesRight([]Value{Category("red")}))
	assert.False(t, s.GoesRight([]Value{Category("blue")}))
	assert.False(t, s.GoesRight([]Value{Category("never seen")}))
}

// TestSplitCheck verifies rows the split cannot test are reported
func TestSplitCheck(t *testing.T) {
	s := Split{Column: 1, Threshold: Number(0)}
	require.NoError(t, s.Check([]Value{Category("x"), Number(3)}))
	assert.Error(t, s.Check([]Value{Category("x")}))
	assert.Error(t, s.Check([]Value{Category("x"), Category("3")}))
}

func TestSplitString(t *testing.T) {
	features := []Feature{NewNumericFeature("age"), NewCategoricalFeature("color", nil)}
	assert.Equal(t, "X[0] > 30", Split{Column: 0, Threshold: Number(30)}.String())
	assert.Equal(t, `X[1] is "red"`, Split{Column: 1, Threshold: Category("red")}.String())
	assert.Equal(t, "age > 30", Split{Column: 0, Threshold: Number(30)}.Describe(features))
	assert.Equal(t, "color is red", Split{Column: 1, Threshold: Category("red")}.Describe(features))
	assert.Equal(t, "X[4] > 1", Split{Column: 4, Threshold: Number(1)}.Describe(features))
}

// TestCriterionSatisfiedBy verifies a criterion and its opposite split every row
func TestCriterionSatisfiedBy(t *testing.T) {
	s := Split{Column: 0, Threshold: Number(1)}
	right := Criterion{Split: s, Right: true}
	left := Criterion{Split: s}
	for _, v := range []float64{-1, 0, 1, 1.5, 2} {
		row := []Value{Number(v)}
		assert.NotEqual(t, left.SatisfiedBy(row), right.SatisfiedBy(row), "value %v", v)
	}
	assert.Equal(t, "not X[0] > 1", left.String())
}
