package feature

import "fmt"

// Kind is the type of the values a feature takes. It is fixed per column
// and decides the comparison used by splits on that column.
type Kind uint8

const (
	// Numeric features take float64 values and are split with "greater than".
	Numeric Kind = iota + 1
	// Categorical features take string values and are split with "equals".
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

/*
Feature represents a column of a dataset: a property that can be observed
on every row.

Its Kind method returns the type of values the feature takes, and its Valid
method checks whether a value can be taken by the feature.
*/
type Feature interface {
	Name() string
	Kind() Kind
	Valid(Value) (bool, error)
}

/*
CategoricalFeature represents a property that can be observed and that can only
take a value among a finite set.
*/
type CategoricalFeature struct {
	name            string
	availableValues []string
}

/*
NumericFeature represents a property that can be observed and that can take
a numeric value
*/
type NumericFeature struct {
	name string
}

/*
NewCategoricalFeature takes a name string and a slice of available value strings
and returns a categorical feature with the given name and available values.
An empty slice of available values makes the feature accept any string.
*/
func NewCategoricalFeature(name string, availableValues []string) *CategoricalFeature {
	return &CategoricalFeature{name, availableValues}
}

/*
NewNumericFeature takes a name string and returns a numeric feature with
the given name.
*/
func NewNumericFeature(name string) *NumericFeature {
	return &NumericFeature{name}
}

// Name returns a string with the name of the feature
func (cf *CategoricalFeature) Name() string {
	return cf.name
}

// Kind returns Categorical
func (cf *CategoricalFeature) Kind() Kind {
	return Categorical
}

/*
Valid receives a value and returns a boolean and an error. When the value is
categorical and included in the available values for the feature, the method
returns true and nil. Otherwise it returns false and an error describing the
reason.
*/
func (cf *CategoricalFeature) Valid(value Value) (bool, error) {
	if value.Kind() != Categorical {
		return false, fmt.Errorf("categorical feature %s expects string value, got %s value", cf.name, value.Kind())
	}
	if len(cf.availableValues) == 0 {
		return true, nil
	}
	if cf.Index(value.String()) < 0 {
		return false, fmt.Errorf("categorical feature %s got unknown value %s", cf.name, value.String())
	}
	return true, nil
}

/*
AvailableValues returns a string slice with the values available for the feature
*/
func (cf *CategoricalFeature) AvailableValues() []string {
	return cf.availableValues
}

// Index returns the position of the given value among the available values
// of the feature, or -1 if it is not one of them.
func (cf *CategoricalFeature) Index(value string) int {
	for i, av := range cf.availableValues {
		if av == value {
			return i
		}
	}
	return -1
}

func (cf *CategoricalFeature) String() string {
	return cf.name
}

// Name returns a string with the name of the feature
func (nf *NumericFeature) Name() string {
	return nf.name
}

// Kind returns Numeric
func (nf *NumericFeature) Kind() Kind {
	return Numeric
}

/*
Valid receives a value and returns a boolean and an error. When the
value is numeric it returns true and nil, otherwise it returns
false and an error describing the reason.
*/
func (nf *NumericFeature) Valid(value Value) (bool, error) {
	if value.Kind() != Numeric {
		return false, fmt.Errorf("numeric feature %s expects float64 value, got %s value", nf.name, value.Kind())
	}
	return true, nil
}

func (nf *NumericFeature) String() string {
	return nf.name
}

// Find returns the feature in the given slice with the given name,
// or nil if there is none.
func Find(features []Feature, name string) Feature {
	for _, f := range features {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
