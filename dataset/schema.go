package dataset

import (
	"fmt"

	"github.com/pbanos/cart/feature"
)

/*
Schema describes how samples read from a source map to a dataset: which
features become the columns of the matrix, in which order, and which
categorical feature holds the class of each sample.

Class names are mapped to class indices by their position among the class
feature's available values. When the class feature declares no values,
class names get indices in order of appearance.
*/
type Schema struct {
	columns    []feature.Feature
	class      *feature.CategoricalFeature
	classNames []string
	open       bool
}

/*
NewSchema takes a slice of features and the name of the class feature and
returns a schema whose columns are all the other features in the same order.
It returns an error if the class feature is not defined or is not categorical.
*/
func NewSchema(features []feature.Feature, className string) (*Schema, error) {
	s := &Schema{}
	for _, f := range features {
		if f.Name() != className {
			s.columns = append(s.columns, f)
			continue
		}
		cf, ok := f.(*feature.CategoricalFeature)
		if !ok {
			return nil, fmt.Errorf("class feature '%s' must be categorical, it is %s", className, f.Kind())
		}
		s.class = cf
	}
	if s.class == nil {
		return nil, fmt.Errorf("class feature '%s' is not defined", className)
	}
	s.classNames = append([]string(nil), s.class.AvailableValues()...)
	s.open = len(s.classNames) == 0
	return s, nil
}

// NewSchemaWithClasses returns a schema with the given columns and a fixed
// list of class names, as recovered from a persisted tree.
func NewSchemaWithClasses(columns []feature.Feature, className string, classNames []string) *Schema {
	return &Schema{
		columns:    columns,
		class:      feature.NewCategoricalFeature(className, classNames),
		classNames: classNames,
	}
}

// Columns returns the features that make up the matrix columns
func (s *Schema) Columns() []feature.Feature {
	return s.columns
}

// Class returns the class feature
func (s *Schema) Class() *feature.CategoricalFeature {
	return s.class
}

// ClassNames returns the known class names, indexed by class
func (s *Schema) ClassNames() []string {
	return s.classNames
}

// Label takes a class name and returns its class index, registering it
// if the schema learns classes as they appear.
func (s *Schema) Label(name string) (int, error) {
	for i, cn := range s.classNames {
		if cn == name {
			return i, nil
		}
	}
	if !s.open {
		return NoClass, fmt.Errorf("class feature %s got unknown value %s", s.class.Name(), name)
	}
	s.classNames = append(s.classNames, name)
	return len(s.classNames) - 1, nil
}

// ClassName returns the name of the given class index, or its number
// when the index has no name.
func (s *Schema) ClassName(label int) string {
	if label >= 0 && label < len(s.classNames) {
		return s.classNames[label]
	}
	return fmt.Sprintf("%d", label)
}

// Column returns the index of the column for the feature with the given
// name, or -1 if it is not a column.
func (s *Schema) Column(name string) int {
	for i, f := range s.columns {
		if f.Name() == name {
			return i
		}
	}
	return -1
}
