/*
Package yaml provides methods to parse feature.Feature specifications
also known as metadata, from YAML documents.
*/
package yaml

import (
	"fmt"
	"os"
	"sort"

	"github.com/pbanos/cart/feature"
	yaml "gopkg.in/yaml.v2"
)

/*
ReadFeatures takes a slice of bytes with a feature specification in YML and
returns a slice of features parsed from it or an error.
The YML is expected to be an object containing a features property. The value for this
should be an object with a property for each feature with its name and either a
string value of 'numeric' (or 'continuous') for numeric features or a list of valid
values for categorical features. A string value of 'categorical' declares a
categorical feature accepting any value.

The optional order property lists feature names and fixes the order of the
returned slice. Features not listed there come after, sorted by name.
*/
func ReadFeatures(md []byte) ([]feature.Feature, error) {
	metadata := struct {
		Features map[string]interface{}
		Order    []string
	}{}
	err := yaml.Unmarshal(md, &metadata)
	if err != nil {
		return nil, fmt.Errorf("parsing yml features: %w", err)
	}
	if metadata.Features == nil {
		return nil, fmt.Errorf("metadata file has no feature information")
	}
	names := make([]string, 0, len(metadata.Features))
	listed := make(map[string]bool)
	for _, n := range metadata.Order {
		if _, ok := metadata.Features[n]; !ok {
			return nil, fmt.Errorf("order references undeclared feature %s", n)
		}
		if listed[n] {
			return nil, fmt.Errorf("order lists feature %s twice", n)
		}
		listed[n] = true
		names = append(names, n)
	}
	var rest []string
	for n := range metadata.Features {
		if !listed[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)
	features := make([]feature.Feature, 0, len(names))
	for _, fn := range names {
		switch values := metadata.Features[fn].(type) {
		case string:
			switch values {
			case "numeric", "continuous":
				features = append(features, feature.NewNumericFeature(fn))
			case "categorical", "discrete":
				features = append(features, feature.NewCategoricalFeature(fn, nil))
			default:
				return nil, fmt.Errorf("invalid declaration %q for feature %s", values, fn)
			}
		case []interface{}:
			stringVs := make([]string, 0, len(values))
			for _, v := range values {
				stringVs = append(stringVs, fmt.Sprintf("%v", v))
			}
			features = append(features, feature.NewCategoricalFeature(fn, stringVs))
		default:
			return nil, fmt.Errorf("invalid feature declaration of type %T for feature %s", values, fn)
		}
	}
	return features, nil
}

/*
ReadFeaturesFromFile takes a filepath string, reads its contents and uses
ReadFeatures to parse it and return a slice of parsed features or an error.
If the file indicated by the filepath cannot be opened for reading an error
will be returned.
*/
func ReadFeaturesFromFile(filepath string) ([]feature.Feature, error) {
	md, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading features yml file %s: %w", filepath, err)
	}
	features, err := ReadFeatures(md)
	if err != nil {
		err = fmt.Errorf("parsing features yml file %s: %w", filepath, err)
	}
	return features, err
}
