package yaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pbanos/cart/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metadata = `
features:
  weight: numeric
  height: continuous
  color: [red, blue]
  tag: categorical
  class: [pos, neg]
order: [weight, color]
`

// TestReadFeatures verifies listed features come first and the rest follow by name
func TestReadFeatures(t *testing.T) {
	features, err := ReadFeatures([]byte(metadata))
	require.NoError(t, err)
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name()
	}
	assert.Equal(t, []string{"weight", "color", "class", "height", "tag"}, names)
	assert.Equal(t, feature.Numeric, features[0].Kind())
	assert.Equal(t, feature.Numeric, features[3].Kind())
	color, ok := features[1].(*feature.CategoricalFeature)
	require.True(t, ok)
	assert.Equal(t, []string{"red", "blue"}, color.AvailableValues())
	tag, ok := features[4].(*feature.CategoricalFeature)
	require.True(t, ok)
	assert.Empty(t, tag.AvailableValues())
}

func TestReadFeaturesErrors(t *testing.T) {
	for name, md := range map[string]string{
		"no features":       "order: [a]\n",
		"undeclared order":  "features:\n  a: numeric\norder: [b]\n",
		"repeated order":    "features:\n  a: numeric\norder: [a, a]\n",
		"bad declaration":   "features:\n  a: boolean\n",
		"bad declared type": "features:\n  a: 3\n",
		"not yaml":          "features: [",
	} {
		_, err := ReadFeatures([]byte(md))
		assert.Error(t, err, name)
	}
}

func TestReadFeaturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.yml")
	require.NoError(t, os.WriteFile(path, []byte(metadata), 0o600))
	features, err := ReadFeaturesFromFile(path)
	require.NoError(t, err)
	assert.Len(t, features, 5)
	_, err = ReadFeaturesFromFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
