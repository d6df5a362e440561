package csv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *dataset.Schema {
	t.Helper()
	s, err := dataset.NewSchema([]feature.Feature{
		feature.NewNumericFeature("size"),
		feature.NewCategoricalFeature("color", []string{"red", "blue"}),
		feature.NewCategoricalFeature("fruit", nil),
	}, "fruit")
	require.NoError(t, err)
	return s
}

// TestReadDataset verifies columns are matched by header name in any order
func TestReadDataset(t *testing.T) {
	s := testSchema(t)
	input := "color,fruit,size\nred,apple,3\nblue,plum,1.5\nred,apple,2\n"
	d, err := ReadDataset(strings.NewReader(input), s)
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())
	assert.Equal(t, []feature.Value{feature.Number(3), feature.Category("red")}, d.X().Row(0))
	assert.Equal(t, []feature.Value{feature.Number(1.5), feature.Category("blue")}, d.X().Row(1))
	assert.Equal(t, dataset.Labels{0, 1, 0}, d.Y())
	assert.Equal(t, []string{"apple", "plum"}, s.ClassNames())
}

func TestReadDatasetErrors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":           "",
		"unknown column":  "size,color,weight,fruit\n1,red,2,apple\n",
		"missing column":  "size,fruit\n1,apple\n",
		"missing class":   "size,color\n1,red\n",
		"undefined value": "size,color,fruit\n?,red,apple\n",
		"bad number":      "size,color,fruit\nbig,red,apple\n",
		"invalid value":   "size,color,fruit\n1,green,apple\n",
		"ragged":          "size,color,fruit\n1,red\n",
	} {
		_, err := ReadDataset(strings.NewReader(input), testSchema(t))
		assert.Error(t, err, name)
	}
}

func TestReadMatrixIgnoresClass(t *testing.T) {
	s := testSchema(t)
	m, err := ReadMatrix(strings.NewReader("size,color\n1,red\n2,blue\n"), s)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	m, err = ReadMatrix(strings.NewReader("size,color,fruit\n1,red,apple\n"), s)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

// TestReadBySampleStops verifies reading stops when the lambda returns false
func TestReadBySampleStops(t *testing.T) {
	s := testSchema(t)
	var classes []string
	err := ReadBySample(strings.NewReader("size,color,fruit\n1,red,a\n2,red,b\n3,red,c\n"), s, func(i int, sample Sample) (bool, error) {
		classes = append(classes, sample.Class)
		return i < 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, classes)
}

// TestWriteDatasetReadBack verifies written datasets read back unchanged
func TestWriteDatasetReadBack(t *testing.T) {
	s := testSchema(t)
	d, err := ReadDataset(strings.NewReader("size,color,fruit\n3,red,apple\n0.25,blue,plum\n"), s)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteDataset(context.Background(), &buf, d, s))
	assert.Equal(t, "size,color,fruit\n3,red,apple\n0.25,blue,plum\n", buf.String())
	back, err := ReadDataset(&buf, s)
	require.NoError(t, err)
	assert.Equal(t, d.X().Rows(), back.X().Rows())
	assert.Equal(t, d.Y(), back.Y())
}

func TestWriterCount(t *testing.T) {
	s := testSchema(t)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, s)
	require.NoError(t, err)
	n, err := w.Write(context.Background(), []Sample{
		{Row: []feature.Value{feature.Number(1), feature.Category("red")}, Class: "apple"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, w.Count())
	require.NoError(t, w.Flush())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err = w.Write(ctx, []Sample{{Row: []feature.Value{feature.Number(1), feature.Category("red")}, Class: "apple"}})
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestReadDatasetFromFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("size,color,fruit\n1,red,apple\n"), 0o600))
	d, err := ReadDatasetFromFilePath(path, testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	_, err = ReadDatasetFromFilePath(filepath.Join(t.TempDir(), "missing.csv"), testSchema(t))
	assert.Error(t, err)
}
