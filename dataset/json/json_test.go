package json

import (
	"context"
	"testing"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	featurejson "github.com/pbanos/cart/feature/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rootDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	x, err := dataset.FromRows([][]feature.Value{
		{feature.Number(1), feature.Category("a")},
		{feature.Number(2), feature.Category("b")},
		{feature.Number(3), feature.Category("a")},
		{feature.Number(4), feature.Category("b")},
	})
	require.NoError(t, err)
	d, err := dataset.New(x, dataset.Labels{0, 1, 0, 1})
	require.NoError(t, err)
	return d
}

// TestEncodeDecodePartition verifies a partitioned dataset is rebuilt from its root and criteria
func TestEncodeDecodePartition(t *testing.T) {
	ctx := context.Background()
	root := rootDataset(t)
	ded := New(root, "data.csv", featurejson.NewCriteriaEncodeDecoder(root.Features()))
	_, right := root.Partition(feature.Split{Column: 0, Threshold: feature.Number(1)})
	left, _ := right.Partition(feature.Split{Column: 1, Threshold: feature.Category("b")})
	data, err := ded.Encode(ctx, left)
	require.NoError(t, err)
	back, err := ded.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, left.X().Rows(), back.X().Rows())
	assert.Equal(t, left.Y(), back.Y())
	assert.Equal(t, left.Criteria(), back.Criteria())

	data, err = ded.Encode(ctx, root)
	require.NoError(t, err)
	back, err = ded.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, root, back)
}

func TestDecodeRejectsOtherRoot(t *testing.T) {
	ctx := context.Background()
	root := rootDataset(t)
	ced := featurejson.NewCriteriaEncodeDecoder(root.Features())
	data, err := New(root, "a.csv", ced).Encode(ctx, root)
	require.NoError(t, err)
	_, err = New(root, "b.csv", ced).Decode(ctx, data)
	assert.Error(t, err)
	_, err = New(root, "a.csv", ced).Decode(ctx, []byte("{"))
	assert.Error(t, err)
}

// TestDecodeRejectsDifferentRows verifies a root dataset yielding another number of rows is detected
func TestDecodeRejectsDifferentRows(t *testing.T) {
	ctx := context.Background()
	root := rootDataset(t)
	ced := featurejson.NewCriteriaEncodeDecoder(root.Features())
	_, right := root.Partition(feature.Split{Column: 0, Threshold: feature.Number(2)})
	data, err := New(root, "data.csv", ced).Encode(ctx, right)
	require.NoError(t, err)

	x, err := dataset.FromRows([][]feature.Value{
		{feature.Number(1), feature.Category("a")},
		{feature.Number(5), feature.Category("b")},
	})
	require.NoError(t, err)
	other, err := dataset.New(x, dataset.Labels{0, 1})
	require.NoError(t, err)
	_, err = New(other, "data.csv", ced).Decode(ctx, data)
	assert.Error(t, err)
}
