package sqldataset

import (
	"context"
	"path/filepath"
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
		feature.NewCategoricalFeature("color", nil),
		feature.NewCategoricalFeature("fruit", []string{"apple", "plum"}),
	}, "fruit")
	require.NoError(t, err)
	return s
}

// TestWriteLoadSQLite verifies samples written on an SQLite3 file load back in insertion order
func TestWriteLoadSQLite(t *testing.T) {
	ctx := context.Background()
	s := testSchema(t)
	var rows [][]feature.Value
	var labels dataset.Labels
	for i := 0; i < 2*MaxSampleInsertionsPerStatement+3; i++ {
		color := "red"
		if i%3 == 0 {
			color = "blue"
		}
		rows = append(rows, []feature.Value{feature.Number(float64(i) / 4), feature.Category(color)})
		labels = append(labels, i%2)
	}
	x, err := dataset.NewMatrix(s.Columns(), rows)
	require.NoError(t, err)
	d, err := dataset.New(x, labels)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "samples.db")
	st, err := Open(path, s)
	require.NoError(t, err)
	n, err := st.Write(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, d.Len(), n)
	require.NoError(t, st.Close())

	st, err = Open(path, testSchema(t))
	require.NoError(t, err)
	defer st.Close()
	back, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, d.X().Rows(), back.X().Rows())
	assert.Equal(t, d.Y(), back.Y())
}

func TestOpenRejectsColumnNames(t *testing.T) {
	for _, name := range []string{"id", `a"b`} {
		s, err := dataset.NewSchema([]feature.Feature{
			feature.NewNumericFeature(name),
			feature.NewCategoricalFeature("class", nil),
		}, "class")
		require.NoError(t, err)
		_, err = Open(filepath.Join(t.TempDir(), "x.db"), s)
		assert.Error(t, err, name)
	}
}

func TestIsPostgresURL(t *testing.T) {
	assert.True(t, IsPostgresURL("postgres://localhost/db"))
	assert.True(t, IsPostgresURL("postgresql://localhost/db"))
	assert.False(t, IsPostgresURL("data.db"))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", (&Store{dialect: sqlite3}).placeholder(3))
	assert.Equal(t, "$3", (&Store{dialect: postgre}).placeholder(3))
}
