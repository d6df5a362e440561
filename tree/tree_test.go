package tree

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFeatures = []feature.Feature{
	feature.NewNumericFeature("size"),
	feature.NewCategoricalFeature("color", nil),
}

// testNodes returns a tree sending sizes above 2 to a test on color
func testNodes() []Node {
	return []Node{
		{Label: 0, Split: &feature.Split{Column: 0, Threshold: feature.Number(2)}, Left: 1, Right: 2, Weight: 10, Impurity: 0.6},
		{Label: 0, Left: NoNode, Right: NoNode, Weight: 4},
		{Label: 1, Split: &feature.Split{Column: 1, Threshold: feature.Category("red")}, Left: 3, Right: 4, Weight: 6, Impurity: 0.5},
		{Label: 1, Left: NoNode, Right: NoNode, Weight: 3},
		{Label: 2, Left: NoNode, Right: NoNode, Weight: 3},
	}
}

func testTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := New(testNodes(), 0, 3, testFeatures, []string{"small", "big", "big red"})
	require.NoError(t, err)
	return tr
}

func row(size float64, color string) []feature.Value {
	return []feature.Value{feature.Number(size), feature.Category(color)}
}

func TestNewAccessors(t *testing.T) {
	tr := testTree(t)
	assert.Equal(t, NodeID(0), tr.Root())
	assert.Equal(t, 5, tr.Len())
	assert.Equal(t, 3, tr.Classes())
	assert.Equal(t, 2, tr.Height())
	assert.Equal(t, testFeatures, tr.Features())
	assert.Equal(t, "big red", tr.ClassName(2))
	assert.Equal(t, "-1", tr.ClassName(NoLabel))
	assert.True(t, tr.Node(1).IsLeaf())
	assert.False(t, tr.Node(2).IsLeaf())
}

// TestNewRejectsInvalidTrees verifies malformed arenas are rejected with ErrInvalidTree
func TestNewRejectsInvalidTrees(t *testing.T) {
	cases := map[string]func(nodes []Node) ([]Node, NodeID){
		"no nodes":            func(nodes []Node) ([]Node, NodeID) { return nil, 0 },
		"root out of range":   func(nodes []Node) ([]Node, NodeID) { return nodes, 5 },
		"label out of range":  func(nodes []Node) ([]Node, NodeID) { nodes[3].Label = 3; return nodes, 0 },
		"leaf with child":     func(nodes []Node) ([]Node, NodeID) { nodes[1].Left = 3; return nodes, 0 },
		"decision no child":   func(nodes []Node) ([]Node, NodeID) { nodes[2].Right = NoNode; return nodes, 0 },
		"child out of range":  func(nodes []Node) ([]Node, NodeID) { nodes[2].Right = 9; return nodes, 0 },
		"shared child":        func(nodes []Node) ([]Node, NodeID) { nodes[2].Right = 1; return nodes, 0 },
		"root with parent":    func(nodes []Node) ([]Node, NodeID) { nodes[2].Left = 0; return nodes, 0 },
		"kind mismatch":       func(nodes []Node) ([]Node, NodeID) { nodes[0].Split.Column = 1; return nodes, 0 },
		"column out of range": func(nodes []Node) ([]Node, NodeID) { nodes[0].Split.Column = 2; return nodes, 0 },
		"threshold no kind": func(nodes []Node) ([]Node, NodeID) {
			nodes[0].Split.Threshold = feature.Value{}
			return nodes, 0
		},
		"unreachable cycle": func(nodes []Node) ([]Node, NodeID) {
			nodes = append(nodes, Node{Label: 0, Split: &feature.Split{Column: 0, Threshold: feature.Number(1)}, Left: 6, Right: 7},
				Node{Label: 0, Split: &feature.Split{Column: 0, Threshold: feature.Number(1)}, Left: 5, Right: 8},
				Node{Label: 0, Left: NoNode, Right: NoNode},
				Node{Label: 0, Left: NoNode, Right: NoNode})
			return nodes, 0
		},
	}
	for name, mutate := range cases {
		nodes, root := mutate(testNodes())
		_, err := New(nodes, root, 3, testFeatures, nil)
		assert.ErrorIs(t, err, ErrInvalidTree, name)
	}
}

// TestPredict verifies rows follow the split polarity down to a leaf
func TestPredict(t *testing.T) {
	tr := testTree(t)
	for _, c := range []struct {
		row   []feature.Value
		label int
		path  []NodeID
	}{
		{row(1, "red"), 0, []NodeID{0, 1}},
		{row(2, "red"), 0, []NodeID{0, 1}},
		{row(3, "blue"), 1, []NodeID{0, 2, 3}},
		{row(3, "red"), 2, []NodeID{0, 2, 4}},
		{row(3, "never seen"), 1, []NodeID{0, 2, 3}},
	} {
		label, err := tr.Predict(c.row)
		require.NoError(t, err)
		assert.Equal(t, c.label, label)
		path, err := tr.PredictPath(c.row)
		require.NoError(t, err)
		assert.Equal(t, c.path, path)
		assert.LessOrEqual(t, len(path)-1, tr.Height())
	}
}

func TestPredictRowShape(t *testing.T) {
	tr := testTree(t)
	_, err := tr.Predict([]feature.Value{feature.Number(1)})
	assert.ErrorIs(t, err, ErrRowShape)
	_, err = tr.Predict([]feature.Value{feature.Category("1"), feature.Category("red")})
	assert.ErrorIs(t, err, ErrRowShape)
	var nilTree *Tree
	_, err = nilTree.PredictPath(row(1, "red"))
	assert.Error(t, err)
}

func TestPredictMany(t *testing.T) {
	tr := testTree(t)
	x, err := dataset.NewMatrix(testFeatures, [][]feature.Value{row(1, "a"), row(5, "red"), row(5, "blue")})
	require.NoError(t, err)
	labels, err := tr.PredictMany(x)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, labels)
}

type mapSample map[int]feature.Value

func (ms mapSample) ValueFor(ctx context.Context, column int) (feature.Value, error) {
	v, ok := ms[column]
	if !ok {
		return feature.Value{}, errors.New("value not available")
	}
	return v, nil
}

// TestPredictSample verifies only the columns tested on the path are asked for
func TestPredictSample(t *testing.T) {
	tr := testTree(t)
	label, path, err := tr.PredictSample(context.Background(), mapSample{0: feature.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.Equal(t, []NodeID{0, 1}, path)
	_, _, err = tr.PredictSample(context.Background(), mapSample{0: feature.Number(3)})
	assert.Error(t, err)
	_, _, err = tr.PredictSample(context.Background(), mapSample{0: feature.Category("3")})
	assert.ErrorIs(t, err, ErrRowShape)
}

func TestSingleLeafTree(t *testing.T) {
	tr, err := New([]Node{{Label: NoLabel, Left: NoNode, Right: NoNode}}, 0, 0, testFeatures, nil)
	require.NoError(t, err)
	label, err := tr.Predict(row(1, "red"))
	require.NoError(t, err)
	assert.Equal(t, NoLabel, label)
	assert.Equal(t, 0, tr.Height())
}

// TestTraverse verifies both traversal orders visit left subtrees first
func TestTraverse(t *testing.T) {
	tr := testTree(t)
	var ids []NodeID
	collect := func(ctx context.Context, id NodeID, n Node) error {
		ids = append(ids, id)
		return nil
	}
	require.NoError(t, tr.Traverse(context.Background(), false, collect))
	assert.Equal(t, []NodeID{0, 1, 2, 3, 4}, ids)
	ids = nil
	require.NoError(t, tr.Traverse(context.Background(), true, collect))
	assert.Equal(t, []NodeID{1, 3, 4, 2, 0}, ids)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tr.Traverse(ctx, false, collect))
	stop := errors.New("stop")
	assert.ErrorIs(t, tr.Traverse(context.Background(), false, func(context.Context, NodeID, Node) error { return stop }), stop)
}

func TestString(t *testing.T) {
	s := testTree(t).String()
	assert.Contains(t, s, "{ not size > 2 }")
	assert.Contains(t, s, "{ color is red }")
	assert.Contains(t, s, "{ big red (samples: 3, gini: 0.0000) }")
	assert.True(t, strings.HasPrefix(s, "[0]\n"))
}

// TestTest verifies accuracy and confusion counts against known labels
func TestTest(t *testing.T) {
	tr := testTree(t)
	x, err := dataset.NewMatrix(testFeatures, [][]feature.Value{row(1, "a"), row(5, "red"), row(5, "blue"), row(1, "red")})
	require.NoError(t, err)
	d, err := dataset.New(x, dataset.Labels{0, 2, 2, 1})
	require.NoError(t, err)
	e, err := tr.Test(d)
	require.NoError(t, err)
	assert.Equal(t, 4, e.Count)
	assert.InDelta(t, 0.5, e.Accuracy, 1e-12)
	assert.Equal(t, [][]int{{1, 0, 0}, {1, 0, 0}, {0, 1, 1}}, e.Confusion)
	assert.Equal(t, 0, e.Unlabeled)
}

func TestWriteDOT(t *testing.T) {
	var b strings.Builder
	require.NoError(t, testTree(t).WriteDOT(&b))
	dot := b.String()
	assert.Contains(t, dot, "digraph G")
	assert.Contains(t, dot, "size &gt; 2")
	assert.Contains(t, dot, "class = big red")
	assert.Contains(t, dot, "shape=box")
	assert.Equal(t, 2, strings.Count(dot, "label=yes"))
	assert.Equal(t, 2, strings.Count(dot, "label=no"))
}
