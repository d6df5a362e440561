package cart

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	"github.com/pbanos/cart/queue"
	"github.com/pbanos/cart/tree"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// assertLeafInvariant verifies every node has both children and a split, or none of them
func assertLeafInvariant(t *testing.T, tr *tree.Tree) {
	t.Helper()
	for i := 0; i < tr.Len(); i++ {
		n := tr.Node(tree.NodeID(i))
		assert.Equal(t, n.Left == tree.NoNode, n.Right == tree.NoNode, "node %d", i)
		assert.Equal(t, n.Left == tree.NoNode, n.Split == nil, "node %d", i)
	}
}

func assertSameTree(t *testing.T, want, got *tree.Tree) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		assert.Equal(t, want.Node(tree.NodeID(i)), got.Node(tree.NodeID(i)), "node %d", i)
	}
}

// TestGrowPerfectSeparation verifies a separable column yields a root with two pure leaves
func TestGrowPerfectSeparation(t *testing.T) {
	d := numericDataset(t, []float64{1, 2, 3, 10, 11, 12}, dataset.Labels{0, 0, 0, 1, 1, 1})
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 3, tr.Len())
	root := tr.Node(tr.Root())
	require.NotNil(t, root.Split)
	assert.Equal(t, feature.Number(3), root.Split.Threshold)
	assert.Equal(t, 0, tr.Node(root.Left).Label)
	assert.Equal(t, 1, tr.Node(root.Right).Label)
	assert.True(t, tr.Node(root.Left).IsLeaf())
	assert.True(t, tr.Node(root.Right).IsLeaf())
	assert.Equal(t, 0.0, tr.Node(root.Left).Impurity)
	assert.Equal(t, 6, root.Weight)
	assert.InDelta(t, 0.5, root.Impurity, 1e-12)
	for i, x := range []float64{-5, 3, 3.5, 100} {
		label, err := tr.Predict([]feature.Value{feature.Number(x)})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 1, 1}[i], label, "x = %v", x)
	}
	assertLeafInvariant(t, tr)
}

// TestGrowTwoRowsStaysLeaf verifies a split leaving single rows is discarded
func TestGrowTwoRowsStaysLeaf(t *testing.T) {
	d := numericDataset(t, []float64{5, 7}, dataset.Labels{0, 1})
	s, _, err := FindBestSplit(context.Background(), d, 2)
	require.NoError(t, err)
	require.NotNil(t, s)
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	root := tr.Node(tr.Root())
	assert.Nil(t, root.Split)
	assert.Equal(t, 0, root.Label)
	assertLeafInvariant(t, tr)
}

// TestGrowCategorical verifies unseen categories fall left on grown trees
func TestGrowCategorical(t *testing.T) {
	d := categoricalDataset(t, []string{"cat", "dog", "cat", "dog"}, dataset.Labels{0, 1, 0, 1})
	tr, err := Grow(context.Background(), d, WithClassNames([]string{"meows", "barks"}))
	require.NoError(t, err)
	require.Equal(t, 3, tr.Len())
	root := tr.Node(tr.Root())
	require.NotNil(t, root.Split)
	assert.Equal(t, feature.Category("cat"), root.Split.Threshold)
	for value, want := range map[string]int{"cat": 0, "dog": 1, "bird": 1} {
		label, err := tr.Predict([]feature.Value{feature.Category(value)})
		require.NoError(t, err)
		assert.Equal(t, want, label, value)
	}
	assert.Equal(t, "barks", tr.ClassName(1))
}

// TestGrowSingleRow verifies a single row grows a single leaf with its class
func TestGrowSingleRow(t *testing.T) {
	d := numericDataset(t, []float64{4}, dataset.Labels{2})
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, 2, tr.Node(tr.Root()).Label)
	assert.Equal(t, 3, tr.Classes())
}

func TestGrowEmptyDataset(t *testing.T) {
	d := numericDataset(t, nil, dataset.Labels{})
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, tree.NoLabel, tr.Node(tr.Root()).Label)
	label, err := tr.Predict([]feature.Value{feature.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, tree.NoLabel, label)
}

// TestGrowIdenticalRows verifies rows no split can separate grow a single leaf
func TestGrowIdenticalRows(t *testing.T) {
	d := numericDataset(t, []float64{1, 1, 1, 1, 1}, dataset.Labels{1, 0, 1, 0, 1})
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, 1, tr.Node(tr.Root()).Label)
}

func TestGrowSameLabels(t *testing.T) {
	d := numericDataset(t, []float64{1, 2, 3, 4, 5, 6}, dataset.Labels{1, 1, 1, 1, 1, 1})
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	for _, x := range []float64{0, 3, 10} {
		label, err := tr.Predict([]feature.Value{feature.Number(x)})
		require.NoError(t, err)
		assert.Equal(t, 1, label)
	}
	assertLeafInvariant(t, tr)
}

// TestGrowDeterministicAcrossWorkers verifies the tree does not depend on the number of workers
func TestGrowDeterministicAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	d := randomDataset(t, rand.New(rand.NewSource(5)), 200, 3)
	want, err := Grow(ctx, d, WithWorkers(1))
	require.NoError(t, err)
	assertLeafInvariant(t, want)
	for _, workers := range []int{2, 8} {
		got, err := Grow(ctx, d, WithWorkers(workers))
		require.NoError(t, err)
		assertSameTree(t, want, got)
	}
	again, err := Grow(ctx, d, WithWorkers(1))
	require.NoError(t, err)
	assertSameTree(t, want, again)
}

// TestGrowPredictionsRespectHeight verifies every prediction path fits within the tree height
func TestGrowPredictionsRespectHeight(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	d := randomDataset(t, rnd, 150, 4)
	tr, err := Grow(context.Background(), d, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	probe := randomDataset(t, rnd, 100, 4)
	for _, row := range probe.X().Rows() {
		path, err := tr.PredictPath(row)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(path)-1, tr.Height())
		assert.True(t, tr.Node(path[len(path)-1]).IsLeaf())
	}
}

// TestGrowFitsTrainingData verifies rows with distinct features are mostly classified as labeled
func TestGrowFitsTrainingData(t *testing.T) {
	xs := make([]float64, 40)
	y := make(dataset.Labels, 40)
	for i := range xs {
		xs[i] = float64(i)
		y[i] = (i / 5) % 2
	}
	d := numericDataset(t, xs, y)
	tr, err := Grow(context.Background(), d)
	require.NoError(t, err)
	e, err := tr.Test(d)
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Accuracy)
}

func TestGrowOptions(t *testing.T) {
	ctx := context.Background()
	d := numericDataset(t, []float64{1, 2, 3}, dataset.Labels{0, 2, 1})
	_, err := Grow(ctx, d, WithClasses(2))
	assert.Error(t, err)
	tr, err := Grow(ctx, d, WithClasses(5))
	require.NoError(t, err)
	assert.Equal(t, 5, tr.Classes())
	_, err = Grow(ctx, d, WithWorkers(0))
	assert.Error(t, err)
}

func TestGrowCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Grow(ctx, randomDataset(t, rand.New(rand.NewSource(2)), 50, 2))
	assert.Error(t, err)
}

// TestBranchOut verifies decision nodes get child tasks and records on the store
func TestBranchOut(t *testing.T) {
	ctx := context.Background()
	d := numericDataset(t, []float64{1, 2, 3, 10, 11, 12}, dataset.Labels{0, 0, 0, 1, 1, 1})
	q := queue.New()
	defer q.Stop(ctx)
	ns := tree.NewMemoryNodeStore()
	rootID, err := Seed(ctx, d, q, ns)
	require.NoError(t, err)
	task, _, cancel, err := q.Pull(ctx)
	require.NoError(t, err)
	defer cancel()
	require.Equal(t, rootID, task.ID())

	decisions := testutil.ToFloat64(grownNodes.WithLabelValues(decisionKind))
	tasks, err := BranchOut(ctx, task, NewTrainingContext(d.Y()), ns)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, decisions+1, testutil.ToFloat64(grownNodes.WithLabelValues(decisionKind)))
	assert.Equal(t, dataset.Labels{0, 0, 0}, tasks[0].Dataset.Y())
	assert.Equal(t, dataset.Labels{1, 1, 1}, tasks[1].Dataset.Y())

	root, err := ns.Get(ctx, rootID)
	require.NoError(t, err)
	require.NotNil(t, root.Split)
	assert.Equal(t, tasks[0].ID(), root.LeftID)
	assert.Equal(t, tasks[1].ID(), root.RightID)
	assert.Equal(t, 6, root.Weight)
	for _, st := range tasks {
		child, err := ns.Get(ctx, st.ID())
		require.NoError(t, err)
		assert.Equal(t, rootID, child.ParentID)
	}

	leaves := testutil.ToFloat64(grownNodes.WithLabelValues(leafKind))
	sub, err := BranchOut(ctx, tasks[0], NewTrainingContext(d.Y()), ns)
	require.NoError(t, err)
	assert.Empty(t, sub)
	assert.Equal(t, leaves+1, testutil.ToFloat64(grownNodes.WithLabelValues(leafKind)))
}

// TestWorkDrainsQueue verifies workers stop once every task is processed
func TestWorkDrainsQueue(t *testing.T) {
	ctx := context.Background()
	d := randomDataset(t, rand.New(rand.NewSource(8)), 80, 3)
	q := queue.New()
	defer q.Stop(ctx)
	ns := tree.NewMemoryNodeStore()
	rootID, err := Seed(ctx, d, q, ns)
	require.NoError(t, err)
	tc := NewTrainingContext(d.Y())
	require.NoError(t, Work(ctx, tc, q, ns, defaultEmptyQueueSleep))
	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending+running)
	tr, err := tree.Compile(ctx, ns, rootID, tc.Classes, d.Features(), nil)
	require.NoError(t, err)
	want, err := Grow(ctx, d)
	require.NoError(t, err)
	assertSameTree(t, want, tr)
}

func TestClassify(t *testing.T) {
	tr, err := Classify(context.Background(), [][]feature.Value{
		{feature.Number(1), feature.Category("a")},
		{feature.Number(2), feature.Category("a")},
		{feature.Number(8), feature.Category("b")},
		{feature.Number(9), feature.Category("b")},
	}, []int{0, 0, 1, 1})
	require.NoError(t, err)
	label, err := tr.Predict([]feature.Value{feature.Number(8.5), feature.Category("b")})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	_, err = Classify(context.Background(), [][]feature.Value{{feature.Number(1)}}, []int{0, 1})
	assert.Error(t, err)
}
