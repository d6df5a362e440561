/*
Package cart grows binary classification trees from labeled tabular data
with the CART algorithm: every node is split on the column and threshold
minimizing the weighted Gini impurity of its two sides, until no split
leaves more than one row on both sides.

Growth is organized as tasks on a queue.Queue, one per node, processed by
workers that record nodes on a tree.NodeStore. Grow runs it all in
process, while Seed, BranchOut and Work allow growing a tree with workers
on many processes sharing a queue and a node store.
*/
package cart

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	"github.com/pbanos/cart/queue"
	"github.com/pbanos/cart/tree"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultEmptyQueueSleep = time.Millisecond

/*
TrainingContext holds what every node of a growing tree needs to know
about the whole training data. It is computed once and never modified.
*/
type TrainingContext struct {
	// Classes is the number of classes labels are taken from
	Classes int
	// Logger receives the growth events, nil to discard them
	Logger *zap.Logger
}

// NewTrainingContext returns the training context for the given labels,
// with as many classes as the greatest label plus one.
func NewTrainingContext(y dataset.Labels) TrainingContext {
	return TrainingContext{Classes: y.Classes()}
}

func (tc TrainingContext) logger() *zap.Logger {
	if tc.Logger == nil {
		return zap.NewNop()
	}
	return tc.Logger
}

type options struct {
	logger          *zap.Logger
	classes         int
	classNames      []string
	workers         int
	emptyQueueSleep time.Duration
}

// Option configures Grow
type Option func(*options)

// WithLogger makes Grow log on the given logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClasses sets the number of classes instead of deriving it from the
// labels. It must be greater than every label.
func WithClasses(n int) Option {
	return func(o *options) {
		o.classes = n
	}
}

// WithClassNames sets the names of the classes on the grown tree
func WithClassNames(names []string) Option {
	return func(o *options) {
		o.classNames = names
	}
}

// WithWorkers sets the number of goroutines branching out nodes,
// runtime.NumCPU() by default.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

/*
Grow takes a context, a dataset and options and returns the tree grown on
the dataset or an error if the context is done before growth is over or
the options do not fit the dataset.

The root node is labeled with the majority class of the dataset (the lowest
class among tied ones, NoLabel for an empty dataset). If FindBestSplit finds
a split leaving more than one row on both sides, the node gets that split
and its children are grown on each side. Otherwise the node is a leaf.

The returned tree does not depend on the number of workers.
*/
func Grow(ctx context.Context, d *dataset.Dataset, opts ...Option) (t *tree.Tree, err error) {
	o := &options{
		logger:          zap.NewNop(),
		workers:         runtime.NumCPU(),
		emptyQueueSleep: defaultEmptyQueueSleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		return nil, fmt.Errorf("growing tree: %d workers", o.workers)
	}
	tc := NewTrainingContext(d.Y())
	if o.classes != 0 {
		if o.classes < tc.Classes {
			return nil, fmt.Errorf("growing tree: %d classes for labels up to %d", o.classes, tc.Classes-1)
		}
		tc.Classes = o.classes
	}
	tc.Logger = o.logger
	ctx, span := tracer.Start(ctx, "cart.Grow")
	defer span.End()
	span.SetAttributes(
		attribute.Int("rows", d.Len()),
		attribute.Int("classes", tc.Classes),
		attribute.Int("workers", o.workers),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "growth failed")
		}
	}()
	start := time.Now()
	q := queue.New()
	defer q.Stop(context.Background())
	ns := tree.NewMemoryNodeStore()
	defer ns.Close(context.Background())
	rootID, err := Seed(ctx, d, q, ns)
	if err != nil {
		return nil, fmt.Errorf("seeding tree: %w", err)
	}
	o.logger.Info("growing tree",
		zap.Int("rows", d.Len()),
		zap.Int("columns", d.X().Width()),
		zap.Int("classes", tc.Classes),
		zap.Int("workers", o.workers),
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			return Work(gctx, tc, q, ns, o.emptyQueueSleep)
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, fmt.Errorf("growing tree: %w", err)
	}
	t, err = tree.Compile(ctx, ns, rootID, tc.Classes, d.Features(), o.classNames)
	if err != nil {
		return nil, fmt.Errorf("compiling tree: %w", err)
	}
	o.logger.Info("tree grown",
		zap.Int("nodes", t.Len()),
		zap.Int("height", t.Height()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return t, nil
}

// Seed takes a context, a dataset, a queue and a node store
// and sets everything up so that workers that consume from
// the queue afterwards grow a tree on the dataset.
// Specifically it will create the root node of the tree on the
// node store and push a task to branch it out on the queue.
// The function returns the ID of the root node, from which
// the tree can be compiled once grown, or an error if the node
// cannot be created on the store, or the task pushed to the
// queue (in the amount of time allowed by the given context).
func Seed(ctx context.Context, d *dataset.Dataset, q queue.Queue, ns tree.NodeStore) (string, error) {
	n := &tree.Record{Label: tree.NoLabel}
	err := ns.Create(ctx, n)
	if err != nil {
		return "", err
	}
	err = q.Push(ctx, &queue.Task{Node: n, Dataset: d})
	if err != nil {
		ns.Delete(ctx, n)
		return "", err
	}
	return n.ID, nil
}

// BranchOut takes a context, a task and the training context,
// develops the node in the task using the task's dataset and
// returns the tasks to develop the resulting children nodes or
// an error. The node is stored on the node store in any case.
func BranchOut(ctx context.Context, task *queue.Task, tc TrainingContext, ns tree.NodeStore) (tasks []*queue.Task, e error) {
	ctx, span := tracer.Start(ctx, "cart.BranchOut")
	defer span.End()
	n, d := task.Node, task.Dataset
	y := d.Y()
	n.Label = y.Majority(tc.Classes)
	n.Weight = d.Len()
	n.Impurity = y.Impurity(tc.Classes)
	n.Split = nil
	n.LeftID, n.RightID = "", ""
	defer func() {
		err := ns.Store(ctx, n)
		if e == nil {
			e = err
		}
	}()
	span.SetAttributes(attribute.String("node", n.ID), attribute.Int("rows", n.Weight))
	log := tc.logger().With(zap.String("node", n.ID), zap.Int("rows", n.Weight))
	s, cost, err := FindBestSplit(ctx, d, tc.Classes)
	if err != nil {
		return nil, err
	}
	if s == nil {
		grownNodes.WithLabelValues(leafKind).Inc()
		log.Debug("leaf: no split available", zap.Int("label", n.Label))
		return nil, nil
	}
	left, right := d.Partition(*s)
	if left.Len() <= 1 || right.Len() <= 1 {
		grownNodes.WithLabelValues(leafKind).Inc()
		log.Debug("leaf: split leaves a side with at most one row",
			zap.Stringer("split", s),
			zap.Int("left", left.Len()),
			zap.Int("right", right.Len()),
			zap.Int("label", n.Label),
		)
		return nil, nil
	}
	tasks = make([]*queue.Task, 0, 2)
	for _, side := range []*dataset.Dataset{left, right} {
		child := &tree.Record{ParentID: n.ID, Label: tree.NoLabel}
		err = ns.Create(ctx, child)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &queue.Task{Node: child, Dataset: side})
	}
	n.Split = s
	n.LeftID, n.RightID = tasks[0].ID(), tasks[1].ID()
	grownNodes.WithLabelValues(decisionKind).Inc()
	log.Debug("branched out",
		zap.Stringer("split", s),
		zap.Float64("cost", cost),
		zap.Int("left", left.Len()),
		zap.Int("right", right.Len()),
	)
	return tasks, nil
}

// Work takes a context, the training context, a queue, a node
// store and an emptyQueueSleep duration and enters a loop in
// which it:
//   - pulls a task for the queue,
//   - branches its node out into new subnodes using BranchOut
//   - pushes the tasks for the new subnodes into the queue
//   - marks the task as completed on the queue
//
// If at some point no task can be pulled from the queue and
// the sum of tasks running and pending on the queue is 0, the
// worker ends returning nil. If no task can be pulled but the
// sum is not 0, then the worker will sleep for the given
// emptyQueueSleep duration and then retry.
//
// Work will return a non-nil error if the given context
// times out or is cancelled, if BranchOut returns a non-nil
// error or if an operation with the given queue returns a
// non-nil error.
func Work(ctx context.Context, tc TrainingContext, q queue.Queue, ns tree.NodeStore, emptyQueueSleep time.Duration) error {
	for {
		task, tctx, tcf, err := q.Pull(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			p, r, err := q.Count(ctx)
			if err != nil {
				return err
			}
			if p+r == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyQueueSleep):
			}
			continue
		}
		mctx, cancel := mergeCtxCancel(tctx, ctx)
		err = workTask(mctx, task, tc, q, ns)
		cancel()
		tcf()
		if err != nil {
			return err
		}
		err = ctx.Err()
		if err != nil {
			return err
		}
	}
}

func workTask(ctx context.Context, task *queue.Task, tc TrainingContext, q queue.Queue, ns tree.NodeStore) error {
	defer func() {
		q.Drop(ctx, task.ID())
	}()
	tasks, err := BranchOut(ctx, task, tc, ns)
	if err != nil {
		return err
	}
	for _, st := range tasks {
		err = q.Push(ctx, st)
		if err != nil {
			return err
		}
	}
	return q.Complete(ctx, task.ID())
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}

// Classify is a convenience wrapper growing a tree on rows and labels
// given as plain slices, with column kinds taken from the first row.
func Classify(ctx context.Context, rows [][]feature.Value, labels []int, opts ...Option) (*tree.Tree, error) {
	x, err := dataset.FromRows(rows)
	if err != nil {
		return nil, err
	}
	d, err := dataset.New(x, labels)
	if err != nil {
		return nil, err
	}
	return Grow(ctx, d, opts...)
}
