package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

/*
Queue holds the tasks of a growing tree. A worker pulls a task, branches
its node out, pushes the tasks of the children and completes the task,
or drops it if it could not finish. A tree is grown once its queue has
no pending nor running tasks.
*/
type Queue interface {
	// Push adds a pending task.
	Push(context.Context, *Task) error
	// Pull marks a pending task as running and returns it with a
	// context for its processing and the function releasing that
	// context. It returns only nil values if no task is pending.
	Pull(context.Context) (*Task, context.Context, context.CancelFunc, error)
	// Drop makes the running task with the given ID pending again.
	// Dropping a completed or unknown task does nothing.
	Drop(context.Context, string) error
	// Complete removes the running task with the given ID.
	Complete(context.Context, string) error
	// Count returns the number of pending and running tasks.
	Count(context.Context) (int, int, error)
	// Stop releases the resources of the queue and cancels the
	// contexts of pulled tasks.
	Stop(context.Context) error
}

// memQueue keeps pending tasks in push order and running tasks by ID
type memQueue struct {
	mu      sync.Mutex
	pending []*Task
	running map[string]*Task
	stopped context.Context
	stop    context.CancelFunc
}

// New returns a queue backed only by the process memory.
// Tasks are pulled in the order they were pushed.
func New() Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &memQueue{
		running: make(map[string]*Task),
		stopped: ctx,
		stop:    cancel,
	}
}

/*
WaitFor polls the queue every interval until it has no pending nor
running tasks. It returns an error if the queue cannot be counted or
the context is done first. Processes seeding a tree use it to wait for
the workers to finish growing it.
*/
func WaitFor(ctx context.Context, q Queue, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pending, running, err := q.Count(ctx)
		if err != nil {
			return err
		}
		if pending+running == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (mq *memQueue) Push(ctx context.Context, t *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mq.stopped.Err() != nil {
		return fmt.Errorf("pushing task %s: queue stopped", t.ID())
	}
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.pending = append(mq.pending, t)
	return nil
}

func (mq *memQueue) Pull(ctx context.Context) (*Task, context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if len(mq.pending) == 0 {
		return nil, nil, nil, nil
	}
	t := mq.pending[0]
	mq.pending[0] = nil
	mq.pending = mq.pending[1:]
	mq.running[t.ID()] = t
	tctx, cancel := context.WithCancel(mq.stopped)
	return t, tctx, cancel, nil
}

func (mq *memQueue) Drop(ctx context.Context, id string) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if t, ok := mq.running[id]; ok {
		delete(mq.running, id)
		mq.pending = append(mq.pending, t)
	}
	return nil
}

func (mq *memQueue) Complete(ctx context.Context, id string) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	delete(mq.running, id)
	return nil
}

func (mq *memQueue) Count(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return len(mq.pending), len(mq.running), nil
}

// Stop cancels the contexts of the pulled tasks. Tasks cannot be pushed
// afterwards.
func (mq *memQueue) Stop(ctx context.Context) error {
	mq.stop()
	return nil
}

func (mq *memQueue) String() string {
	p, r, _ := mq.Count(context.Background())
	return fmt.Sprintf("{Queue pending: %d running: %d}", p, r)
}
