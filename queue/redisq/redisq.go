/*
Package redisq provides a queue.Queue backed by redis, so that workers on
different processes can grow the same tree.

Every change of state of a task is performed by a Lua script, which redis
runs atomically, so no locks are needed between the processes sharing a
queue.
*/
package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pbanos/cart/queue"
	redis "gopkg.in/redis.v5"
)

/*
EncodeDecoder is an interface for objects
that allow encoding tasks as slices of bytes and decoding
them back to tasks. It is used to serialize tasks into a
representation to store on redis
*/
type EncodeDecoder interface {
	Encode(context.Context, *queue.Task) ([]byte, error)
	Decode(context.Context, []byte) (*queue.Task, error)
}

// KEYS: data key, pending list. ARGV: encoded task, task id.
const pushScript = `
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
    return 0
end
redis.call("RPUSH", KEYS[2], ARGV[2])
return 1
`

// KEYS: pending list, running set. ARGV: task key prefix, max run in ms.
const pullScript = `
local id = redis.call("LPOP", KEYS[1])
if not id then
    return false
end
redis.call("SADD", KEYS[2], id)
local mark = ARGV[1] .. id .. ":running"
if tonumber(ARGV[2]) > 0 then
    redis.call("SET", mark, "1", "PX", ARGV[2])
else
    redis.call("SET", mark, "1")
end
return id
`

// KEYS: running set, pending list. ARGV: task key prefix, task id.
const dropScript = `
if redis.call("SREM", KEYS[1], ARGV[2]) == 0 then
    return 0
end
redis.call("DEL", ARGV[1] .. ARGV[2] .. ":running")
redis.call("RPUSH", KEYS[2], ARGV[2])
return 1
`

// KEYS: running set. ARGV: task key prefix, task id.
const completeScript = `
if redis.call("SREM", KEYS[1], ARGV[2]) == 0 then
    return 0
end
redis.call("DEL", ARGV[1] .. ARGV[2] .. ":running", ARGV[1] .. ARGV[2] .. ":data")
return 1
`

// KEYS: running set, pending list. ARGV: task key prefix.
const requeueScript = `
local n = 0
for _, id in ipairs(redis.call("SMEMBERS", KEYS[1])) do
    if redis.call("EXISTS", ARGV[1] .. id .. ":running") == 0 then
        redis.call("SREM", KEYS[1], id)
        redis.call("RPUSH", KEYS[2], id)
        n = n + 1
    end
end
return n
`

// Both counts are taken at once so that a task moving between them
// cannot make the queue look empty.
const countScript = `return {redis.call("LLEN", KEYS[1]), redis.call("SCARD", KEYS[2])}`

type redisQ struct {
	rc         *redis.Client
	pending    string
	running    string
	taskPrefix string
	taskMaxRun time.Duration
	allTaskCtx context.Context
	allTaskCF  context.CancelFunc
	encDec     EncodeDecoder
}

/*
New returns a queue.Queue that uses the given redis client as a
backend. It uses the given id to prefix the keys used on the
redis client to keep the queue's data, which are the following:
  - id:pending is a list with the IDs of the pending tasks, pulled in
    the order they were pushed
  - id:running is a set with the IDs of the running tasks
  - id:task:task_id:data holds the task encoded with the given
    EncodeDecoder
  - id:task:task_id:running marks a pulled task as running. It expires
    after the given taskMaxRun duration, after which the task is
    considered abandoned by a failed worker and made pending again. A
    zero taskMaxRun keeps running tasks from ever being requeued.

An empty id is replaced by a random one.
The returned queue is safe for concurrent use by multiple goroutines
and processes.
*/
func New(id string, rc *redis.Client, taskMaxRun time.Duration, encDec EncodeDecoder) queue.Queue {
	if id == "" {
		id = uuid.NewString()
	}
	ctx, cf := context.WithCancel(context.Background())
	rq := &redisQ{
		rc:         rc,
		pending:    id + ":pending",
		running:    id + ":running",
		taskPrefix: id + ":task:",
		taskMaxRun: taskMaxRun,
		allTaskCtx: ctx,
		allTaskCF:  cf,
		encDec:     encDec,
	}
	if taskMaxRun > 0 {
		go rq.requeueTimedOutTasks()
	}
	return rq
}

func (rq *redisQ) Push(ctx context.Context, t *queue.Task) error {
	data, err := rq.encDec.Encode(ctx, t)
	if err != nil {
		return fmt.Errorf("pushing task %s to queue: %w", t.ID(), err)
	}
	pushed, err := rq.eval(pushScript, []string{rq.dataKey(t.ID()), rq.pending}, string(data), t.ID())
	if err != nil {
		return fmt.Errorf("pushing task %s to queue: %w", t.ID(), err)
	}
	if pushed == 0 {
		return fmt.Errorf("pushing task %s to queue: task already pushed", t.ID())
	}
	return nil
}

// Pull takes the oldest pending task. Its context is done once the task
// runs for longer than the queue's taskMaxRun or the queue is stopped.
func (rq *redisQ) Pull(ctx context.Context) (*queue.Task, context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	v, err := rq.rc.Eval(pullScript, []string{rq.pending, rq.running}, rq.taskPrefix, int64(rq.taskMaxRun/time.Millisecond)).Result()
	if err == redis.Nil {
		return nil, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pulling task from %q: %w", rq.pending, err)
	}
	id, ok := v.(string)
	if !ok {
		return nil, nil, nil, fmt.Errorf("pulling task from %q: redis returned %v (%T) instead of a task ID", rq.pending, v, v)
	}
	data, err := rq.rc.Get(rq.dataKey(id)).Bytes()
	if err == nil {
		var t *queue.Task
		t, err = rq.encDec.Decode(ctx, data)
		if err == nil {
			tctx, tcf := rq.taskContext()
			return t, tctx, tcf, nil
		}
	}
	rq.Drop(ctx, id)
	return nil, nil, nil, fmt.Errorf("pulling task %s: %w", id, err)
}

func (rq *redisQ) taskContext() (context.Context, context.CancelFunc) {
	if rq.taskMaxRun == 0 {
		return context.WithCancel(rq.allTaskCtx)
	}
	return context.WithTimeout(rq.allTaskCtx, rq.taskMaxRun)
}

// Drop makes a running task pending again, unless it has been completed.
func (rq *redisQ) Drop(ctx context.Context, id string) error {
	_, err := rq.eval(dropScript, []string{rq.running, rq.pending}, rq.taskPrefix, id)
	if err != nil {
		return fmt.Errorf("dropping %s: %w", id, err)
	}
	return nil
}

// Complete removes a running task from the queue along with its data.
func (rq *redisQ) Complete(ctx context.Context, id string) error {
	_, err := rq.eval(completeScript, []string{rq.running}, rq.taskPrefix, id)
	if err != nil {
		return fmt.Errorf("completing %s: %w", id, err)
	}
	return nil
}

func (rq *redisQ) Count(context.Context) (int, int, error) {
	v, err := rq.rc.Eval(countScript, []string{rq.pending, rq.running}).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks: %w", err)
	}
	counts, ok := v.([]interface{})
	if !ok || len(counts) != 2 {
		return 0, 0, fmt.Errorf("counting tasks: redis returned %v instead of 2 counts", v)
	}
	p, ok := counts[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("counting tasks: pending count %v (%T) is not an integer", counts[0], counts[0])
	}
	r, ok := counts[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("counting tasks: running count %v (%T) is not an integer", counts[1], counts[1])
	}
	return int(p), int(r), nil
}

// Stop cancels the contexts of pulled tasks and the requeueing of timed
// out tasks. The data of the queue is left on redis.
func (rq *redisQ) Stop(context.Context) error {
	rq.allTaskCF()
	return nil
}

func (rq *redisQ) dataKey(id string) string {
	return rq.taskPrefix + id + ":data"
}

// eval runs a script returning an integer
func (rq *redisQ) eval(script string, keys []string, args ...interface{}) (int64, error) {
	v, err := rq.rc.Eval(script, keys, args...).Result()
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("redis returned %v (%T) instead of an integer", v, v)
	}
	return n, nil
}

func (rq *redisQ) requeueTimedOutTasks() {
	ticker := time.NewTicker(rq.taskMaxRun / 2)
	defer ticker.Stop()
	for {
		select {
		case <-rq.allTaskCtx.Done():
			return
		case <-ticker.C:
		}
		rq.eval(requeueScript, []string{rq.running, rq.pending}, rq.taskPrefix)
	}
}
