package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pbanos/cart/dataset"
	datasetjson "github.com/pbanos/cart/dataset/json"
	featurejson "github.com/pbanos/cart/feature/json"
	"github.com/pbanos/cart/queue"
	queuejson "github.com/pbanos/cart/queue/json"
	"github.com/pbanos/cart/queue/redisq"
	"github.com/pbanos/cart/tree"
	treejson "github.com/pbanos/cart/tree/json"
	"github.com/pbanos/cart/tree/redisstore"
	"github.com/spf13/cobra"
	redis "gopkg.in/redis.v5"
)

// redisConfig holds the flags to share the growth of a tree between
// processes through redis
type redisConfig struct {
	redisAddr  string
	queueID    string
	taskMaxRun time.Duration
}

func (rc *redisConfig) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&(rc.redisAddr), "redis", "", "address (host:port) of a redis server on which to keep the queue of growth tasks and the nodes of the tree, allowing other processes to help with 'cart work'")
	cmd.PersistentFlags().StringVar(&(rc.queueID), "queue", "", "ID of the queue of growth tasks on redis")
	cmd.PersistentFlags().DurationVar(&(rc.taskMaxRun), "task-max-run", 0, "time after which a running task is considered abandoned and made pending again (defaults to 0: never)")
}

// growthBackend is a queue and a node store shared through redis
type growthBackend struct {
	client *redis.Client
	queue  queue.Queue
	store  tree.NodeStore
}

func (rc *redisConfig) backend(ctx context.Context, d *dataset.Dataset, datasetURI string) (*growthBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: rc.redisAddr})
	err := client.Ping().Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", rc.redisAddr, err)
	}
	features := d.Features()
	ns := redisstore.New(client, fmt.Sprintf("cart:%s:nodes", rc.queueID), treejson.NewRecordEncodeDecoder(features))
	ded := datasetjson.New(d, datasetURI, featurejson.NewCriteriaEncodeDecoder(features))
	q := redisq.New(rc.queueID, client, rc.taskMaxRun, queuejson.New(ded, ns))
	return &growthBackend{client, q, ns}, nil
}

func (gb *growthBackend) Close(ctx context.Context) {
	gb.queue.Stop(ctx)
	gb.store.Close(ctx)
	gb.client.Close()
}
