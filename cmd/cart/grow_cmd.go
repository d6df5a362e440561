package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pbanos/cart"
	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/queue"
	"github.com/pbanos/cart/tree"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type growCmdConfig struct {
	*rootCmdConfig
	redisConfig
	dataInput     string
	metadataInput string
	output        string
	classFeature  string
	workers       int
}

func growCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &growCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Grow a tree from a set of data",
		Long:  `Grow a classification tree from a set of data to predict a certain feature.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := config.Context()
			schema, err := config.loadSchema(config.metadataInput, config.classFeature)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			trainingSet, err := config.loadDataset(ctx, config.dataInput, schema)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Growing tree from a set with %d samples and %d features to predict %s ...", trainingSet.Len(), len(schema.Columns()), config.classFeature)
			var t *tree.Tree
			if config.redisAddr == "" {
				t, err = cart.Grow(ctx, trainingSet,
					cart.WithLogger(config.Zap()),
					cart.WithWorkers(config.workers),
					cart.WithClasses(classesFor(trainingSet, schema)),
					cart.WithClassNames(schema.ClassNames()),
				)
			} else {
				t, err = config.growOnRedis(ctx, trainingSet, schema)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "growing the tree: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Done")
			config.Logf("%v", t)
			err = outputTree(ctx, config.output, t)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", dataInputUsage)
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", metadataUsage)
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the generated tree will be written in JSON format (defaults to STDOUT)")
	cmd.PersistentFlags().StringVarP(&(config.classFeature), "class-feature", "c", "", "name of the feature the generated tree should predict (required)")
	cmd.PersistentFlags().IntVarP(&(config.workers), "workers", "w", 1, "number of goroutines growing nodes on this process")
	config.redisConfig.addFlags(cmd)
	return cmd
}

func (gcc *growCmdConfig) Validate() error {
	if gcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if gcc.classFeature == "" {
		return fmt.Errorf("required class-feature flag was not set")
	}
	if gcc.workers < 0 {
		return fmt.Errorf("workers flag cannot be negative")
	}
	if gcc.workers == 0 && gcc.redisAddr == "" {
		return fmt.Errorf("no workers to grow the tree: set a positive workers flag")
	}
	return nil
}

// classesFor returns the number of classes of a dataset read with the
// given schema.
func classesFor(d *dataset.Dataset, s *dataset.Schema) int {
	classes := len(s.ClassNames())
	if c := d.Y().Classes(); c > classes {
		classes = c
	}
	return classes
}

// growOnRedis seeds a tree on a queue on redis, works on it with
// the configured workers while other processes may join with
// 'cart work', and compiles the tree once the queue is empty.
func (gcc *growCmdConfig) growOnRedis(ctx context.Context, d *dataset.Dataset, s *dataset.Schema) (*tree.Tree, error) {
	if gcc.queueID == "" {
		gcc.queueID = uuid.NewString()
	}
	gb, err := gcc.backend(ctx, d, gcc.dataInput)
	if err != nil {
		return nil, err
	}
	defer gb.Close(context.Background())
	tc := cart.NewTrainingContext(d.Y())
	tc.Classes = classesFor(d, s)
	tc.Logger = gcc.Zap()
	rootID, err := cart.Seed(ctx, d, gb.queue, gb.store)
	if err != nil {
		return nil, fmt.Errorf("seeding tree: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Growing tree on queue %s, join with: cart work --redis %s --queue %s\n", gcc.queueID, gcc.redisAddr, gcc.queueID)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < gcc.workers; i++ {
		g.Go(func() error {
			return cart.Work(gctx, tc, gb.queue, gb.store, 10*time.Millisecond)
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}
	err = queue.WaitFor(ctx, gb.queue, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return tree.Compile(ctx, gb.store, rootID, tc.Classes, d.Features(), s.ClassNames())
}
