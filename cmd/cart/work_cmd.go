package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pbanos/cart"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type workCmdConfig struct {
	*rootCmdConfig
	redisConfig
	dataInput     string
	metadataInput string
	classFeature  string
	workers       int
}

func workCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &workCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Help grow a tree started on another process",
		Long: `Help grow a tree started with 'cart grow --redis' on another process,
taking growth tasks from its queue until it is empty. The data, metadata
and class feature must be the same given to 'cart grow'.`,
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
			gb, err := config.backend(ctx, trainingSet, config.dataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			defer gb.Close(context.Background())
			tc := cart.NewTrainingContext(trainingSet.Y())
			tc.Classes = classesFor(trainingSet, schema)
			tc.Logger = config.Zap()
			config.Logf("Working on queue %s with %d workers...", config.queueID, config.workers)
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < config.workers; i++ {
				g.Go(func() error {
					return cart.Work(gctx, tc, gb.queue, gb.store, 10*time.Millisecond)
				})
			}
			err = g.Wait()
			if err != nil {
				fmt.Fprintf(os.Stderr, "working on queue %s: %v\n", config.queueID, err)
				os.Exit(5)
			}
			config.Logf("Done")
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", dataInputUsage)
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", metadataUsage)
	cmd.PersistentFlags().StringVarP(&(config.classFeature), "class-feature", "c", "", "name of the feature the tree predicts (required)")
	cmd.PersistentFlags().IntVarP(&(config.workers), "workers", "w", 1, "number of goroutines growing nodes on this process")
	config.redisConfig.addFlags(cmd)
	return cmd
}

func (wcc *workCmdConfig) Validate() error {
	if wcc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if wcc.classFeature == "" {
		return fmt.Errorf("required class-feature flag was not set")
	}
	if wcc.redisAddr == "" {
		return fmt.Errorf("required redis flag was not set")
	}
	if wcc.queueID == "" {
		return fmt.Errorf("required queue flag was not set")
	}
	if wcc.workers < 1 {
		return fmt.Errorf("workers flag must be positive")
	}
	return nil
}
