package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pbanos/cart/dataset"
	"github.com/spf13/cobra"
)

type splitCmdConfig struct {
	*rootCmdConfig
	dataInput      string
	metadataInput  string
	classFeature   string
	trainingOutput string
	testingOutput  string
	testPercentage int
	seed           int64
}

func splitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &splitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a set of data into a training and a testing set",
		Long:  `Split a set of data randomly into a training set to grow a tree and a testing set to test it`,
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
			d, err := config.loadDataset(ctx, config.dataInput, schema)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			seed := config.seed
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			config.Logf("Splitting %d samples with seed %d, holding out %d%% for testing...", d.Len(), seed, config.testPercentage)
			training, testing, err := dataset.TrainTestSplit(d, float64(config.testPercentage)/100, rand.New(rand.NewSource(seed)))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			err = config.writeDataset(ctx, config.trainingOutput, training, schema)
			if err != nil {
				fmt.Fprintf(os.Stderr, "writing training set: %v\n", err)
				os.Exit(5)
			}
			err = config.writeDataset(ctx, config.testingOutput, testing, schema)
			if err != nil {
				fmt.Fprintf(os.Stderr, "writing testing set: %v\n", err)
				os.Exit(6)
			}
			config.Logf("Done: %d training samples, %d testing samples", training.Len(), testing.Len())
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", dataInputUsage)
	cmd.PersistentFlags().StringVarP(&(config.metadataInput), "metadata", "m", "", metadataUsage)
	cmd.PersistentFlags().StringVarP(&(config.classFeature), "class-feature", "c", "", "name of the feature holding the class of the samples (required)")
	cmd.PersistentFlags().StringVar(&(config.trainingOutput), "training-output", "", "path to a CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL or MongoDB URL to write the training set to (required)")
	cmd.PersistentFlags().StringVar(&(config.testingOutput), "testing-output", "", "path to a CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL or MongoDB URL to write the testing set to (required)")
	cmd.PersistentFlags().IntVarP(&(config.testPercentage), "percentage", "p", 20, "percentage of the samples to hold out for testing")
	cmd.PersistentFlags().Int64Var(&(config.seed), "seed", 0, "seed for the random split (defaults to the current time)")
	return cmd
}

func (scc *splitCmdConfig) Validate() error {
	if scc.metadataInput == "" {
		return fmt.Errorf("required metadata flag was not set")
	}
	if scc.classFeature == "" {
		return fmt.Errorf("required class-feature flag was not set")
	}
	if scc.trainingOutput == "" || scc.testingOutput == "" {
		return fmt.Errorf("required training-output and testing-output flags were not set")
	}
	if scc.testPercentage < 0 || scc.testPercentage > 100 {
		return fmt.Errorf("percentage flag must be between 0 and 100")
	}
	return nil
}
