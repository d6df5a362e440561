package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/tree"
	"github.com/spf13/cobra"
)

type testCmdConfig struct {
	*rootCmdConfig
	treeInput    string
	dataInput    string
	classFeature string
	confusion    bool
}

func testCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &testCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the performance of a tree",
		Long:  `Test the performance of a tree against a test data set`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := config.Context()
			t, err := config.loadTree(ctx, config.treeInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			schema := dataset.NewSchemaWithClasses(t.Features(), config.classFeature, t.ClassNames())
			testingSet, err := config.loadDataset(ctx, config.dataInput, schema)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Testing tree against testset with %d samples...", testingSet.Len())
			e, err := t.Test(testingSet)
			if err != nil {
				fmt.Fprintf(os.Stderr, "testing tree: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Done")
			if config.confusion {
				renderConfusion(os.Stdout, t, e)
			}
			fmt.Printf("%f success rate, failed to make a prediction for %d samples\n", e.Accuracy, e.Unlabeled)
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", dataInputUsage)
	cmd.PersistentFlags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree to test will be read and parsed as JSON (required)")
	cmd.PersistentFlags().StringVarP(&(config.classFeature), "class-feature", "c", "", "name of the feature the tree predicts, holding the actual class of the samples (required)")
	cmd.PersistentFlags().BoolVar(&(config.confusion), "confusion", false, "print the confusion matrix of the predictions")
	return cmd
}

func (tcc *testCmdConfig) Validate() error {
	if tcc.treeInput == "" {
		return fmt.Errorf("required tree flag was not set")
	}
	if tcc.classFeature == "" {
		return fmt.Errorf("required class-feature flag was not set")
	}
	return nil
}

// renderConfusion writes a table with a row per actual class and a column
// per predicted class.
func renderConfusion(w io.Writer, t *tree.Tree, e *tree.Evaluation) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Confusion matrix (%d samples)", e.Count)
	header := table.Row{"actual \\ predicted"}
	for p := range e.Confusion {
		header = append(header, t.ClassName(p))
	}
	tw.AppendHeader(header)
	for a, counts := range e.Confusion {
		row := table.Row{t.ClassName(a)}
		for _, n := range counts {
			row = append(row, n)
		}
		tw.AppendRow(row)
	}
	tw.AppendSeparator()
	tw.AppendFooter(table.Row{"accuracy", fmt.Sprintf("%.4f", e.Accuracy)})
	tw.Render()
}
