package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pbanos/cart/dataset/inputsample"
	"github.com/pbanos/cart/feature"
	"github.com/pbanos/cart/tree"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	treeInput string
	explain   bool
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the class of a sample",
		Long:  `Use a tree to predict the class of a sample whose features are requested as needed`,
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
			s := inputsample.New(os.Stdin, t.Features(), &stdoutFeatureValueRequester{})
			label, path, err := t.PredictSample(ctx, s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "making prediction: %v\n", err)
				os.Exit(3)
			}
			if config.explain {
				fmt.Println(explainPath(t, path))
			}
			if label == tree.NoLabel {
				fmt.Println("The tree cannot predict a class for the sample")
				return
			}
			fmt.Printf("The sample belongs to class %s\n", t.ClassName(label))
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree to use will be read and parsed as JSON (required)")
	cmd.PersistentFlags().BoolVar(&(config.explain), "explain", false, "print the decisions taken to reach the prediction")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.treeInput == "" {
		return fmt.Errorf("required tree flag was not set")
	}
	return nil
}

// explainPath describes the decision taken on every node of the path
func explainPath(t *tree.Tree, path []tree.NodeID) string {
	features := t.Features()
	steps := make([]string, 0, len(path))
	for i := 0; i < len(path)-1; i++ {
		n := t.Node(path[i])
		desc := n.Split.Describe(features)
		if path[i+1] == n.Left {
			desc = "not " + desc
		}
		steps = append(steps, desc)
	}
	steps = append(steps, fmt.Sprintf("class %s", t.ClassName(t.Node(path[len(path)-1]).Label)))
	return strings.Join(steps, " -> ")
}

type stdoutFeatureValueRequester struct{}

func (sfvr *stdoutFeatureValueRequester) RequestValueFor(f feature.Feature) error {
	if cf, ok := f.(*feature.CategoricalFeature); ok && len(cf.AvailableValues()) > 0 {
		fmt.Printf("What is the value for %s? [%s]\n", f.Name(), strings.Join(cf.AvailableValues(), ", "))
		return nil
	}
	fmt.Printf("What is the value for %s? (%s)\n", f.Name(), f.Kind())
	return nil
}

func (sfvr *stdoutFeatureValueRequester) RejectValueFor(f feature.Feature, v string) error {
	fmt.Printf("%q is not a valid value for %s\n", v, f.Name())
	return nil
}
