package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type treeCmdConfig struct {
	*rootCmdConfig
	treeInput string
	output    string
}

func (tcc *treeCmdConfig) Validate() error {
	if tcc.treeInput == "" {
		return fmt.Errorf("required tree flag was not set")
	}
	return nil
}

func showCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a tree",
		Long:  `Print a tree as indented text, one node per line`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			t, err := config.loadTree(config.Context(), config.treeInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			fmt.Print(t)
			fmt.Printf("%d nodes, height %d\n", t.Len(), t.Height())
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree will be read and parsed as JSON (required)")
	return cmd
}

func dotCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Export a tree to Graphviz DOT",
		Long:  `Export a tree as a Graphviz DOT graph, to be rendered with dot -Tpng or similar`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			t, err := config.loadTree(config.Context(), config.treeInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			out := os.Stdout
			if config.output != "" {
				out, err = os.Create(config.output)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
				defer out.Close()
			}
			err = t.WriteDOT(out)
			if err != nil {
				fmt.Fprintf(os.Stderr, "writing DOT graph: %v\n", err)
				os.Exit(4)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree will be read and parsed as JSON (required)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file to write the DOT graph to (defaults to STDOUT)")
	return cmd
}
