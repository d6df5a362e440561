package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/dataset/csv"
	"github.com/pbanos/cart/dataset/mongodataset"
	"github.com/pbanos/cart/dataset/sqldataset"
	"github.com/pbanos/cart/feature/yaml"
	"github.com/pbanos/cart/tree"
	treejson "github.com/pbanos/cart/tree/json"
)

const (
	dataInputUsage = "path to an input CSV (.csv) or SQLite3 (.db) file, a PostgreSQL DB connection URL or a MongoDB URL (mongodb://) with the data (defaults to STDIN, interpreted as CSV)"
	metadataUsage  = "path to a YML file with metadata describing the different features available on the input (required)"
)

// Context returns a context cancelled when the process receives an
// interrupt or termination signal.
func (rcc *rootCmdConfig) Context() context.Context {
	if rcc.ctx == nil {
		rcc.ctx, rcc.cancelFunc = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
	return rcc.ctx
}

func isMongoURL(url string) bool {
	return strings.HasPrefix(url, "mongodb://") || strings.HasPrefix(url, "mongodb+srv://")
}

func isSQLInput(input string) bool {
	return strings.HasSuffix(input, ".db") || sqldataset.IsPostgresURL(input)
}

func (rcc *rootCmdConfig) loadSchema(metadataInput, classFeature string) (*dataset.Schema, error) {
	features, err := yaml.ReadFeaturesFromFile(metadataInput)
	if err != nil {
		return nil, err
	}
	return dataset.NewSchema(features, classFeature)
}

// loadDataset reads the dataset at input, a CSV file, a SQL database or a
// MongoDB collection, STDIN if empty.
func (rcc *rootCmdConfig) loadDataset(ctx context.Context, input string, s *dataset.Schema) (*dataset.Dataset, error) {
	switch {
	case isMongoURL(input):
		rcc.Logf("Reading dataset from MongoDB at %s...", input)
		ms, err := mongodataset.Dial(ctx, input, s)
		if err != nil {
			return nil, fmt.Errorf("connecting to MongoDB at %s: %w", input, err)
		}
		defer ms.Close()
		return ms.Load(ctx)
	case isSQLInput(input):
		rcc.Logf("Reading dataset from database %s...", input)
		st, err := sqldataset.Open(input, s)
		if err != nil {
			return nil, fmt.Errorf("opening database %s: %w", input, err)
		}
		defer st.Close()
		return st.Load(ctx)
	case input == "":
		rcc.Logf("Reading dataset from STDIN...")
	default:
		rcc.Logf("Reading dataset from %s...", input)
	}
	d, err := csv.ReadDatasetFromFilePath(input, s)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return d, nil
}

// writeDataset writes d to output, with the same kinds of destinations
// loadDataset reads from, STDOUT if empty.
func (rcc *rootCmdConfig) writeDataset(ctx context.Context, output string, d *dataset.Dataset, s *dataset.Schema) error {
	switch {
	case isMongoURL(output):
		ms, err := mongodataset.Dial(ctx, output, s)
		if err != nil {
			return fmt.Errorf("connecting to MongoDB at %s: %w", output, err)
		}
		defer ms.Close()
		n, err := ms.Write(ctx, d)
		rcc.Logf("Wrote %d samples to %s", n, output)
		return err
	case isSQLInput(output):
		st, err := sqldataset.Open(output, s)
		if err != nil {
			return fmt.Errorf("opening database %s: %w", output, err)
		}
		defer st.Close()
		n, err := st.Write(ctx, d)
		rcc.Logf("Wrote %d samples to %s", n, output)
		return err
	case output == "":
		return csv.WriteDataset(ctx, os.Stdout, d, s)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer f.Close()
	err = csv.WriteDataset(ctx, f, d, s)
	if err != nil {
		return err
	}
	rcc.Logf("Wrote %d samples to %s", d.Len(), output)
	return f.Close()
}

func (rcc *rootCmdConfig) loadTree(ctx context.Context, treeInput string) (*tree.Tree, error) {
	rcc.Logf("Loading tree from %s...", treeInput)
	t, err := treejson.ReadJSONTreeFromFile(ctx, treeInput)
	if err != nil {
		return nil, fmt.Errorf("loading tree from %s: %w", treeInput, err)
	}
	return t, nil
}

func outputTree(ctx context.Context, output string, t *tree.Tree) error {
	if output == "" {
		return treejson.WriteJSONTree(ctx, t, os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s to write the tree: %w", output, err)
	}
	defer f.Close()
	err = treejson.WriteJSONTree(ctx, t, f)
	if err != nil {
		return fmt.Errorf("writing tree to %s: %w", output, err)
	}
	return f.Close()
}
