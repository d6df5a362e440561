/*
Package csv reads datasets from CSV streams and writes samples to them.
*/
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
)

// UndefinedValue is the CSV cell content for an undefined value. Undefined
// values are rejected: trees are grown and applied on complete rows only.
const UndefinedValue = "?"

// Sample is a row of feature values along with the name of its class,
// empty when the source has no class column.
type Sample struct {
	Row   []feature.Value
	Class string
}

/*
Writer is an interface for a set to which samples
can be written to.
*/
type Writer interface {
	// Write will attempt to write the given number
	// of samples and will return the actually written
	// number of samples and an error (if not all samples
	// could be written)
	Write(context.Context, []Sample) (int, error)
	// Count returns the total number of samples written
	// to the writer
	Count() int
	// Flush ensures any pending written operations finish
	// before returning. It returns an error if that cannot
	// be ensured.
	Flush() error
}

type csvWriter struct {
	count  int
	schema *dataset.Schema
	w      *csv.Writer
}

type header struct {
	columns  []int
	class    int
	hasClass bool
}

/*
ReadDataset takes an io.Reader for a CSV stream and a schema and returns the
dataset parsed from the reader or an error.

The header or first row of the CSV content is expected to consist of the names
of the schema columns and its class feature, in any order. The rest of the rows
should consist of valid values for all of them.
*/
func ReadDataset(reader io.Reader, s *dataset.Schema) (*dataset.Dataset, error) {
	var rows [][]feature.Value
	var labels dataset.Labels
	err := read(reader, s, true, func(i int, sample Sample) (bool, error) {
		l, err := s.Label(sample.Class)
		if err != nil {
			return false, fmt.Errorf("parsing line %d: %w", i+2, err)
		}
		rows = append(rows, sample.Row)
		labels = append(labels, l)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	x, err := dataset.NewMatrix(s.Columns(), rows)
	if err != nil {
		return nil, err
	}
	return dataset.New(x, labels)
}

/*
ReadMatrix takes an io.Reader for a CSV stream and a schema and returns the
feature matrix parsed from the reader or an error. A class column, if present,
is ignored.
*/
func ReadMatrix(reader io.Reader, s *dataset.Schema) (*dataset.Matrix, error) {
	var rows [][]feature.Value
	err := read(reader, s, false, func(_ int, sample Sample) (bool, error) {
		rows = append(rows, sample.Row)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return dataset.NewMatrix(s.Columns(), rows)
}

/*
ReadBySample takes an io.Reader for a CSV stream, a schema and a
lambda function on an integer and a Sample that returns a boolean value.
It parses the samples from the reader and for each it calls the lambda function
with the sample and its index as parameters. If the lambda function returns true,
it will continue processing the next sample, otherwise it will stop. An error is
returned if something goes wrong when reading the file or parsing a sample.
*/
func ReadBySample(reader io.Reader, s *dataset.Schema, lambda func(int, Sample) (bool, error)) error {
	return read(reader, s, false, lambda)
}

/*
ReadDatasetFromFilePath takes a filepath string and a schema, opens the file
to which the filepath points to (os.Stdin if it is "") and uses ReadDataset
to return the dataset read from it or an error.
*/
func ReadDatasetFromFilePath(filepath string, s *dataset.Schema) (*dataset.Dataset, error) {
	f, err := open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := ReadDataset(f, s)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %w", filepath, err)
	}
	return d, err
}

/*
ReadMatrixFromFilePath takes a filepath string and a schema, opens the file
to which the filepath points to (os.Stdin if it is "") and uses ReadMatrix
to return the matrix read from it or an error.
*/
func ReadMatrixFromFilePath(filepath string, s *dataset.Schema) (*dataset.Matrix, error) {
	f, err := open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadMatrix(f, s)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %w", filepath, err)
	}
	return m, err
}

/*
NewWriter takes an io.Writer and a schema and returns a Writer that will
write samples on the io.Writer, with a header with the names of the schema
columns followed by the class feature.
*/
func NewWriter(writer io.Writer, s *dataset.Schema) (Writer, error) {
	w := csv.NewWriter(writer)
	record := make([]string, 0, len(s.Columns())+1)
	for _, f := range s.Columns() {
		record = append(record, f.Name())
	}
	record = append(record, s.Class().Name())
	err := w.Write(record)
	if err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	return &csvWriter{schema: s, w: w}, nil
}

/*
WriteDataset takes a writer, a dataset and a schema and dumps to the writer
the dataset in CSV format with class names taken from the schema. It returns
an error if something went wrong when writing to the writer.
*/
func WriteDataset(ctx context.Context, writer io.Writer, d *dataset.Dataset, s *dataset.Schema) error {
	cw, err := NewWriter(writer, s)
	if err != nil {
		return err
	}
	samples := make([]Sample, d.Len())
	for i, row := range d.X().Rows() {
		samples[i] = Sample{Row: row, Class: s.ClassName(d.Y()[i])}
	}
	_, err = cw.Write(ctx, samples)
	if err != nil {
		return err
	}
	return cw.Flush()
}

func read(reader io.Reader, s *dataset.Schema, requireClass bool, lambda func(int, Sample) (bool, error)) error {
	r := csv.NewReader(reader)
	record, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	h, err := parseHeader(record, s)
	if err != nil {
		return err
	}
	if requireClass && !h.hasClass {
		return fmt.Errorf("parsing header: class feature %s column not found", s.Class().Name())
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		sample, err := parseSample(row, h, s.Columns())
		if err != nil {
			return fmt.Errorf("parsing line %d: %w", l, err)
		}
		ok, err := lambda(l-2, sample)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

func parseHeader(record []string, s *dataset.Schema) (*header, error) {
	h := &header{columns: make([]int, len(s.Columns()))}
	for i := range h.columns {
		h.columns[i] = -1
	}
	for i, name := range record {
		if name == s.Class().Name() {
			h.class = i
			h.hasClass = true
			continue
		}
		c := s.Column(name)
		if c < 0 {
			return nil, fmt.Errorf("parsing header: reference to unknown feature %s", name)
		}
		h.columns[c] = i
	}
	for c, i := range h.columns {
		if i < 0 {
			return nil, fmt.Errorf("parsing header: feature %s column not found", s.Columns()[c].Name())
		}
	}
	return h, nil
}

func parseSample(record []string, h *header, columns []feature.Feature) (Sample, error) {
	row := make([]feature.Value, len(columns))
	for c, f := range columns {
		v := record[h.columns[c]]
		if v == UndefinedValue {
			return Sample{}, fmt.Errorf("undefined value for feature %s", f.Name())
		}
		value, err := feature.ParseValue(v, f.Kind())
		if err != nil {
			return Sample{}, fmt.Errorf("feature %s: %w", f.Name(), err)
		}
		if ok, err := f.Valid(value); !ok {
			return Sample{}, fmt.Errorf("invalid value %v for feature %s: %w", v, f.Name(), err)
		}
		row[c] = value
	}
	sample := Sample{Row: row}
	if h.hasClass {
		sample.Class = record[h.class]
	}
	return sample, nil
}

func open(filepath string) (*os.File, error) {
	if filepath == "" {
		return os.Stdin, nil
	}
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath, err)
	}
	return f, nil
}

func (cw *csvWriter) Count() int {
	return cw.count
}

func (cw *csvWriter) Write(ctx context.Context, samples []Sample) (int, error) {
	for n, s := range samples {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := cw.writeSample(s); err != nil {
			return n, err
		}
	}
	return len(samples), nil
}

func (cw *csvWriter) writeSample(s Sample) error {
	record := make([]string, 0, len(s.Row)+1)
	for _, v := range s.Row {
		record = append(record, v.String())
	}
	record = append(record, s.Class)
	err := cw.w.Write(record)
	if err != nil {
		return fmt.Errorf("writing CSV row for sample %d: %w", cw.count+1, err)
	}
	cw.count++
	return nil
}

func (cw *csvWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}
