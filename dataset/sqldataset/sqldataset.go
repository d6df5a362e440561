/*
Package sqldataset loads datasets from and stores them on SQL databases.

Samples are kept on a single samples table with a column per feature:
REAL columns for numeric features and TEXT columns for categorical ones,
the class feature included. SQLite3 database files and PostgreSQL
databases are supported.
*/
package sqldataset

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

const (
	samplesTableName = "samples"

	// MaxSampleInsertionsPerStatement is the maximum number
	// of samples that are allowed to be added with a single
	// insert command with the Write method of the store.
	// Trying to add more will result in making more insertion commands
	MaxSampleInsertionsPerStatement = 10
)

type dialect struct {
	driver     string
	idColumn   string
	positional bool
}

var (
	sqlite3 = dialect{driver: "sqlite3", idColumn: `"id" INTEGER PRIMARY KEY AUTOINCREMENT`}
	postgre = dialect{driver: "postgres", idColumn: `"id" SERIAL PRIMARY KEY`, positional: true}
)

/*
Store gives access to the samples table of a database.
*/
type Store struct {
	db      *sql.DB
	dialect dialect
	schema  *dataset.Schema
}

/*
Open takes a database URL and a schema and returns a Store on the database.
URLs starting with postgres:// or postgresql:// are opened as PostgreSQL
connections, anything else as the path to an SQLite3 database file. An error
is returned if a feature name cannot be used as column name or the
database cannot be opened.
*/
func Open(url string, s *dataset.Schema) (*Store, error) {
	d := sqlite3
	if IsPostgresURL(url) {
		d = postgre
	}
	for _, f := range append([]feature.Feature{s.Class()}, s.Columns()...) {
		if err := validColumnName(f.Name()); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(d.driver, url)
	if err != nil {
		return nil, err
	}
	return &Store{db, d, s}, nil
}

// IsPostgresURL returns whether the given URL points to a PostgreSQL database
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Close closes the database
func (st *Store) Close() error {
	return st.db.Close()
}

/*
Load reads every sample on the samples table, in insertion order, and
returns them as a dataset. NULL values are rejected.
*/
func (st *Store) Load(ctx context.Context) (*dataset.Dataset, error) {
	columns := st.schema.Columns()
	var query bytes.Buffer
	query.WriteString("SELECT ")
	for _, f := range columns {
		query.WriteString(fmt.Sprintf(`"%s", `, f.Name()))
	}
	query.WriteString(fmt.Sprintf(`"%s" FROM %s ORDER BY "id"`, st.schema.Class().Name(), samplesTableName))
	rs, err := st.db.QueryContext(ctx, query.String())
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rs.Close()
	var rows [][]feature.Value
	var labels dataset.Labels
	for i := 0; rs.Next(); i++ {
		cells := make([]interface{}, len(columns)+1)
		for c, f := range columns {
			if f.Kind() == feature.Numeric {
				cells[c] = &sql.NullFloat64{}
			} else {
				cells[c] = &sql.NullString{}
			}
		}
		class := &sql.NullString{}
		cells[len(columns)] = class
		err = rs.Scan(cells...)
		if err != nil {
			return nil, fmt.Errorf("scanning sample %d: %w", i, err)
		}
		row := make([]feature.Value, len(columns))
		for c, f := range columns {
			switch cell := cells[c].(type) {
			case *sql.NullFloat64:
				if !cell.Valid {
					return nil, fmt.Errorf("sample %d: undefined value for feature %s", i, f.Name())
				}
				row[c] = feature.Number(cell.Float64)
			case *sql.NullString:
				if !cell.Valid {
					return nil, fmt.Errorf("sample %d: undefined value for feature %s", i, f.Name())
				}
				row[c] = feature.Category(cell.String)
			}
			if ok, err := f.Valid(row[c]); !ok {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
		}
		if !class.Valid {
			return nil, fmt.Errorf("sample %d: undefined value for class feature %s", i, st.schema.Class().Name())
		}
		label, err := st.schema.Label(class.String)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		rows = append(rows, row)
		labels = append(labels, label)
	}
	if err = rs.Err(); err != nil {
		return nil, err
	}
	x, err := dataset.NewMatrix(columns, rows)
	if err != nil {
		return nil, err
	}
	return dataset.New(x, labels)
}

/*
Write takes a dataset, ensures the samples table exists and inserts the
rows of the dataset on it. It returns the number of inserted samples and
an error if not all of them could be inserted.
*/
func (st *Store) Write(ctx context.Context, d *dataset.Dataset) (int, error) {
	err := st.createSampleTable(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	rows := d.X().Rows()
	for start := 0; start < len(rows); start += MaxSampleInsertionsPerStatement {
		end := start + MaxSampleInsertionsPerStatement
		if end > len(rows) {
			end = len(rows)
		}
		err = st.insert(ctx, rows[start:end], d.Y()[start:end])
		if err != nil {
			return n, fmt.Errorf("inserting samples %d to %d: %w", start, end-1, err)
		}
		n = end
	}
	return n, nil
}

func (st *Store) createSampleTable(ctx context.Context) error {
	var createStmtBuf bytes.Buffer
	createStmtBuf.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(", samplesTableName))
	for _, f := range st.schema.Columns() {
		if f.Kind() == feature.Numeric {
			createStmtBuf.WriteString(fmt.Sprintf(`"%s" REAL NULL, `, f.Name()))
		} else {
			createStmtBuf.WriteString(fmt.Sprintf(`"%s" TEXT NULL, `, f.Name()))
		}
	}
	createStmtBuf.WriteString(fmt.Sprintf(`"%s" TEXT NULL, `, st.schema.Class().Name()))
	createStmtBuf.WriteString(st.dialect.idColumn)
	createStmtBuf.WriteString(")")
	_, err := st.db.ExecContext(ctx, createStmtBuf.String())
	if err != nil {
		return fmt.Errorf("ensuring samples table exists: %w", err)
	}
	return nil
}

func (st *Store) insert(ctx context.Context, rows [][]feature.Value, labels dataset.Labels) error {
	columns := st.schema.Columns()
	width := len(columns) + 1
	var stmt bytes.Buffer
	stmt.WriteString(fmt.Sprintf("INSERT INTO %s (", samplesTableName))
	for _, f := range columns {
		stmt.WriteString(fmt.Sprintf(`"%s", `, f.Name()))
	}
	stmt.WriteString(fmt.Sprintf(`"%s") VALUES `, st.schema.Class().Name()))
	args := make([]interface{}, 0, len(rows)*width)
	for i, row := range rows {
		if i > 0 {
			stmt.WriteString(", ")
		}
		stmt.WriteString("(")
		for j := 0; j < width; j++ {
			if j > 0 {
				stmt.WriteString(", ")
			}
			stmt.WriteString(st.placeholder(i*width + j + 1))
		}
		stmt.WriteString(")")
		for c := range columns {
			if row[c].Kind() == feature.Numeric {
				args = append(args, row[c].Float())
			} else {
				args = append(args, row[c].String())
			}
		}
		args = append(args, st.schema.ClassName(labels[i]))
	}
	_, err := st.db.ExecContext(ctx, stmt.String(), args...)
	return err
}

func (st *Store) placeholder(n int) string {
	if st.dialect.positional {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func validColumnName(featureName string) error {
	if featureName == "id" {
		return fmt.Errorf(`'%s' is reserved and cannot be used as feature name`, featureName)
	}
	if strings.ContainsAny(featureName, `"`) {
		return fmt.Errorf(`feature name '%s' contains invalid character '"'`, featureName)
	}
	return nil
}
