/*
Package mongodataset loads datasets from and stores them on a MongoDB
database. Samples are kept as documents of the samples collection with a
field per feature.
*/
package mongodataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/cart/dataset"
	"github.com/pbanos/cart/feature"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const (
	samplesCollectionName = "samples"
)

/*
Store gives access to the samples collection on the default database of a
MongoDB session.
*/
type Store struct {
	session *mgo.Session
	schema  *dataset.Schema
}

/*
Open takes a MongoDB database session and a schema and returns a Store
that works on the default database for that session or an error if the
feature names are not valid field names or the indexes cannot be created.
*/
func Open(ctx context.Context, session *mgo.Session, s *dataset.Schema) (*Store, error) {
	ms := &Store{session, s}
	err := ms.ensureIndexes()
	if err != nil {
		return nil, err
	}
	return ms, nil
}

/*
Dial takes a MongoDB connection URL and a schema, connects to it and
returns a Store on its default database.
*/
func Dial(ctx context.Context, url string, s *dataset.Schema) (*Store, error) {
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb at %s: %w", url, err)
	}
	ms, err := Open(ctx, session, s)
	if err != nil {
		session.Close()
		return nil, err
	}
	return ms, nil
}

// Close terminates the session of the store
func (ms *Store) Close() {
	ms.session.Close()
}

/*
Load reads every sample on the collection, in insertion order, and returns
them as a dataset. Documents missing a feature are rejected.
*/
func (ms *Store) Load(ctx context.Context) (*dataset.Dataset, error) {
	var rows [][]feature.Value
	var labels dataset.Labels
	var doc bson.M
	iter := ms.samplesCollection().Find(nil).Sort("$natural").Iter()
	defer iter.Close()
	for i := 0; iter.Next(&doc); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, label, err := ms.parse(doc)
		if err != nil {
			return nil, fmt.Errorf("parsing document %d: %w", i, err)
		}
		rows = append(rows, row)
		labels = append(labels, label)
		doc = nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	x, err := dataset.NewMatrix(ms.schema.Columns(), rows)
	if err != nil {
		return nil, err
	}
	return dataset.New(x, labels)
}

/*
Write takes a dataset and inserts its rows as documents on the collection.
It returns the number of documents inserted or an error.
*/
func (ms *Store) Write(ctx context.Context, d *dataset.Dataset) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	docs := make([]interface{}, 0, d.Len())
	columns := ms.schema.Columns()
	for i, row := range d.X().Rows() {
		doc := make(bson.M, len(columns)+1)
		for c, f := range columns {
			if row[c].Kind() == feature.Numeric {
				doc[f.Name()] = row[c].Float()
			} else {
				doc[f.Name()] = row[c].String()
			}
		}
		doc[ms.schema.Class().Name()] = ms.schema.ClassName(d.Y()[i])
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	err := ms.samplesCollection().Insert(docs...)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (ms *Store) parse(doc bson.M) ([]feature.Value, int, error) {
	columns := ms.schema.Columns()
	row := make([]feature.Value, len(columns))
	for c, f := range columns {
		raw, ok := doc[f.Name()]
		if !ok || raw == nil {
			return nil, dataset.NoClass, fmt.Errorf("undefined value for feature %s", f.Name())
		}
		v, err := value(raw, f.Kind())
		if err != nil {
			return nil, dataset.NoClass, fmt.Errorf("feature %s: %w", f.Name(), err)
		}
		if ok, err := f.Valid(v); !ok {
			return nil, dataset.NoClass, err
		}
		row[c] = v
	}
	className := ms.schema.Class().Name()
	raw, ok := doc[className]
	if !ok || raw == nil {
		return nil, dataset.NoClass, fmt.Errorf("undefined value for class feature %s", className)
	}
	label, err := ms.schema.Label(fmt.Sprintf("%v", raw))
	if err != nil {
		return nil, dataset.NoClass, err
	}
	return row, label, nil
}

func value(raw interface{}, k feature.Kind) (feature.Value, error) {
	if k == feature.Categorical {
		return feature.Category(fmt.Sprintf("%v", raw)), nil
	}
	switch n := raw.(type) {
	case float64:
		return feature.Number(n), nil
	case int:
		return feature.Number(float64(n)), nil
	case int64:
		return feature.Number(float64(n)), nil
	case string:
		return feature.ParseValue(n, k)
	}
	return feature.Value{}, fmt.Errorf("expected a number, found a %T", raw)
}

func (ms *Store) ensureIndexes() error {
	features := append([]feature.Feature{ms.schema.Class()}, ms.schema.Columns()...)
	for _, f := range features {
		fName := f.Name()
		if fName == "_id" {
			return fmt.Errorf("invalid feature name %q: reserved collection field", "_id")
		}
		if strings.ContainsAny(fName, ".$") {
			return fmt.Errorf("invalid feature name %q: contains reserved characters %q or %q", fName, ".", "$")
		}
		index := mgo.Index{
			Key:        []string{fName},
			Background: true,
			Sparse:     true,
		}
		err := ms.samplesCollection().EnsureIndex(index)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ms *Store) samplesCollection() *mgo.Collection {
	return ms.session.DB("").C(samplesCollectionName)
}
