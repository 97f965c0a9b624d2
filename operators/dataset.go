package operators

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/cockroachdb/errors"
)

// ErrMissingColumn marks a report input that names a column the dataset does not have.
var ErrMissingColumn = errors.New("required column missing from dataset")

func MissingColumn(name string) error {
	return errors.Wrapf(ErrMissingColumn, "column %q", name)
}

// Dataset is the loaded table every report reads from. All columns are text,
// nothing is coerced at load time. There is no way to mutate a Dataset once built.
type Dataset struct {
	batch  *RecordBatch
	lookup map[string]int
}

func NewDataset(batch *RecordBatch) (*Dataset, error) {
	if batch == nil {
		return nil, ErrInvalidSchema("nil record batch")
	}
	lookup := make(map[string]int, len(batch.Schema.Fields()))
	for i, f := range batch.Schema.Fields() {
		if f.Type.ID() != arrow.STRING {
			return nil, ErrInvalidSchema("column " + f.Name + " is " + f.Type.String() + ", datasets hold text columns only")
		}
		if _, dup := lookup[f.Name]; dup {
			return nil, ErrInvalidSchema("duplicate column " + f.Name)
		}
		lookup[f.Name] = i
	}
	validated, err := NewRecordBatchBuilder().NewRecordBatch(batch.Schema, batch.Columns)
	if err != nil {
		return nil, err
	}
	return &Dataset{batch: validated, lookup: lookup}, nil
}

// EmptyDataset has the given columns and no rows.
func EmptyDataset(names ...string) *Dataset {
	rbb := NewRecordBatchBuilder()
	cols := make([]arrow.Array, len(names))
	for i, n := range names {
		rbb.SchemaBuilder.WithField(n, arrow.BinaryTypes.String, true)
		cols[i] = rbb.GenStringArray()
	}
	ds, _ := NewDataset(&RecordBatch{Schema: rbb.Schema(), Columns: cols})
	return ds
}

func (d *Dataset) NumRows() int {
	return int(d.batch.RowCount)
}

func (d *Dataset) Schema() *arrow.Schema {
	return d.batch.Schema
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.lookup[name]
	return ok
}

// Column returns the named text column, or an error wrapping ErrMissingColumn.
func (d *Dataset) Column(name string) (*array.String, error) {
	idx, ok := d.lookup[name]
	if !ok {
		return nil, MissingColumn(name)
	}
	return d.batch.Columns[idx].(*array.String), nil
}

// Columns resolves several names at once, failing on the first missing one.
func (d *Dataset) Columns(names ...string) (map[string]*array.String, error) {
	out := make(map[string]*array.String, len(names))
	for _, n := range names {
		col, err := d.Column(n)
		if err != nil {
			return nil, err
		}
		out[n] = col
	}
	return out, nil
}

// Project returns a batch holding only the named columns, in the order given.
// The columns are shared with the dataset, releasing the batch is safe.
func (d *Dataset) Project(names ...string) (*RecordBatch, error) {
	sb := &SchemaBuilder{}
	cols := make([]arrow.Array, 0, len(names))
	for _, n := range names {
		col, err := d.Column(n)
		if err != nil {
			return nil, err
		}
		col.Retain()
		sb.WithField(n, arrow.BinaryTypes.String, true)
		cols = append(cols, col)
	}
	return &RecordBatch{
		Schema:   sb.Build(),
		Columns:  cols,
		RowCount: uint64(d.NumRows()),
	}, nil
}

// Value returns the raw cell and whether it is non-null.
func (d *Dataset) Value(name string, row int) (string, bool, error) {
	col, err := d.Column(name)
	if err != nil {
		return "", false, err
	}
	if col.IsNull(row) {
		return "", false, nil
	}
	return col.Value(row), true, nil
}

func (d *Dataset) Release() {
	d.batch.Release()
}
