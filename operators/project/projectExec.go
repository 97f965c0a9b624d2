package project

import (
	"io"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/cockroachdb/errors"
)

var (
	_ = (operators.Operator)(&ProjectExec{})
)

var (
	ErrEmptyColumnsToProject = errors.New("no columns passed in")
	ErrProjectColumnNotFound = errors.New("invalid column passed in to be pruned")
)

// ProjectExec keeps a subset of its input's columns.
type ProjectExec struct {
	input  operators.Operator
	schema *arrow.Schema
	keep   []string
}

func NewProjectExec(input operators.Operator, keep ...string) (*ProjectExec, error) {
	schema, _, err := ProjectSchemaFilterDown(input.Schema(), nil, keep...)
	if err != nil {
		return nil, err
	}
	return &ProjectExec{input: input, schema: schema, keep: keep}, nil
}

// NewLenientProjectExec keeps only the wanted columns the input actually has.
// Missing columns are left for whoever reads the result to report.
func NewLenientProjectExec(input operators.Operator, wanted ...string) (*ProjectExec, error) {
	want := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		want[w] = struct{}{}
	}
	keep := make([]string, 0, len(wanted))
	for _, f := range input.Schema().Fields() {
		if _, ok := want[f.Name]; ok {
			keep = append(keep, f.Name)
		}
	}
	if len(keep) == 0 {
		// nothing in common, keep the input whole so the schema stays visible
		for _, f := range input.Schema().Fields() {
			keep = append(keep, f.Name)
		}
	}
	return NewProjectExec(input, keep...)
}

func (p *ProjectExec) Next(n uint16) (*operators.RecordBatch, error) {
	childBatch, err := p.input.Next(n)
	if err != nil {
		return nil, err
	}
	schema, cols, err := ProjectSchemaFilterDown(childBatch.Schema, childBatch.Columns, p.keep...)
	if err != nil {
		childBatch.Release()
		return nil, err
	}
	// the kept columns were retained, drop the child's references
	childBatch.Release()
	return &operators.RecordBatch{
		Schema:   schema,
		Columns:  cols,
		RowCount: childBatch.RowCount,
	}, nil
}

func (p *ProjectExec) Schema() *arrow.Schema {
	return p.schema
}

func (p *ProjectExec) Close() error {
	return p.input.Close()
}

// handle keeping only the request columns but make sure the schema and columns are also aligned
// returns error if a column doesnt exist. cols may be nil to only derive the schema.
func ProjectSchemaFilterDown(schema *arrow.Schema, cols []arrow.Array, keepCols ...string) (*arrow.Schema, []arrow.Array, error) {
	if len(keepCols) == 0 {
		return arrow.NewSchema([]arrow.Field{}, nil), nil, ErrEmptyColumnsToProject
	}

	// Build map: columnName -> original index
	fieldIndex := make(map[string]int) // age -> 0
	for i, f := range schema.Fields() {
		fieldIndex[f.Name] = i
	}

	newFields := make([]arrow.Field, 0, len(keepCols))
	newCols := make([]arrow.Array, 0, len(keepCols))

	// Preserve order from keepCols, not schema order
	for _, name := range keepCols {
		idx, exists := fieldIndex[name]
		if !exists {
			operators.ReleaseArrays(newCols)
			return arrow.NewSchema([]arrow.Field{}, nil), []arrow.Array{}, errors.Wrapf(ErrProjectColumnNotFound, "column %q", name)
		}

		newFields = append(newFields, schema.Field(idx))
		if cols != nil {
			col := cols[idx]
			col.Retain()
			newCols = append(newCols, col)
		}
	}

	newSchema := arrow.NewSchema(newFields, nil)
	return newSchema, newCols, nil
}

// LoadDataset drains op into one immutable Dataset and closes it. Every batch
// is concatenated per column, a source with no rows gives an empty dataset
// with the source's columns.
func LoadDataset(op operators.Operator, batchSize uint16, onBatch func(rows int)) (*operators.Dataset, error) {
	defer op.Close()
	if batchSize == 0 {
		batchSize = 1024
	}
	schema := op.Schema()
	parts := make([][]arrow.Array, len(schema.Fields()))
	defer func() {
		for _, p := range parts {
			operators.ReleaseArrays(p)
		}
	}()

	for {
		batch, err := op.Next(batchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "load dataset")
		}
		if len(batch.Columns) != len(parts) {
			batch.Release()
			return nil, operators.ErrInvalidSchema("batch width changed while loading")
		}
		for i, col := range batch.Columns {
			parts[i] = append(parts[i], col)
		}
		if onBatch != nil {
			onBatch(int(batch.RowCount))
		}
	}

	mem := memory.NewGoAllocator()
	columns := make([]arrow.Array, len(parts))
	for i, p := range parts {
		var (
			col arrow.Array
			err error
		)
		switch {
		case len(p) == 0 || rowsIn(p) == 0:
			col = operators.EmptyStringArray()
		case len(p) == 1:
			p[0].Retain()
			col = p[0]
		default:
			col, err = array.Concatenate(p, mem)
			if err != nil {
				operators.ReleaseArrays(columns[:i])
				return nil, errors.Wrapf(err, "concatenate column %s", schema.Field(i).Name)
			}
		}
		columns[i] = col
	}
	return operators.NewDataset(&operators.RecordBatch{Schema: schema, Columns: columns})
}

func rowsIn(parts []arrow.Array) int {
	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	return n
}
