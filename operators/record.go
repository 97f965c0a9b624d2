package operators

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidSchema = func(info string) error {
		return errors.Newf("invalid schema was provided. context: %s", info)
	}
)

type Operator interface {
	Next(uint16) (*RecordBatch, error)
	Schema() *arrow.Schema
	// Call Operator.Close() after Next returns an io.EOF to clean up resources
	Close() error
}
type RecordBatch struct {
	Schema   *arrow.Schema
	Columns  []arrow.Array
	RowCount uint64
}

type SchemaBuilder struct {
	fields []arrow.Field
}

type RecordBatchBuilder struct {
	SchemaBuilder *SchemaBuilder
}

func NewRecordBatchBuilder() *RecordBatchBuilder {
	return &RecordBatchBuilder{
		SchemaBuilder: &SchemaBuilder{
			fields: make([]arrow.Field, 0, 10),
		},
	}
}

func (sb *SchemaBuilder) WithField(name string, dtype arrow.DataType, nullable bool) *SchemaBuilder {
	sb.fields = append(sb.fields, arrow.Field{
		Name:     name,
		Type:     dtype,
		Nullable: nullable,
	})
	return sb
}

func (sb *SchemaBuilder) Build() *arrow.Schema {
	return arrow.NewSchema(sb.fields, nil)
}
func (rbb *RecordBatchBuilder) Schema() *arrow.Schema {
	return arrow.NewSchema(rbb.SchemaBuilder.fields, nil)
}

// schema is always right in case of type mismatches
func (rbb *RecordBatchBuilder) validate(schema *arrow.Schema, columns []arrow.Array) error {
	if len(schema.Fields()) != len(columns) {
		return ErrInvalidSchema("schema fields and column count do not match")
	}
	var mismatches []string
	rows := -1
	for i := 0; i < len(columns); i++ {
		field := schema.Field(i)
		colType := columns[i].DataType()

		if !arrow.TypeEqual(colType, field.Type) {
			mismatches = append(mismatches,
				fmt.Sprintf("Type mismatch at position %d: column '%s' has type '%s', but schema expects '%s'.",
					i, field.Name, colType, field.Type))
		}
		if rows >= 0 && columns[i].Len() != rows {
			mismatches = append(mismatches,
				fmt.Sprintf("Length mismatch at position %d: column '%s' has %d rows, expected %d.",
					i, field.Name, columns[i].Len(), rows))
		}
		rows = columns[i].Len()
	}
	if len(mismatches) > 0 {
		return ErrInvalidSchema(strings.Join(mismatches, " "))
	}
	return nil
}
func (rbb *RecordBatchBuilder) NewRecordBatch(schema *arrow.Schema, columns []arrow.Array) (*RecordBatch, error) {
	if err := rbb.validate(schema, columns); err != nil {
		return nil, err
	}
	var rows uint64
	if len(columns) > 0 {
		rows = uint64(columns[0].Len())
	}
	return &RecordBatch{
		Schema:   schema,
		Columns:  columns,
		RowCount: rows,
	}, nil
}

// ColumnNames returns the field names in schema order.
func (rb *RecordBatch) ColumnNames() []string {
	names := make([]string, len(rb.Schema.Fields()))
	for i, f := range rb.Schema.Fields() {
		names[i] = f.Name
	}
	return names
}

// Value returns the Go value at (col,row): nil for null, time.Time for date32,
// float64/int64/string/bool otherwise.
func (rb *RecordBatch) Value(col, row int) any {
	arr := rb.Columns[col]
	if arr.IsNull(row) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(row)
	case *array.Float64:
		return a.Value(row)
	case *array.Int64:
		return a.Value(row)
	case *array.Int32:
		return int64(a.Value(row))
	case *array.Boolean:
		return a.Value(row)
	case *array.Date32:
		return a.Value(row).ToTime().UTC()
	default:
		return arr.ValueStr(row)
	}
}

// Rows materializes the batch row by row, values as returned by Value.
func (rb *RecordBatch) Rows() [][]any {
	out := make([][]any, rb.RowCount)
	for r := range out {
		row := make([]any, len(rb.Columns))
		for c := range rb.Columns {
			row[c] = rb.Value(c, r)
		}
		out[r] = row
	}
	return out
}

func (rb *RecordBatch) Release() {
	ReleaseArrays(rb.Columns)
}

func ReleaseArrays(arrays []arrow.Array) {
	for _, a := range arrays {
		if a != nil {
			a.Release()
		}
	}
}

// EmptyStringArray is a zero-length string column with its single offset
// written. An empty StringBuilder leaves the offsets buffer empty, which
// compute kernels reject.
func EmptyStringArray() arrow.Array {
	offsets := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes([]int32{0}))
	data := array.NewData(arrow.BinaryTypes.String, 0, []*memory.Buffer{nil, offsets, memory.NewBufferBytes(nil)}, nil, 0, 0)
	defer data.Release()
	return array.NewStringData(data)
}

func (rbb *RecordBatchBuilder) GenStringArray(values ...string) arrow.Array {
	if len(values) == 0 {
		return EmptyStringArray()
	}
	mem := memory.NewGoAllocator()
	builder := array.NewStringBuilder(mem)
	defer builder.Release()
	for _, v := range values {
		builder.Append(v)
	}
	return builder.NewArray()
}

// GenNullableStringArray treats a nil entry as null.
func (rbb *RecordBatchBuilder) GenNullableStringArray(values ...*string) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewStringBuilder(mem)
	defer builder.Release()
	for _, v := range values {
		if v == nil {
			builder.AppendNull()
			continue
		}
		builder.Append(*v)
	}
	return builder.NewArray()
}

func (rbb *RecordBatchBuilder) GenNullFloatArray(values ...sql.NullFloat64) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewFloat64Builder(mem)
	defer builder.Release()
	for _, v := range values {
		if !v.Valid {
			builder.AppendNull()
			continue
		}
		builder.Append(v.Float64)
	}
	return builder.NewArray()
}

func (rbb *RecordBatchBuilder) GenNullIntArray(values ...sql.NullInt64) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewInt64Builder(mem)
	defer builder.Release()
	for _, v := range values {
		if !v.Valid {
			builder.AppendNull()
			continue
		}
		builder.Append(v.Int64)
	}
	return builder.NewArray()
}

func (rbb *RecordBatchBuilder) GenNullDateArray(values ...sql.NullTime) arrow.Array {
	mem := memory.NewGoAllocator()
	builder := array.NewDate32Builder(mem)
	defer builder.Release()
	for _, v := range values {
		if !v.Valid {
			builder.AppendNull()
			continue
		}
		builder.Append(arrow.Date32FromTime(v.Time))
	}
	return builder.NewArray()
}
