package reports

import (
	"database/sql"

	"sales-report-go/operators"
	"sales-report-go/operators/filter"

	"github.com/apache/arrow/go/v17/arrow"
)

// resultBuilder collects typed output columns in order.
type resultBuilder struct {
	rbb  *operators.RecordBatchBuilder
	cols []arrow.Array
}

func newResult() *resultBuilder {
	return &resultBuilder{rbb: operators.NewRecordBatchBuilder()}
}

func (r *resultBuilder) strings(name string, values []string) *resultBuilder {
	r.rbb.SchemaBuilder.WithField(name, arrow.BinaryTypes.String, true)
	r.cols = append(r.cols, r.rbb.GenStringArray(values...))
	return r
}

func (r *resultBuilder) floats(name string, values []sql.NullFloat64) *resultBuilder {
	r.rbb.SchemaBuilder.WithField(name, arrow.PrimitiveTypes.Float64, true)
	r.cols = append(r.cols, r.rbb.GenNullFloatArray(values...))
	return r
}

func (r *resultBuilder) ints(name string, values []sql.NullInt64) *resultBuilder {
	r.rbb.SchemaBuilder.WithField(name, arrow.PrimitiveTypes.Int64, true)
	r.cols = append(r.cols, r.rbb.GenNullIntArray(values...))
	return r
}

func (r *resultBuilder) dates(name string, values []sql.NullTime) *resultBuilder {
	r.rbb.SchemaBuilder.WithField(name, arrow.FixedWidthTypes.Date32, true)
	r.cols = append(r.cols, r.rbb.GenNullDateArray(values...))
	return r
}

// build validates the columns and cuts the batch to limit rows.
func (r *resultBuilder) build(limit int) (*operators.RecordBatch, error) {
	full, err := r.rbb.NewRecordBatch(r.rbb.Schema(), r.cols)
	if err != nil {
		operators.ReleaseArrays(r.cols)
		return nil, err
	}
	out := filter.Limit(full, limit)
	full.Release()
	return out, nil
}

func negate(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return v
	}
	return sql.NullFloat64{Float64: -v.Float64, Valid: true}
}
