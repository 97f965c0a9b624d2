package filter

import (
	"context"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/cockroachdb/errors"
)

// Predicate decides whether row i is kept.
type Predicate func(row int) bool

// And keeps a row only when every predicate keeps it.
func And(preds ...Predicate) Predicate {
	return func(row int) bool {
		for _, p := range preds {
			if !p(row) {
				return false
			}
		}
		return true
	}
}

// NotNull keeps rows where col holds a value.
func NotNull(col arrow.Array) Predicate {
	return func(row int) bool { return col.IsValid(row) }
}

// Select returns the indices of rows 0..n-1 that pass pred, in input order.
func Select(n int, pred Predicate) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if pred(i) {
			out = append(out, i)
		}
	}
	return out
}

// NewMask evaluates pred over n rows into a non-null boolean array.
func NewMask(n int, pred Predicate) *array.Boolean {
	b := array.NewBooleanBuilder(memory.NewGoAllocator())
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		b.UnsafeAppend(pred(i))
	}
	return b.NewBooleanArray()
}

// FilterBatch keeps the rows of batch whose mask entry is true. The input batch
// is left untouched, the caller still owns it.
func FilterBatch(ctx context.Context, batch *operators.RecordBatch, mask *array.Boolean) (*operators.RecordBatch, error) {
	if mask.Len() != int(batch.RowCount) {
		return nil, errors.Newf("mask has %d entries for %d rows", mask.Len(), batch.RowCount)
	}
	if batch.RowCount == 0 {
		for _, col := range batch.Columns {
			col.Retain()
		}
		return &operators.RecordBatch{
			Schema:   batch.Schema,
			Columns:  append([]arrow.Array(nil), batch.Columns...),
			RowCount: 0,
		}, nil
	}
	filteredCol := make([]arrow.Array, len(batch.Columns))
	for i, col := range batch.Columns {
		arr, err := ApplyBooleanMask(ctx, col, mask)
		if err != nil {
			operators.ReleaseArrays(filteredCol[:i])
			return nil, err
		}
		filteredCol[i] = arr
	}
	var size uint64
	if len(filteredCol) > 0 {
		size = uint64(filteredCol[0].Len())
	}
	return &operators.RecordBatch{
		Schema:   batch.Schema,
		Columns:  filteredCol,
		RowCount: size,
	}, nil
}

func ApplyBooleanMask(ctx context.Context, col arrow.Array, mask *array.Boolean) (arrow.Array, error) {
	if mask.Len() == 0 {
		return array.NewSlice(col, 0, 0), nil
	}
	datum, err := compute.Filter(
		ctx,
		compute.NewDatum(col),
		compute.NewDatum(mask),
		*compute.DefaultFilterOptions(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "apply boolean mask")
	}
	defer datum.Release()
	return datum.(*compute.ArrayDatum).MakeArray(), nil
}
