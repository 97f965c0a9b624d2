package filter

import (
	"io"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

var (
	_ = (operators.Operator)(&LimitExec{})
)

// LimitExec stops its input after count rows.
type LimitExec struct {
	input     operators.Operator
	schema    *arrow.Schema
	remaining uint64
}

func NewLimitExec(input operators.Operator, count uint64) *LimitExec {
	return &LimitExec{
		input:     input,
		schema:    input.Schema(),
		remaining: count,
	}
}

func (l *LimitExec) Next(n uint16) (*operators.RecordBatch, error) {
	if n == 0 {
		return &operators.RecordBatch{
			Schema:   l.schema,
			Columns:  []arrow.Array{},
			RowCount: 0,
		}, nil
	}
	if l.remaining == 0 {
		return nil, io.EOF
	}
	childN := n
	if uint64(n) > l.remaining {
		// Only have l.remaining left
		childN = uint16(l.remaining)
	}
	childBatch, err := l.input.Next(childN)
	if err != nil {
		return nil, err
	}
	if childBatch.RowCount > l.remaining {
		trimmed := Limit(childBatch, int(l.remaining))
		childBatch.Release()
		childBatch = trimmed
	}
	l.remaining -= childBatch.RowCount
	return childBatch, nil
}

func (l *LimitExec) Schema() *arrow.Schema {
	return l.schema
}

func (l *LimitExec) Close() error {
	return l.input.Close()
}

// Limit returns the first n rows of batch as zero-copy slices. n < 0 keeps
// every row. The caller owns both batches.
func Limit(batch *operators.RecordBatch, n int) *operators.RecordBatch {
	rows := int(batch.RowCount)
	if n < 0 || n > rows {
		n = rows
	}
	cols := make([]arrow.Array, len(batch.Columns))
	for i, col := range batch.Columns {
		cols[i] = array.NewSlice(col, 0, int64(n))
	}
	return &operators.RecordBatch{
		Schema:   batch.Schema,
		Columns:  cols,
		RowCount: uint64(n),
	}
}
