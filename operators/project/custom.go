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
	_ = (operators.Operator)(&InMemorySource{})
)

// in memory format just for the ease of testing and for callers that already
// hold the rows (the gRPC server accepts inline datasets)
var (
	ErrRaggedInMemoryRow = func(row, got, want int) error {
		return errors.Newf("row %d has %d cells, header has %d", row, got, want)
	}
)

type InMemorySource struct {
	schema  *arrow.Schema
	columns []arrow.Array
	pos     int
}

// NewInMemorySource builds text columns from row-major cells. Cells follow the
// CSV null rules: "" and NULL are null.
func NewInMemorySource(names []string, rows [][]string) (*InMemorySource, error) {
	sb := &operators.SchemaBuilder{}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, operators.ErrInvalidSchema("duplicate column " + n)
		}
		seen[n] = struct{}{}
		sb.WithField(n, arrow.BinaryTypes.String, true)
	}
	builders := make([]*array.StringBuilder, len(names))
	for i := range builders {
		builders[i] = array.NewStringBuilder(memory.DefaultAllocator)
		defer builders[i].Release()
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, ErrRaggedInMemoryRow(r, len(row), len(names))
		}
		for c, cell := range row {
			appendCell(builders[c], cell)
		}
	}
	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.NewArray()
	}
	return &InMemorySource{
		schema:  sb.Build(),
		columns: cols,
	}, nil
}

func (ms *InMemorySource) Next(n uint16) (*operators.RecordBatch, error) {
	if len(ms.columns) == 0 || ms.pos >= ms.columns[0].Len() {
		return nil, io.EOF // EOF
	}
	toRead := int(n)
	if remaining := ms.columns[0].Len() - ms.pos; remaining < toRead {
		toRead = remaining
	}
	outPutCols := make([]arrow.Array, len(ms.columns))
	for i, col := range ms.columns {
		outPutCols[i] = array.NewSlice(col, int64(ms.pos), int64(ms.pos+toRead))
	}
	ms.pos += toRead

	return &operators.RecordBatch{
		Schema:   ms.schema,
		Columns:  outPutCols,
		RowCount: uint64(toRead),
	}, nil
}

func (ms *InMemorySource) Close() error {
	operators.ReleaseArrays(ms.columns)
	ms.columns = nil
	return nil
}

func (ms *InMemorySource) Schema() *arrow.Schema {
	return ms.schema
}
