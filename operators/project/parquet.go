package project

import (
	"context"
	"io"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var (
	_ = (operators.Operator)(&ParquetSource{})
)

// date cells are written the way the raw export writes them so that the
// date coercion reads them back
const parquetDateLayout = "01/02/2006"

// ParquetSource reads typed parquet columns and hands them on as text.
type ParquetSource struct {
	schema *arrow.Schema // all string, same names as the file
	file   *file.Reader
	reader pqarrow.RecordReader
	done   bool // if set to true always return io.EOF
}

func NewParquetSource(ctx context.Context, r parquet.ReaderAtSeeker, batchSize int) (*ParquetSource, error) {
	allocator := memory.NewGoAllocator()
	fileReader, err := file.NewParquetReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open parquet file")
	}

	if batchSize <= 0 {
		batchSize = 1024
	}
	arrowReader, err := pqarrow.NewFileReader(
		fileReader,
		pqarrow.ArrowReadProperties{Parallel: true, BatchSize: int64(batchSize)},
		allocator,
	)
	if err != nil {
		closeParquetFile(fileReader)
		return nil, errors.Wrap(err, "read parquet metadata")
	}
	rdr, err := arrowReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		closeParquetFile(fileReader)
		return nil, errors.Wrap(err, "open parquet record reader")
	}

	sb := &operators.SchemaBuilder{}
	for _, f := range rdr.Schema().Fields() {
		sb.WithField(f.Name, arrow.BinaryTypes.String, true)
	}
	return &ParquetSource{
		schema: sb.Build(),
		file:   fileReader,
		reader: rdr,
	}, nil
}

func closeParquetFile(f *file.Reader) {
	if err := f.Close(); err != nil {
		logrus.WithError(err).Warn("failed to close parquet reader")
	}
}

// Next returns one parquet record batch per call; its size is fixed by the
// batch size the source was opened with, not by n.
func (ps *ParquetSource) Next(_ uint16) (*operators.RecordBatch, error) {
	if ps.reader == nil || ps.done {
		return nil, io.EOF
	}
	if !ps.reader.Next() {
		ps.done = true
		if err := ps.reader.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "read parquet record")
		}
		return nil, io.EOF
	}
	record := ps.reader.Record()
	columns := make([]arrow.Array, record.NumCols())
	for i := range columns {
		columns[i] = TextColumn(record.Column(i))
	}
	return &operators.RecordBatch{
		Schema:   ps.schema,
		Columns:  columns,
		RowCount: uint64(record.NumRows()),
	}, nil
}

func (ps *ParquetSource) Close() error {
	if ps.reader != nil {
		ps.reader.Release()
		ps.reader = nil
	}
	if ps.file != nil {
		closeParquetFile(ps.file)
		ps.file = nil
	}
	return nil
}

func (ps *ParquetSource) Schema() *arrow.Schema {
	return ps.schema
}

// TextColumn renders any arrow column as a string column, nulls stay null.
// A string column is returned as is with an extra reference.
func TextColumn(col arrow.Array) arrow.Array {
	if s, ok := col.(*array.String); ok {
		s.Retain()
		return s
	}
	b := array.NewStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	b.Reserve(col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(cellText(col, i))
	}
	return b.NewArray()
}

func cellText(col arrow.Array, i int) string {
	switch a := col.(type) {
	case *array.Date32:
		return a.Value(i).ToTime().UTC().Format(parquetDateLayout)
	case *array.Date64:
		return a.Value(i).ToTime().UTC().Format(parquetDateLayout)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Format(parquetDateLayout)
	default:
		return col.ValueStr(i)
	}
}
