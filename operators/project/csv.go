package project

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/cockroachdb/errors"
)

var (
	_ = (operators.Operator)(&CSVSource{})
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource streams a delimited file as text columns. Nothing is typed here,
// the reports do their own coercion.
type CSVSource struct {
	r      *csv.Reader
	schema *arrow.Schema
	line   int  // data rows read so far, for error messages
	done   bool // if this is set in Next, we have reached EOF
}

// assume everything is on disk for now
func NewProjectCSVLeaf(source io.Reader) (*CSVSource, error) {
	br := bufio.NewReader(source)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1 // ragged rows are padded with nulls
	r.LazyQuotes = true
	proj := &CSVSource{r: r}
	var err error
	// construct the schema from the header
	proj.schema, err = proj.parseHeader()
	if err != nil {
		return nil, err
	}
	return proj, nil
}

func (csvS *CSVSource) Next(n uint16) (*operators.RecordBatch, error) {
	if csvS.done {
		return nil, io.EOF
	}

	builders := csvS.initBuilders()
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	rowsRead := uint16(0)
	for rowsRead < n {
		row, err := csvS.r.Read()
		if err == io.EOF {
			csvS.done = true
			if rowsRead == 0 {
				return nil, io.EOF
			}
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", csvS.line+1)
		}
		csvS.processRow(row, builders)
		csvS.line++
		rowsRead++
	}

	columns := make([]arrow.Array, len(builders))
	for i, b := range builders {
		columns[i] = b.NewArray()
	}
	return &operators.RecordBatch{
		Schema:   csvS.schema,
		Columns:  columns,
		RowCount: uint64(rowsRead),
	}, nil
}

func (csvS *CSVSource) Close() error {
	csvS.r = nil
	csvS.done = true
	return nil
}

func (csvS *CSVSource) Schema() *arrow.Schema {
	return csvS.schema
}

func (csvS *CSVSource) initBuilders() []*array.StringBuilder {
	builders := make([]*array.StringBuilder, len(csvS.schema.Fields()))
	for i := range builders {
		builders[i] = array.NewStringBuilder(memory.DefaultAllocator)
	}
	return builders
}

// cells past the end of a short row are null, extra cells are dropped
func (csvS *CSVSource) processRow(content []string, builders []*array.StringBuilder) {
	for i, b := range builders {
		if i >= len(content) {
			b.AppendNull()
			continue
		}
		appendCell(b, content[i])
	}
}

// appendCell stores "" and NULL (any case) as null and everything else verbatim.
func appendCell(b *array.StringBuilder, cell string) {
	if IsNullText(cell) {
		b.AppendNull()
		return
	}
	b.Append(cell)
}

func IsNullText(cell string) bool {
	return cell == "" || strings.EqualFold(cell, "NULL")
}

// first call to csv.Reader
func (csvS *CSVSource) parseHeader() (*arrow.Schema, error) {
	header, err := csvS.r.Read()
	if err == io.EOF {
		return nil, errors.New("csv source is empty, a header row is required")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	seen := make(map[string]struct{}, len(header))
	sb := &operators.SchemaBuilder{}
	for _, colName := range header {
		colName = strings.TrimSpace(colName)
		if _, dup := seen[colName]; dup {
			return nil, operators.ErrInvalidSchema("duplicate csv column " + colName)
		}
		seen[colName] = struct{}{}
		sb.WithField(colName, arrow.BinaryTypes.String, true)
	}
	return sb.Build(), nil
}
