// Package render writes report results as a terminal table, CSV, JSON or an
// Arrow IPC stream.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sales-report-go/operators"
	"sales-report-go/reports"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatArrow Format = "arrow"

	tableNull = "NULL"
	dateFmt   = "2006-01-02"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrNoBatch       = errors.New("result has no batch")
)

func Formats() []Format {
	return []Format{FormatTable, FormatCSV, FormatJSON, FormatArrow}
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

// Renderer writes results in one format. Precision is the number of decimal
// places floats are rounded to in table and CSV output.
type Renderer struct {
	Format    Format
	Precision int
}

func New(format Format, precision int) *Renderer {
	if precision < 0 {
		precision = 0
	}
	return &Renderer{Format: format, Precision: precision}
}

// Write renders one report with the given format and float precision.
func Write(w io.Writer, format Format, res reports.Result, precision int) error {
	return New(format, precision).Write(w, res)
}

// Write renders res to w. A failed result is written as its failure line.
func (r *Renderer) Write(w io.Writer, res reports.Result) error {
	if res.Err != nil {
		return WriteFailure(w, res)
	}
	if res.Batch == nil {
		return errors.Wrapf(ErrNoBatch, "report %s", res.Name)
	}
	switch r.Format {
	case FormatTable:
		return r.writeTable(w, res)
	case FormatCSV:
		return r.writeCSV(w, res.Batch)
	case FormatJSON:
		return writeJSON(w, res)
	case FormatArrow:
		return writeArrow(w, res.Batch)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", r.Format)
	}
}

// WriteFailure writes the line a failed report is reported with.
func WriteFailure(w io.Writer, res reports.Result) error {
	_, err := fmt.Fprintf(w, "report %s failed: %v\n", res.Name, res.Err)
	return err
}

// cell formats one value as text. ok is false for null.
func (r *Renderer) cell(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return decimal.NewFromFloat(x).Round(int32(r.Precision)).String(), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case time.Time:
		return x.Format(dateFmt), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}

func (r *Renderer) textRows(batch *operators.RecordBatch, null string) [][]string {
	rows := batch.Rows()
	out := make([][]string, len(rows))
	for i, row := range rows {
		line := make([]string, len(row))
		for j, v := range row {
			s, ok := r.cell(v)
			if !ok {
				s = null
			}
			line[j] = s
		}
		out[i] = line
	}
	return out
}

func (r *Renderer) writeTable(w io.Writer, res reports.Result) error {
	if _, err := fmt.Fprintf(w, "%s\n", res.Name); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(res.Batch.ColumnNames())
	table.AppendBulk(r.textRows(res.Batch, tableNull))
	table.Render()
	rows := res.Batch.RowCount
	plural := "s"
	if rows == 1 {
		plural = ""
	}
	_, err := fmt.Fprintf(w, "(%d row%s)\n", rows, plural)
	return err
}

func (r *Renderer) writeCSV(w io.Writer, batch *operators.RecordBatch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batch.ColumnNames()); err != nil {
		return err
	}
	if err := cw.WriteAll(r.textRows(batch, "")); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

type jsonResult struct {
	Report  string   `json:"report"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// JSON keeps full float precision; dates are written as YYYY-MM-DD.
func writeJSON(w io.Writer, res reports.Result) error {
	rows := res.Batch.Rows()
	for _, row := range rows {
		for j, v := range row {
			if t, ok := v.(time.Time); ok {
				row[j] = t.Format(dateFmt)
			}
		}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(jsonResult{
		Report:  res.Name,
		Columns: res.Batch.ColumnNames(),
		Rows:    rows,
	})
}

func writeArrow(w io.Writer, batch *operators.RecordBatch) error {
	rec := array.NewRecord(batch.Schema, batch.Columns, int64(batch.RowCount))
	defer rec.Release()
	iw := ipc.NewWriter(w, ipc.WithSchema(batch.Schema))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return errors.Wrap(err, "write arrow record")
	}
	return iw.Close()
}

// WriteAll renders every successful result to w, separated by a blank line in
// table format, and every failure to errW. It returns the number of failures.
func (r *Renderer) WriteAll(w, errW io.Writer, results []reports.Result) (int, error) {
	failed := 0
	first := true
	for _, res := range results {
		if res.Err != nil {
			failed++
			if err := WriteFailure(errW, res); err != nil {
				return failed, err
			}
			continue
		}
		if !first && r.Format == FormatTable {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return failed, err
			}
		}
		first = false
		if err := r.Write(w, res); err != nil {
			return failed, errors.Wrapf(err, "render %s", res.Name)
		}
	}
	return failed, nil
}
