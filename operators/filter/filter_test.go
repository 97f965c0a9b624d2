package filter

import (
	"context"
	"errors"
	"io"
	"testing"

	"sales-report-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

func strPtr(s string) *string { return &s }

func salesBatch(t *testing.T) *operators.RecordBatch {
	t.Helper()
	rbb := operators.NewRecordBatchBuilder()
	rbb.SchemaBuilder.
		WithField("Status", arrow.BinaryTypes.String, true).
		WithField("ship-state", arrow.BinaryTypes.String, true).
		WithField("Amount", arrow.BinaryTypes.String, true)
	batch, err := rbb.NewRecordBatch(rbb.Schema(), []arrow.Array{
		rbb.GenStringArray("Cancelled", "Shipped", "Returned", "Refund", "Shipped"),
		rbb.GenNullableStringArray(strPtr("MAHARASHTRA"), strPtr("KERALA"), strPtr("GOA"), nil, strPtr("GOA")),
		rbb.GenStringArray("647.62", "406", "399", "200", "10"),
	})
	if err != nil {
		t.Fatalf("failed to build batch: %v", err)
	}
	return batch
}

func TestSelect(t *testing.T) {
	batch := salesBatch(t)
	status := batch.Columns[0].(*array.String)
	notShipped := func(row int) bool { return status.Value(row) != "Shipped" }

	got := Select(int(batch.RowCount), And(notShipped, NotNull(batch.Columns[1])))
	want := []int{0, 2}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(Select(0, notShipped)) != 0 {
		t.Fatal("expected no rows from an empty input")
	}
	if len(Select(3, And())) != 3 {
		t.Fatal("an empty And keeps every row")
	}
}

func TestFilterBatch(t *testing.T) {
	batch := salesBatch(t)
	defer batch.Release()
	mask := NewMask(int(batch.RowCount), NotNull(batch.Columns[1]))
	defer mask.Release()
	if mask.Len() != 5 || mask.Value(3) {
		t.Fatalf("unexpected mask %v", mask)
	}

	out, err := FilterBatch(context.Background(), batch, mask)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()
	if out.RowCount != 4 {
		t.Fatalf("expected 4 rows, got %d", out.RowCount)
	}
	amounts := out.Columns[2].(*array.String)
	if amounts.Value(3) != "10" || amounts.Value(2) != "399" {
		t.Fatalf("unexpected amounts after filter %v", amounts)
	}
	if batch.RowCount != 5 || batch.Columns[0].Len() != 5 {
		t.Fatal("input batch must be left untouched")
	}

	short := NewMask(2, func(int) bool { return true })
	defer short.Release()
	if _, err := FilterBatch(context.Background(), batch, short); err == nil {
		t.Fatal("expected error for a mask of the wrong length")
	}
}

func TestFilterBatchZeroRows(t *testing.T) {
	t.Run("empty columns", func(t *testing.T) {
		ds := operators.EmptyDataset("Status", "Amount")
		defer ds.Release()
		batch, err := ds.Project("Status", "Amount")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer batch.Release()
		mask := NewMask(0, func(int) bool { return true })
		defer mask.Release()

		out, err := FilterBatch(context.Background(), batch, mask)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer out.Release()
		if out.RowCount != 0 || len(out.Columns) != 2 || !out.Schema.Equal(batch.Schema) {
			t.Fatalf("expected an empty batch with the input schema, got %v", out)
		}
	})
	t.Run("sliced to nothing", func(t *testing.T) {
		batch := Limit(salesBatch(t), 0)
		mask := NewMask(0, func(int) bool { return true })
		defer mask.Release()
		out, err := FilterBatch(context.Background(), batch, mask)
		if err != nil || out.RowCount != 0 || out.Columns[2].Len() != 0 {
			t.Fatalf("expected an empty batch, got %v %v", out, err)
		}
	})
	t.Run("mask against rows", func(t *testing.T) {
		mask := NewMask(0, func(int) bool { return true })
		defer mask.Release()
		if _, err := FilterBatch(context.Background(), salesBatch(t), mask); err == nil {
			t.Fatal("expected error for an empty mask over five rows")
		}
	})
}

func TestApplyBooleanMaskEmpty(t *testing.T) {
	mask := NewMask(0, func(int) bool { return true })
	defer mask.Release()
	out, err := ApplyBooleanMask(context.Background(), operators.EmptyStringArray(), mask)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer out.Release()
	if out.Len() != 0 || !arrow.TypeEqual(out.DataType(), arrow.BinaryTypes.String) {
		t.Fatalf("expected an empty string column, got %v", out)
	}
}

func TestLimit(t *testing.T) {
	batch := salesBatch(t)
	tests := []struct {
		n    int
		want uint64
	}{
		{2, 2},
		{0, 0},
		{10, 5},
		{-1, 5},
	}
	for _, tt := range tests {
		out := Limit(batch, tt.n)
		if out.RowCount != tt.want || out.Columns[0].Len() != int(tt.want) {
			t.Fatalf("Limit(%d): expected %d rows, got %d", tt.n, tt.want, out.RowCount)
		}
	}
	first := Limit(batch, 1).Columns[0].(*array.String)
	if first.Value(0) != "Cancelled" {
		t.Fatalf("Limit must keep the leading rows, got %s", first.Value(0))
	}
}

// batchSource hands out one fixed batch sliced to whatever is asked for.
type batchSource struct {
	batch  *operators.RecordBatch
	pos    int
	closed bool
}

func (b *batchSource) Next(n uint16) (*operators.RecordBatch, error) {
	if b.pos >= int(b.batch.RowCount) {
		return nil, io.EOF
	}
	end := b.pos + int(n)
	if end > int(b.batch.RowCount) {
		end = int(b.batch.RowCount)
	}
	cols := make([]arrow.Array, len(b.batch.Columns))
	for i, c := range b.batch.Columns {
		cols[i] = array.NewSlice(c, int64(b.pos), int64(end))
	}
	rows := end - b.pos
	b.pos = end
	return &operators.RecordBatch{Schema: b.batch.Schema, Columns: cols, RowCount: uint64(rows)}, nil
}
func (b *batchSource) Schema() *arrow.Schema { return b.batch.Schema }
func (b *batchSource) Close() error          { b.closed = true; return nil }

func TestLimitExec(t *testing.T) {
	t.Run("stops after count rows", func(t *testing.T) {
		src := &batchSource{batch: salesBatch(t)}
		l := NewLimitExec(src, 3)
		var total uint64
		for {
			out, err := l.Next(2)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			total += out.RowCount
		}
		if total != 3 {
			t.Fatalf("expected 3 rows, got %d", total)
		}
		if err := l.Close(); err != nil || !src.closed {
			t.Fatal("Close must close the input")
		}
	})
	t.Run("limit above input size", func(t *testing.T) {
		l := NewLimitExec(&batchSource{batch: salesBatch(t)}, 100)
		out, err := l.Next(100)
		if err != nil || out.RowCount != 5 {
			t.Fatalf("expected 5 rows, got %v %v", out, err)
		}
		if _, err := l.Next(100); !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	})
	t.Run("zero request", func(t *testing.T) {
		l := NewLimitExec(&batchSource{batch: salesBatch(t)}, 2)
		out, err := l.Next(0)
		if err != nil || out.RowCount != 0 {
			t.Fatalf("expected empty batch, got %v %v", out, err)
		}
		if !l.Schema().Equal(salesBatch(t).Schema) {
			t.Fatal("schema should pass through")
		}
	})
}
