package operators

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
)

func salesDataset(t *testing.T) *Dataset {
	t.Helper()
	rbb := NewRecordBatchBuilder()
	rbb.SchemaBuilder.
		WithField("Date", arrow.BinaryTypes.String, true).
		WithField("Amount", arrow.BinaryTypes.String, true)
	ds, err := NewDataset(&RecordBatch{
		Schema: rbb.Schema(),
		Columns: []arrow.Array{
			rbb.GenStringArray("04-30-22", "05-01-22", "garbage"),
			rbb.GenNullableStringArray(strPtr("647.62"), nil, strPtr("10")),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds
}

func TestNewDataset(t *testing.T) {
	ds := salesDataset(t)
	if ds.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.NumRows())
	}
	t.Run("text only", func(t *testing.T) {
		rbb := NewRecordBatchBuilder()
		rbb.SchemaBuilder.WithField("Qty", arrow.PrimitiveTypes.Int64, true)
		_, err := NewDataset(&RecordBatch{Schema: rbb.Schema(), Columns: []arrow.Array{rbb.GenNullIntArray(sql.NullInt64{Int64: 1, Valid: true})}})
		if err == nil {
			t.Fatal("expected error for a typed column")
		}
	})
	t.Run("duplicate names", func(t *testing.T) {
		rbb := NewRecordBatchBuilder()
		rbb.SchemaBuilder.
			WithField("SKU", arrow.BinaryTypes.String, true).
			WithField("SKU", arrow.BinaryTypes.String, true)
		_, err := NewDataset(&RecordBatch{Schema: rbb.Schema(), Columns: []arrow.Array{rbb.GenStringArray("a"), rbb.GenStringArray("b")}})
		if err == nil {
			t.Fatal("expected error for duplicate column")
		}
	})
	t.Run("nil batch", func(t *testing.T) {
		if _, err := NewDataset(nil); err == nil {
			t.Fatal("expected error for nil batch")
		}
	})
}

func TestDatasetAccess(t *testing.T) {
	ds := salesDataset(t)
	t.Run("value", func(t *testing.T) {
		v, ok, err := ds.Value("Amount", 0)
		if err != nil || !ok || v != "647.62" {
			t.Fatalf("unexpected value %q %v %v", v, ok, err)
		}
		_, ok, err = ds.Value("Amount", 1)
		if err != nil || ok {
			t.Fatalf("expected null, got ok=%v err=%v", ok, err)
		}
	})
	t.Run("missing column", func(t *testing.T) {
		_, err := ds.Column("promotion-ids")
		if !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("expected ErrMissingColumn, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "promotion-ids") {
			t.Fatalf("error should name the column, got %v", err)
		}
		if _, err := ds.Columns("Date", "Qty"); !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("expected ErrMissingColumn, got %v", err)
		}
		if ds.HasColumn("Qty") || !ds.HasColumn("Date") {
			t.Fatal("HasColumn disagrees with the schema")
		}
	})
	t.Run("project", func(t *testing.T) {
		batch, err := ds.Project("Amount")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if batch.RowCount != 3 || len(batch.Columns) != 1 || batch.Schema.Field(0).Name != "Amount" {
			t.Fatalf("unexpected projection %v", batch.Schema)
		}
		// the dataset still reads after the projection is released
		batch.Release()
		if v, _, _ := ds.Value("Amount", 2); v != "10" {
			t.Fatalf("dataset column was released with the projection, got %q", v)
		}
		if _, err := ds.Project("Qty"); !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("expected ErrMissingColumn, got %v", err)
		}
	})
	t.Run("empty", func(t *testing.T) {
		empty := EmptyDataset("Date", "Amount")
		if empty.NumRows() != 0 || !empty.HasColumn("Amount") {
			t.Fatal("expected an empty dataset with both columns")
		}
		col, err := empty.Column("Date")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(col.ValueOffsets()) != 1 || col.ValueOffsets()[0] != 0 {
			t.Fatalf("an empty column still needs its leading offset, got %v", col.ValueOffsets())
		}
	})
}
