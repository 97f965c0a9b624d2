package operators

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// Test 1: SchemaBuilder.WithField
func TestSchemaBuilderWithField(t *testing.T) {
	sb := &SchemaBuilder{
		fields: make([]arrow.Field, 0, 10),
	}

	sb.WithField("category", arrow.BinaryTypes.String, false).
		WithField("total_units", arrow.PrimitiveTypes.Int64, true).
		WithField("total_sales", arrow.PrimitiveTypes.Float64, true)

	if len(sb.fields) != 3 {
		t.Errorf("Expected 3 fields, got %d", len(sb.fields))
	}
	expectedNames := []string{"category", "total_units", "total_sales"}
	for i, expected := range expectedNames {
		if sb.fields[i].Name != expected {
			t.Errorf("Field %d: expected name '%s', got '%s'", i, expected, sb.fields[i].Name)
		}
	}
	if !arrow.TypeEqual(sb.fields[1].Type, arrow.PrimitiveTypes.Int64) {
		t.Errorf("Field 'total_units': expected Int64 type, got %s", sb.fields[1].Type)
	}
	if sb.fields[0].Nullable != false {
		t.Errorf("Field 'category': expected nullable=false, got %v", sb.fields[0].Nullable)
	}
}

func TestNewRecordBatch(t *testing.T) {
	rbb := NewRecordBatchBuilder()
	rbb.SchemaBuilder.
		WithField("sku", arrow.BinaryTypes.String, true).
		WithField("total_sales", arrow.PrimitiveTypes.Float64, true)

	t.Run("valid", func(t *testing.T) {
		rb, err := rbb.NewRecordBatch(rbb.Schema(), []arrow.Array{
			rbb.GenStringArray("SET389-KR-NP-S", "JNE3781-KR-XXXL"),
			rbb.GenNullFloatArray(sql.NullFloat64{Float64: 1647.62, Valid: true}, sql.NullFloat64{Float64: 906, Valid: true}),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rb.RowCount != 2 {
			t.Fatalf("expected 2 rows, got %d", rb.RowCount)
		}
		names := rb.ColumnNames()
		if names[0] != "sku" || names[1] != "total_sales" {
			t.Fatalf("unexpected names %v", names)
		}
	})
	t.Run("type mismatch", func(t *testing.T) {
		_, err := rbb.NewRecordBatch(rbb.Schema(), []arrow.Array{
			rbb.GenStringArray("a"),
			rbb.GenNullIntArray(sql.NullInt64{Int64: 1, Valid: true}),
		})
		if err == nil || !strings.Contains(err.Error(), "Type mismatch") {
			t.Fatalf("expected type mismatch, got %v", err)
		}
	})
	t.Run("length mismatch", func(t *testing.T) {
		_, err := rbb.NewRecordBatch(rbb.Schema(), []arrow.Array{
			rbb.GenStringArray("a", "b"),
			rbb.GenNullFloatArray(sql.NullFloat64{Float64: 1, Valid: true}),
		})
		if err == nil || !strings.Contains(err.Error(), "Length mismatch") {
			t.Fatalf("expected length mismatch, got %v", err)
		}
	})
	t.Run("column count", func(t *testing.T) {
		if _, err := rbb.NewRecordBatch(rbb.Schema(), []arrow.Array{rbb.GenStringArray("a")}); err == nil {
			t.Fatal("expected error for missing column")
		}
	})
}

func TestRecordBatchValues(t *testing.T) {
	rbb := NewRecordBatchBuilder()
	day := time.Date(2022, 4, 30, 0, 0, 0, 0, time.UTC)
	rbb.SchemaBuilder.
		WithField("order_dt", arrow.FixedWidthTypes.Date32, true).
		WithField("cumulative_sales", arrow.PrimitiveTypes.Float64, true).
		WithField("total_units", arrow.PrimitiveTypes.Int64, true).
		WithField("category", arrow.BinaryTypes.String, true)
	rb, err := rbb.NewRecordBatch(rbb.Schema(), []arrow.Array{
		rbb.GenNullDateArray(sql.NullTime{Time: day, Valid: true}, sql.NullTime{Time: day.AddDate(0, 0, 1), Valid: true}),
		rbb.GenNullFloatArray(sql.NullFloat64{Float64: 10, Valid: true}, sql.NullFloat64{}),
		rbb.GenNullIntArray(sql.NullInt64{}, sql.NullInt64{Int64: 3, Valid: true}),
		rbb.GenNullableStringArray(nil, strPtr("Set")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rb.Release()

	rows := rb.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := rows[0][0].(time.Time); !got.Equal(day) {
		t.Fatalf("expected %v, got %v", day, got)
	}
	if rows[0][1].(float64) != 10 || rows[1][1] != nil {
		t.Fatalf("unexpected float column %v", rows)
	}
	if rows[0][2] != nil || rows[1][2].(int64) != 3 {
		t.Fatalf("unexpected int column %v", rows)
	}
	if rows[0][3] != nil || rows[1][3].(string) != "Set" {
		t.Fatalf("unexpected string column %v", rows)
	}
}

func TestGenArrays(t *testing.T) {
	rbb := NewRecordBatchBuilder()
	ints := rbb.GenNullIntArray(sql.NullInt64{Int64: 1, Valid: true}, sql.NullInt64{}).(*array.Int64)
	if ints.Len() != 2 || ints.Value(0) != 1 || !ints.IsNull(1) {
		t.Fatalf("unexpected int array %v", ints)
	}
	dates := rbb.GenNullDateArray(sql.NullTime{Time: time.Date(2022, 3, 31, 15, 30, 0, 0, time.UTC), Valid: true}).(*array.Date32)
	if got := dates.Value(0).ToTime().Format("2006-01-02"); got != "2022-03-31" {
		t.Fatalf("expected the clock part to be dropped, got %s", got)
	}
	empty := rbb.GenStringArray().(*array.String)
	if empty.Len() != 0 || len(empty.ValueOffsets()) != 1 {
		t.Fatalf("an empty string array needs one offset, got %v", empty.ValueOffsets())
	}
}

func strPtr(s string) *string { return &s }
