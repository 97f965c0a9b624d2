package Expr

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow/array"
)

// Try-cast semantics: every function here is total. A value that cannot be
// coerced comes back as an invalid sql.Null* and never as an error.

// tried in this order, first match wins. Single digit month/day are accepted.
var dateLayouts = []string{
	"1/2/2006", // MM/DD/YYYY
	"1-2-06",   // MM-DD-YY
	"1/2/06",   // MM/DD/YY
}

// ParseDate returns the calendar date (UTC midnight) of text.
func ParseDate(text string) sql.NullTime {
	text = strings.TrimSpace(text)
	if text == "" {
		return sql.NullTime{}
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return sql.NullTime{Time: t.UTC(), Valid: true}
		}
	}
	return sql.NullTime{}
}

// ParseDouble rejects NaN and infinities along with anything ParseFloat rejects.
func ParseDouble(text string) sql.NullFloat64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// ParseInt accepts base 10 integers only, "2.0" is not an integer.
func ParseInt(text string) sql.NullInt64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return sql.NullInt64{}
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// MonthStart truncates a valid date to the first day of its month.
func MonthStart(d sql.NullTime) sql.NullTime {
	if !d.Valid {
		return d
	}
	t := d.Time.UTC()
	return sql.NullTime{Time: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), Valid: true}
}

func CoerceDates(col *array.String) []sql.NullTime {
	out := make([]sql.NullTime, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		out[i] = ParseDate(col.Value(i))
	}
	return out
}

func CoerceFloats(col *array.String) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		out[i] = ParseDouble(col.Value(i))
	}
	return out
}

func CoerceInts(col *array.String) []sql.NullInt64 {
	out := make([]sql.NullInt64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		out[i] = ParseInt(col.Value(i))
	}
	return out
}
