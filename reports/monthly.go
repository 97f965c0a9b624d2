package reports

import (
	"context"
	"database/sql"

	"sales-report-go/Expr"
	"sales-report-go/operators"
	"sales-report-go/operators/aggr"

	"github.com/apache/arrow/go/v17/arrow"
)

// MonthlyGrowth totals sales per calendar month and the change against the
// month before. No cost column exists in the export, so profit_proxy is the
// same sum as total_sales.
//
//	month | total_sales | profit_proxy | sales_growth_mom | profit_growth_mom
func MonthlyGrowth(_ context.Context, ds *operators.Dataset, opts Options) (*operators.RecordBatch, error) {
	c := opts.Columns
	cols, err := ds.Columns(c.Date, c.Amount)
	if err != nil {
		return nil, err
	}
	months := Expr.CoerceDates(cols[c.Date])
	for i := range months {
		months[i] = Expr.MonthStart(months[i])
	}
	amounts := Expr.CoerceFloats(cols[c.Amount])

	groups := aggr.GroupSum(ds.NumRows(),
		func(row int) (arrow.Date32, bool) {
			if !months[row].Valid {
				return 0, false
			}
			return arrow.Date32FromTime(months[row].Time), true
		},
		func(row int) sql.NullFloat64 { return amounts[row] },
	)

	n := groups.Len()
	keys := make([]int64, n)
	for gi, k := range groups.Keys {
		keys[gi] = int64(k)
	}
	order := aggr.StableSort(n, aggr.NewIntSortKey(keys, true))

	monthOut := make([]sql.NullTime, n)
	sales := make([]sql.NullFloat64, n)
	for i, gi := range order {
		monthOut[i] = sql.NullTime{Time: groups.Keys[gi].ToTime().UTC(), Valid: true}
		sales[i] = groups.Sum(gi)
	}
	profit := make([]sql.NullFloat64, n)
	copy(profit, sales)

	salesGrowth := growthSeries(sales)
	profitGrowth := growthSeries(profit)

	return newResult().
		dates("month", monthOut).
		floats("total_sales", sales).
		floats("profit_proxy", profit).
		floats("sales_growth_mom", salesGrowth).
		floats("profit_growth_mom", profitGrowth).
		build(opts.limit())
}

func growthSeries(values []sql.NullFloat64) []sql.NullFloat64 {
	prev := aggr.LagByOne(values)
	out := make([]sql.NullFloat64, len(values))
	for i := range values {
		out[i] = aggr.Growth(values[i], prev[i])
	}
	return out
}
