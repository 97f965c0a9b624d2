package reports

import (
	"context"

	"sales-report-go/Expr"
	"sales-report-go/operators"
	"sales-report-go/operators/aggr"
	"sales-report-go/operators/filter"
)

// CumulativeSales is the running total of Amount over the orders of one year,
// one output row per order in date order.
//
//	order_dt | cumulative_sales
func CumulativeSales(_ context.Context, ds *operators.Dataset, opts Options) (*operators.RecordBatch, error) {
	c := opts.Columns
	cols, err := ds.Columns(c.Date, c.Amount)
	if err != nil {
		return nil, err
	}
	dates := Expr.CoerceDates(cols[c.Date])
	inYear := filter.Select(len(dates), func(row int) bool {
		return dates[row].Valid && dates[row].Time.Year() == opts.TargetYear
	})
	orderDates := aggr.Take(dates, inYear)
	amounts := aggr.Take(Expr.CoerceFloats(cols[c.Amount]), inYear)
	order := aggr.StableSort(len(orderDates), aggr.NewTimeSortKey(orderDates, true))

	return newResult().
		dates("order_dt", aggr.Take(orderDates, order)).
		floats("cumulative_sales", aggr.RunningSum(aggr.Take(amounts, order))).
		build(opts.limit())
}
