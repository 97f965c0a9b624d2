package reports

import (
	"context"
	"database/sql"
	"strings"

	"sales-report-go/Expr"
	"sales-report-go/operators"
	"sales-report-go/operators/aggr"
	"sales-report-go/operators/filter"

	"github.com/apache/arrow/go/v17/arrow/array"
)

// NegativeRevenueByRegion sums -Amount per region over unprofitable orders
// (cancelled, returned, refunded by default). The most negative region is first.
//
//	region | loss_proxy
func NegativeRevenueByRegion(ctx context.Context, ds *operators.Dataset, opts Options) (*operators.RecordBatch, error) {
	c := opts.Columns
	batch, err := ds.Project(c.Status, c.Region, c.Amount)
	if err != nil {
		return nil, err
	}
	defer batch.Release()

	statuses := opts.statusSet()
	status := batch.Columns[0].(*array.String)
	unprofitable := func(row int) bool {
		if status.IsNull(row) {
			return false
		}
		_, ok := statuses[strings.ToLower(status.Value(row))]
		return ok
	}
	mask := filter.NewMask(int(batch.RowCount), filter.And(unprofitable, filter.NotNull(batch.Columns[1])))
	defer mask.Release()
	losses, err := filter.FilterBatch(ctx, batch, mask)
	if err != nil {
		return nil, err
	}
	defer losses.Release()

	regions := losses.Columns[1].(*array.String)
	amounts := Expr.CoerceFloats(losses.Columns[2].(*array.String))
	groups := aggr.GroupSum(regions.Len(),
		func(row int) (string, bool) { return regions.Value(row), regions.IsValid(row) },
		func(row int) sql.NullFloat64 { return negate(amounts[row]) },
	)

	names := groups.Keys
	totals := make([]sql.NullFloat64, groups.Len())
	for gi := range totals {
		totals[gi] = groups.Sum(gi)
	}
	order := aggr.StableSort(groups.Len(),
		aggr.NewFloatSortKey(totals, true),
		aggr.NewStringSortKey(names, true),
	)
	return newResult().
		strings("region", aggr.Take(names, order)).
		floats("loss_proxy", aggr.Take(totals, order)).
		build(opts.limit())
}
