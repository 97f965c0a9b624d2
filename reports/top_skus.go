package reports

import (
	"context"
	"database/sql"

	"sales-report-go/Expr"
	"sales-report-go/operators"
	"sales-report-go/operators/aggr"
	"sales-report-go/operators/filter"
)

type skuKey struct {
	category string
	sku      string
}

// TopSKUsByCategory ranks SKUs by total sales inside each category and keeps
// the first RankCutoff ranks. Tied totals share a rank.
//
//	category | sku | total_sales | sales_rank
func TopSKUsByCategory(_ context.Context, ds *operators.Dataset, opts Options) (*operators.RecordBatch, error) {
	c := opts.Columns
	cols, err := ds.Columns(c.Category, c.SKU, c.Amount)
	if err != nil {
		return nil, err
	}
	category, sku := cols[c.Category], cols[c.SKU]
	amounts := Expr.CoerceFloats(cols[c.Amount])

	groups := aggr.GroupSum(ds.NumRows(),
		func(row int) (skuKey, bool) {
			if category.IsNull(row) || sku.IsNull(row) {
				return skuKey{}, false
			}
			return skuKey{category: category.Value(row), sku: sku.Value(row)}, true
		},
		func(row int) sql.NullFloat64 { return amounts[row] },
	)

	n := groups.Len()
	categories := make([]string, n)
	skus := make([]string, n)
	totals := make([]sql.NullFloat64, n)
	for gi, k := range groups.Keys {
		categories[gi] = k.category
		skus[gi] = k.sku
		totals[gi] = groups.Sum(gi)
	}
	ranks := aggr.RankWithinPartition(categories, totals, true)

	kept := filter.Select(n, func(gi int) bool { return ranks[gi] <= int64(opts.RankCutoff) })
	categories = aggr.Take(categories, kept)
	skus = aggr.Take(skus, kept)
	totals = aggr.Take(totals, kept)
	ranks = aggr.Take(ranks, kept)

	order := aggr.StableSort(len(kept),
		aggr.NewStringSortKey(categories, true),
		aggr.NewIntSortKey(ranks, true),
		aggr.NewFloatSortKey(totals),
		aggr.NewStringSortKey(skus, true),
	)
	outRanks := make([]sql.NullInt64, len(order))
	for i, r := range aggr.Take(ranks, order) {
		outRanks[i] = sql.NullInt64{Int64: r, Valid: true}
	}
	return newResult().
		strings("category", aggr.Take(categories, order)).
		strings("sku", aggr.Take(skus, order)).
		floats("total_sales", aggr.Take(totals, order)).
		ints("sales_rank", outRanks).
		build(opts.limit())
}
