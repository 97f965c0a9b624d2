package reports

import (
	"context"
	"database/sql"
	"strings"

	"sales-report-go/Expr"
	"sales-report-go/operators"
	"sales-report-go/operators/aggr"
)

const (
	FlagPromo   = "Promo"
	FlagNoPromo = "No Promo"
)

type promoKey struct {
	category string
	flag     string
}

// PromoFlag is Promo when the promotion cell holds anything but whitespace.
func PromoFlag(cell string, valid bool) string {
	if valid && strings.TrimSpace(cell) != "" {
		return FlagPromo
	}
	return FlagNoPromo
}

// PromoBreakdown splits every category by whether the order carried a
// promotion id and reports sales, units and sales per unit for each half.
//
//	category | discount_flag | total_sales | total_units | sales_per_unit_proxy
func PromoBreakdown(_ context.Context, ds *operators.Dataset, opts Options) (*operators.RecordBatch, error) {
	c := opts.Columns
	cols, err := ds.Columns(c.Category, c.Promo, c.Amount, c.Qty)
	if err != nil {
		return nil, err
	}
	category, promo := cols[c.Category], cols[c.Promo]
	amounts := Expr.CoerceFloats(cols[c.Amount])
	qty := Expr.CoerceInts(cols[c.Qty])

	key := func(row int) (promoKey, bool) {
		if category.IsNull(row) {
			return promoKey{}, false
		}
		return promoKey{
			category: category.Value(row),
			flag:     PromoFlag(promo.Value(row), promo.IsValid(row)),
		}, true
	}
	groups, err := aggr.GroupBy(ds.NumRows(), key,
		aggr.NewMeasure(aggr.Sum, func(row int) sql.NullFloat64 { return amounts[row] }),
	)
	if err != nil {
		return nil, err
	}

	// units are summed as integers so large quantities stay exact
	n := groups.Len()
	unitSums := make([]aggr.IntSum, n)
	for row := 0; row < ds.NumRows(); row++ {
		k, ok := key(row)
		if !ok {
			continue
		}
		gi, _ := groups.Lookup(k)
		unitSums[gi].Update(qty[row])
	}

	categories := make([]string, n)
	flags := make([]string, n)
	sales := make([]sql.NullFloat64, n)
	units := make([]sql.NullInt64, n)
	perUnit := make([]sql.NullFloat64, n)
	for gi, k := range groups.Keys {
		categories[gi] = k.category
		flags[gi] = k.flag
		sales[gi] = groups.Sum(gi)
		units[gi] = unitSums[gi].Finalize()
		if sales[gi].Valid && units[gi].Valid && units[gi].Int64 > 0 {
			perUnit[gi] = sql.NullFloat64{Float64: sales[gi].Float64 / float64(units[gi].Int64), Valid: true}
		}
	}
	order := aggr.StableSort(n,
		aggr.NewStringSortKey(categories, true),
		aggr.NewStringSortKey(flags, true),
	)
	return newResult().
		strings("category", aggr.Take(categories, order)).
		strings("discount_flag", aggr.Take(flags, order)).
		floats("total_sales", aggr.Take(sales, order)).
		ints("total_units", aggr.Take(units, order)).
		floats("sales_per_unit_proxy", aggr.Take(perUnit, order)).
		build(opts.limit())
}
