package reports

import (
	"context"

	"sales-report-go/operators"

	"github.com/cockroachdb/errors"
)

// Builder computes one report. Builders only read the dataset.
type Builder func(ctx context.Context, ds *operators.Dataset, opts Options) (*operators.RecordBatch, error)

type Report struct {
	Name        string
	Description string
	Build       Builder
}

var ErrUnknownReport = errors.New("unknown report")

// canonical order, the order RunAll returns results in
var registry = []Report{
	{
		Name:        "cumulative_sales",
		Description: "running total of sales over the target year",
		Build:       CumulativeSales,
	},
	{
		Name:        "negative_revenue_by_region",
		Description: "loss proxy per region from cancelled, returned and refunded orders",
		Build:       NegativeRevenueByRegion,
	},
	{
		Name:        "promo_breakdown",
		Description: "sales and units per category split by promotion presence",
		Build:       PromoBreakdown,
	},
	{
		Name:        "top_skus_by_category",
		Description: "highest selling SKUs in each category",
		Build:       TopSKUsByCategory,
	},
	{
		Name:        "monthly_growth",
		Description: "monthly sales and month over month growth",
		Build:       MonthlyGrowth,
	},
}

func Names() []string {
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.Name
	}
	return names
}

func All() []Report {
	out := make([]Report, len(registry))
	copy(out, registry)
	return out
}

func Lookup(name string) (Report, error) {
	for _, r := range registry {
		if r.Name == name {
			return r, nil
		}
	}
	return Report{}, errors.Wrapf(ErrUnknownReport, "%q", name)
}
