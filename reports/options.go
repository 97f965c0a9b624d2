// Package reports holds the five sales reports and the engine that runs them
// over one loaded dataset.
package reports

import (
	"strings"

	"sales-report-go/config"
)

// Columns names the source columns a report reads.
type Columns struct {
	Date     string
	Amount   string
	Qty      string
	Category string
	SKU      string
	Status   string
	Region   string
	Promo    string
}

type Options struct {
	TargetYear           int
	UnprofitableStatuses []string // matched against the lowercased status
	RankCutoff           int
	RowLimit             int // <= 0 keeps every row
	Columns              Columns
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

func OptionsFromConfig(cfg *config.Config) Options {
	c := cfg.Reports.Columns
	statuses := make([]string, len(cfg.Reports.UnprofitableStatuses))
	for i, s := range cfg.Reports.UnprofitableStatuses {
		statuses[i] = strings.ToLower(s)
	}
	return Options{
		TargetYear:           cfg.Reports.TargetYear,
		UnprofitableStatuses: statuses,
		RankCutoff:           cfg.Reports.RankCutoff,
		RowLimit:             cfg.Reports.RowLimit,
		Columns: Columns{
			Date:     c.Date,
			Amount:   c.Amount,
			Qty:      c.Qty,
			Category: c.Category,
			SKU:      c.SKU,
			Status:   c.Status,
			Region:   c.Region,
			Promo:    c.Promo,
		},
	}
}

func (o Options) statusSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.UnprofitableStatuses))
	for _, s := range o.UnprofitableStatuses {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}

func (o Options) limit() int {
	if o.RowLimit <= 0 {
		return -1
	}
	return o.RowLimit
}
