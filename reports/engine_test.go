package reports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sales-report-go/config"
)

func TestRegistry(t *testing.T) {
	want := []string{"cumulative_sales", "negative_revenue_by_region", "promo_breakdown", "top_skus_by_category", "monthly_growth"}
	names := Names()
	if len(names) != len(want) {
		t.Fatalf("expected %d reports, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
	if _, err := Lookup("monthly_growth"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Lookup("weekly_growth"); !errors.Is(err, ErrUnknownReport) {
		t.Fatalf("expected ErrUnknownReport, got %v", err)
	}
}

func TestEngineRun(t *testing.T) {
	ds := loadFixture(t)
	defer ds.Release()

	t.Run("unknown report", func(t *testing.T) {
		res := NewEngine(ds, DefaultOptions(), ExecOptions{}).Run(context.Background(), "nope")
		if !errors.Is(res.Err, ErrUnknownReport) || res.Batch != nil {
			t.Fatalf("expected unknown report error, got %+v", res)
		}
	})
	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res := NewEngine(ds, DefaultOptions(), ExecOptions{}).Run(ctx, "cumulative_sales")
		if !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", res.Err)
		}
	})
	t.Run("on done sees the final result", func(t *testing.T) {
		var got Result
		engine := NewEngine(ds, DefaultOptions(), ExecOptions{OnDone: func(r Result) { got = r }})
		res := engine.Run(context.Background(), "monthly_growth")
		defer Release([]Result{res})
		if got.Batch != res.Batch || got.Name != "monthly_growth" || got.Elapsed <= 0 {
			t.Fatalf("callback got %+v", got)
		}
	})
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	ds := loadFixture(t)
	defer ds.Release()

	sequential := NewEngine(ds, DefaultOptions(), ExecOptions{}).RunAll(context.Background())
	defer Release(sequential)

	var mu sync.Mutex
	done := map[string]int{}
	parallel := NewEngine(ds, DefaultOptions(), ExecOptions{
		Parallel:             true,
		MaxConcurrentReports: 3,
		OnDone: func(r Result) {
			mu.Lock()
			done[r.Name]++
			mu.Unlock()
		},
	}).RunAll(context.Background())
	defer Release(parallel)

	if Failed(sequential) || Failed(parallel) {
		t.Fatalf("no report should fail on the fixture")
	}
	for i := range sequential {
		if sequential[i].Name != parallel[i].Name {
			t.Fatalf("position %d: expected %s, got %s", i, sequential[i].Name, parallel[i].Name)
		}
		if !sameBatch(sequential[i].Batch, parallel[i].Batch) {
			t.Fatalf("%s differs when run in parallel", sequential[i].Name)
		}
	}
	for _, name := range Names() {
		if done[name] != 1 {
			t.Fatalf("expected one callback for %s, got %d", name, done[name])
		}
	}
}

func TestRunManySubset(t *testing.T) {
	ds := loadFixture(t)
	defer ds.Release()
	results := NewEngine(ds, DefaultOptions(), ExecOptions{Parallel: true}).
		RunMany(context.Background(), []string{"top_skus_by_category", "bogus", "cumulative_sales"})
	defer Release(results)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("valid reports should succeed: %v %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, ErrUnknownReport) {
		t.Fatalf("expected ErrUnknownReport, got %v", results[1].Err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reports.TargetYear = 2021
	cfg.Reports.UnprofitableStatuses = []string{"Cancelled", "LOST"}
	cfg.Reports.Columns.Region = "region"
	opts := OptionsFromConfig(cfg)
	if opts.TargetYear != 2021 || opts.Columns.Region != "region" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, ok := opts.statusSet()["lost"]; !ok {
		t.Fatalf("statuses should be lowercased, got %v", opts.UnprofitableStatuses)
	}
	if DefaultOptions().RankCutoff != 3 || DefaultOptions().TargetYear != 2022 {
		t.Fatalf("unexpected defaults %+v", DefaultOptions())
	}
}
