package reports

import (
	"context"
	"time"

	"sales-report-go/operators"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one report. Exactly one of Batch and Err is set.
type Result struct {
	Name    string
	Batch   *operators.RecordBatch
	Err     error
	Elapsed time.Duration
}

type ExecOptions struct {
	Parallel             bool
	MaxConcurrentReports int
	// OnDone is called once per finished report, from the goroutine that ran it.
	OnDone func(Result)
}

// Engine runs reports over one dataset. The dataset is shared read-only, so
// reports may run in any order or all at once.
type Engine struct {
	ds   *operators.Dataset
	opts Options
	exec ExecOptions
}

func NewEngine(ds *operators.Dataset, opts Options, exec ExecOptions) *Engine {
	if exec.MaxConcurrentReports <= 0 {
		exec.MaxConcurrentReports = 1
	}
	return &Engine{ds: ds, opts: opts, exec: exec}
}

func (e *Engine) Dataset() *operators.Dataset {
	return e.ds
}

// Run executes one report. A failure is returned in the Result, wrapped with
// the report name.
func (e *Engine) Run(ctx context.Context, name string) (res Result) {
	start := time.Now()
	res.Name = name
	defer func() {
		res.Elapsed = time.Since(start)
		if e.exec.OnDone != nil {
			e.exec.OnDone(res)
		}
	}()

	report, err := Lookup(name)
	if err != nil {
		res.Err = err
		return
	}
	if err := ctx.Err(); err != nil {
		res.Err = errors.Wrapf(err, "report %q", name)
		return
	}
	batch, err := report.Build(ctx, e.ds, e.opts)
	if err != nil {
		res.Err = errors.Wrapf(err, "report %q", name)
		logrus.WithError(res.Err).WithField("report", name).Warn("report failed")
		return
	}
	res.Batch = batch
	logrus.WithFields(logrus.Fields{
		"report": name,
		"rows":   batch.RowCount,
		"took":   time.Since(start),
	}).Debug("report finished")
	return
}

// RunAll executes every report in canonical order.
func (e *Engine) RunAll(ctx context.Context) []Result {
	return e.RunMany(ctx, Names())
}

// RunMany executes the named reports. One report failing never stops the
// others; results come back in the order the names were given.
func (e *Engine) RunMany(ctx context.Context, names []string) []Result {
	results := make([]Result, len(names))
	if !e.exec.Parallel {
		for i, name := range names {
			results[i] = e.Run(ctx, name)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.exec.MaxConcurrentReports)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = e.Run(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed reports whether any result carries an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Release frees every result batch.
func Release(results []Result) {
	for _, r := range results {
		if r.Batch != nil {
			r.Batch.Release()
		}
	}
}
