package cli

import (
	"context"
	"fmt"
	"io"

	"sales-report-go/config"
	"sales-report-go/operators"
	"sales-report-go/operators/project"
	"sales-report-go/render"
	"sales-report-go/reports"

	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var ErrReportsFailed = errors.New("one or more reports failed")

type runFlags struct {
	reports  []string
	format   string
	progress bool
	parallel bool
}

func newRunCmd(out, errOut io.Writer) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the source and run reports",
		Long: `Load the configured source once and run the selected reports over it.
Every report runs even when another fails; the command exits non-zero if any did.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReports(cmd.Context(), out, errOut, config.GetConfig(), flags)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&flags.reports, "report", "r", nil, "report to run, repeatable (default all)")
	f.StringVarP(&flags.format, "format", "f", "", "table|csv|json|arrow, overrides output.format")
	f.BoolVar(&flags.progress, "progress", false, "show load and report progress on stderr")
	f.BoolVar(&flags.parallel, "parallel", false, "run reports concurrently")
	return cmd
}

func runReports(ctx context.Context, out, errOut io.Writer, cfg *config.Config, flags runFlags) error {
	formatName := cfg.Output.Format
	if flags.format != "" {
		formatName = flags.format
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		return err
	}
	names := flags.reports
	if len(names) == 0 {
		names = reports.Names()
	}
	for _, name := range names {
		if _, err := reports.Lookup(name); err != nil {
			return err
		}
	}

	ds, err := loadDataset(ctx, cfg, errOut, flags.progress)
	if err != nil {
		return err
	}
	defer ds.Release()

	exec := reports.ExecOptions{
		Parallel:             cfg.Execution.Parallel || flags.parallel,
		MaxConcurrentReports: cfg.Execution.MaxConcurrentReports,
	}
	if flags.progress {
		bar := progressbar.NewOptions(len(names),
			progressbar.OptionSetWriter(errOut),
			progressbar.OptionSetDescription("reports"),
			progressbar.OptionShowCount(),
		)
		exec.OnDone = func(reports.Result) { _ = bar.Add(1) }
		defer func() {
			_ = bar.Finish()
			fmt.Fprintln(errOut)
		}()
	}

	engine := reports.NewEngine(ds, reports.OptionsFromConfig(cfg), exec)
	results := engine.RunMany(ctx, names)
	defer reports.Release(results)

	failed, err := render.New(format, cfg.Output.FloatPrecision).WriteAll(out, errOut, results)
	if err != nil {
		return err
	}
	if failed > 0 {
		return errors.Wrapf(ErrReportsFailed, "%d of %d", failed, len(results))
	}
	return nil
}

// loadDataset reads the configured source, reporting rows read when progress
// is on.
func loadDataset(ctx context.Context, cfg *config.Config, errOut io.Writer, progress bool) (*operators.Dataset, error) {
	var onBatch func(int)
	if progress {
		bar := progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(errOut),
			progressbar.OptionSetDescription("loading rows"),
			progressbar.OptionShowCount(),
		)
		onBatch = func(rows int) { _ = bar.Add(rows) }
		defer func() {
			_ = bar.Finish()
			fmt.Fprintln(errOut)
		}()
	}
	ds, err := project.Load(ctx, cfg, onBatch)
	if err != nil {
		return nil, errors.Wrap(err, "load source")
	}
	logrus.WithFields(logrus.Fields{
		"kind": cfg.Source.Kind,
		"rows": ds.NumRows(),
	}).Info("dataset loaded")
	return ds, nil
}
