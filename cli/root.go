// Package cli is the sales-report command line.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sales-report-go/config"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X sales-report-go/cli.Version=...".
var Version = "dev"

type globalFlags struct {
	configPath string
	envFile    string
	source     string
	logLevel   string
}

// NewRootCmd builds the command tree writing results to out and diagnostics
// to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "sales-report",
		Short:         "Run sales analytics reports over a raw order export",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(errOut, flags)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a .yaml config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "file holding credentials, ignored when missing")
	pf.StringVar(&flags.source, "source", "", "local csv or parquet file, overrides source.path")
	pf.StringVar(&flags.logLevel, "log-level", "", "panic|fatal|error|warn|info|debug|trace, overrides output.log_level")

	root.AddCommand(
		newRunCmd(out, errOut),
		newListCmd(out),
		newServeCmd(),
		newVersionCmd(out),
	)
	return root
}

func setup(errOut io.Writer, flags globalFlags) error {
	if flags.configPath != "" {
		if err := config.Decode(flags.configPath); err != nil {
			return errors.Wrapf(err, "config %s", flags.configPath)
		}
	}
	if err := config.LoadSecrets(flags.envFile); err != nil {
		return err
	}
	cfg := config.GetConfig()
	if flags.source != "" {
		cfg.Source.Path = flags.source
		cfg.Source.Kind = kindFromPath(flags.source)
	}

	level := cfg.Output.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logrus.SetOutput(errOut)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(lvl)
	return nil
}

func kindFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return "parquet"
	}
	return "csv"
}

// Execute runs the command line and exits non-zero on any failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		stop()
		os.Exit(1)
	}
}
