package cli

import (
	"fmt"
	"io"

	"sales-report-go/config"
	"sales-report-go/reports"
	"sales-report-go/server"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available reports",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			table := tablewriter.NewWriter(out)
			table.SetAutoFormatHeaders(false)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"report", "description"})
			for _, r := range reports.All() {
				table.Append([]string{r.Name, r.Description})
			}
			table.Render()
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the source once and serve reports over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetConfig()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()
			ds, err := loadDataset(ctx, cfg, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer ds.Release()
			engine := reports.NewEngine(ds, reports.OptionsFromConfig(cfg), reports.ExecOptions{})
			return server.Start(ctx, cfg, engine)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host, overrides server.host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port, overrides server.port")
	return cmd
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(out, Version)
		},
	}
}
