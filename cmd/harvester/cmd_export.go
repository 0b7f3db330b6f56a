package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dje-harvester/internal/bootstrap"
	"github.com/kirillkom/dje-harvester/internal/config"
	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

var exportFlags struct {
	from string
	to   string
	out  string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored cases for a date range to XLSX",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.from, "from", "", "First availability date, DD/MM/YYYY (required)")
	f.StringVar(&exportFlags.to, "to", "", "Last availability date, DD/MM/YYYY (required)")
	f.StringVarP(&exportFlags.out, "out", "o", "", "Output XLSX path (required)")

	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, _ []string) error {
	from, err := domain.ParseCanonicalDate(exportFlags.from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := domain.ParseCanonicalDate(exportFlags.to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	cfg := config.Load()
	cfg.NATSEnabled = false
	setupLogging(cfg)

	app, err := bootstrap.New(cmd.Context(), cfg, serviceName)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	cases, err := app.Repo.ListCases(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	if err := app.Reports.Export(exportFlags.out, cases); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cases to %s\n", len(cases), exportFlags.out)
	return nil
}
