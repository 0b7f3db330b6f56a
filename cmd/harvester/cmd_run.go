package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dje-harvester/internal/bootstrap"
	"github.com/kirillkom/dje-harvester/internal/config"
	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

var runFlags struct {
	search   searchFlags
	report   string
	workers  int
	maxPages int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one harvest over a date range",
	RunE:  runHarvest,
}

func init() {
	runFlags.search.register(runCmd)
	f := runCmd.Flags()
	f.StringVar(&runFlags.report, "report", "", "Write stored cases to this XLSX file (default REPORT_PATH)")
	f.IntVar(&runFlags.workers, "workers", 0, "Concurrent document downloads (default HARVEST_WORKERS)")
	f.IntVar(&runFlags.maxPages, "max-pages", 0, "Result page guard (default MAX_PAGES)")
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, &runFlags.search, config.Load())
	if err != nil {
		return err
	}
	if runFlags.workers > 0 {
		cfg.HarvestWorkers = runFlags.workers
	}
	if runFlags.maxPages > 0 {
		cfg.MaxPages = runFlags.maxPages
	}
	if runFlags.report != "" {
		cfg.ReportPath = runFlags.report
	}
	setupLogging(cfg)

	req := runFlags.search.request(cfg, time.Now())
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	summary, runErr := app.HarvestUC.Harvest(ctx, req)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
		if cfg.ReportPath != "" {
			if err := app.Reports.Export(cfg.ReportPath, summary.Cases()); err != nil {
				slog.Error("report_export_failed", "path", cfg.ReportPath, "error", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Report:     %s\n", cfg.ReportPath)
			}
		}
	}
	return runErr
}

func printSummary(out io.Writer, s *domain.HarvestSummary) {
	fmt.Fprintf(out, "Range:      %s - %s (caderno %s)\n", s.Request.DateStart, s.Request.DateEnd, s.Request.SectionCode)
	fmt.Fprintf(out, "Pages:      %d\n", s.Pages)
	fmt.Fprintf(out, "Documents:  %d fetched, %d duplicates, %d download failures, %d extraction failures\n",
		s.DocumentsFetched, s.DuplicatesSkipped, s.DownloadFailures, s.ExtractionFailures)
	fmt.Fprintf(out, "Blocks:     %d matched, %d skipped, %d failed\n", s.BlocksMatched, s.BlocksSkipped, s.BlocksFailed)
	fmt.Fprintf(out, "Stored:     %d issues, %d cases (%d case failures)\n", s.IssuesStored, s.CasesStored, s.CaseStoreFailures)
}
