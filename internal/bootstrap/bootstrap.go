package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/dje-harvester/internal/config"
	"github.com/kirillkom/dje-harvester/internal/core/extraction"
	"github.com/kirillkom/dje-harvester/internal/core/ports"
	"github.com/kirillkom/dje-harvester/internal/core/usecase"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/fetcher/dje"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/queue/nats"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/resilience"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/search/chromedp"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/dje-harvester/internal/observability/metrics"
)

type App struct {
	Config config.Config

	HarvestUC ports.Harvester
	Repo      *postgres.GazetteRepository
	Queue     *nats.Queue
	Metrics   *metrics.HarvestMetrics
	Reports   *xlsx.Exporter

	closers []func()
}

// New wires every adapter. On error, whatever was already opened is closed
// before returning.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	a := &App{Config: cfg}
	if err := a.wire(ctx, service); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, service string) error {
	cfg := a.Config

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	repo := postgres.NewGazetteRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.Repo = repo

	harvestCfg := usecase.HarvestConfig{
		MaxPages:        cfg.MaxPages,
		Workers:         cfg.HarvestWorkers,
		PersistEachPage: &cfg.PersistEachPage,
	}

	if cfg.ArchivePath != "" {
		archive, err := localfs.New(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("init document archive: %w", err)
		}
		harvestCfg.Archive = archive
	}

	if cfg.NATSEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
			RequestSubject:     cfg.NATSRequestSubject,
			CaseSubject:        cfg.NATSCaseSubject,
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		a.closers = append(a.closers, queue.Close)
		a.Queue = queue
		harvestCfg.Events = queue
	}

	fetcher, err := dje.NewWithOptions(dje.Options{
		Timeout:            cfg.FetchTimeout,
		RatePerSecond:      cfg.FetchRatePerSecond,
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig().WithAttempts(cfg.FetchRetryAttempts)),
	})
	if err != nil {
		return fmt.Errorf("init document fetcher: %w", err)
	}

	sessions := chromedp.NewOpener(chromedp.Options{
		BaseURL:     cfg.DJEBaseURL,
		Headless:    &cfg.BrowserHeadless,
		StepTimeout: cfg.BrowserTimeout,
		SettleDelay: cfg.PageSettleDelay,
	})

	a.Metrics = metrics.NewHarvestMetrics(service)
	harvestCfg.Metrics = a.Metrics

	textExtractor := pdf.NewExtractor(plaintext.NewExtractor())
	cases := extraction.NewExtractor(extraction.NewSegmenter(cfg.RequiredTerms))

	a.HarvestUC = usecase.NewHarvestUseCase(sessions, fetcher, textExtractor, cases, repo, harvestCfg)
	a.Reports = xlsx.NewExporter()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
