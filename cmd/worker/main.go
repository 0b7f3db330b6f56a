package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/dje-harvester/internal/bootstrap"
	"github.com/kirillkom/dje-harvester/internal/config"
	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/observability/logging"
)

const serviceName = "dje-worker"

func main() {
	cfg := config.Load()
	cfg.NATSEnabled = true
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSRequestSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeHarvestRequests(ctx, func(handlerCtx context.Context, req domain.HarvestRequest) error {
		runCtx := handlerCtx
		if cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(handlerCtx, cfg.RunTimeout)
			defer cancel()
		}
		_, err := app.HarvestUC.Harvest(runCtx, req)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
