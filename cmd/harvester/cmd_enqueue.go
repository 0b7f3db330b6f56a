package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/dje-harvester/internal/config"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/queue/nats"
)

var enqueueFlags searchFlags

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Publish a harvest request for the worker",
	RunE:  runEnqueue,
}

func init() {
	enqueueFlags.register(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, &enqueueFlags, config.Load())
	if err != nil {
		return err
	}
	setupLogging(cfg)

	req := enqueueFlags.request(cfg, time.Now())
	if err := req.Validate(); err != nil {
		return err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{RequestSubject: cfg.NATSRequestSubject})
	if err != nil {
		return err
	}
	defer queue.Close()

	if err := queue.PublishHarvestRequest(cmd.Context(), req); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s - %s on %s\n", req.DateStart, req.DateEnd, cfg.NATSRequestSubject)
	return nil
}
