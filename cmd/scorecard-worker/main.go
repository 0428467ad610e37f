package main

import (
	"context"
	"errors"
	"os"
	"time"

	"scorecard/internal/amqp"
	"scorecard/internal/cli"
	"scorecard/internal/worker"
)

const consumeRetryDelay = 5 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting scorecard-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	// The worker writes to the sinks itself; it never re-queues.
	be := cli.InitBackend(ctx, logger, cfg, false)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	exportWorker, err := worker.NewExportWorker(be.Sinks, nil, logger)
	if err != nil {
		logger.Error("Failed to create export worker", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	go exportWorker.RunMaintenance(ctx, cfg.WorkerStatsInterval)

	logger.Info("Export worker ready",
		"backend", cfg.ExportBackend,
		"targets", be.Sinks.Targets(),
		"queue", cfg.AMQPQueue)

	for {
		err := amqpClient.ConsumeExportRequests(ctx, exportWorker.HandleExportRequest)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			break
		}
		logger.Error("Message consumption failed, retrying", "error", err, "delay", consumeRetryDelay)
		select {
		case <-ctx.Done():
		case <-time.After(consumeRetryDelay):
			continue
		}
		break
	}

	st := exportWorker.Stats()
	logger.Info("Worker shutdown complete",
		"handled", st.Handled,
		"failed", st.Failed,
		"duplicates", st.Duplicates)
}
