package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"scorecard/internal/cli"
	apphttp "scorecard/internal/http"
	"scorecard/internal/scorecard"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	gen, err := cli.NewGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize initiative generator", "error", err, "generator", cfg.Generator)
		os.Exit(1)
	}

	be := cli.InitBackend(ctx, logger, cfg, true)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	svc := scorecard.NewService(
		scorecard.WithGenerator(gen),
		scorecard.WithExporter(be.Exporter),
		scorecard.WithBalanceEpsilon(cfg.BalanceEpsilon),
		scorecard.WithLogger(logger),
	)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Service:            svc,
		Suggestions:        be.Suggestions,
		History:            be.History,
		Ready:              be.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheSize:    cfg.ReportCacheSize,
		ReportCacheTTL:     cfg.ReportCacheTTL,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting scorecard server",
		"port", cfg.Port,
		"backend", cfg.ExportBackend,
		"queue", cfg.AMQPEnabled(),
		"generator", cfg.Generator)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
