// Package cli provides common initialization for cmd/scorecard,
// cmd/scorecard-worker and cmd/scorecardctl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scorecard/internal/backend"
	"scorecard/internal/config"
	"scorecard/internal/generator"
	"scorecard/internal/generator/gemini"
	applog "scorecard/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT
// and installs it as the default logger.
func SetupLogger() *slog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: applog.ComponentApp,
		Format:    os.Getenv("LOG_FORMAT"),
	})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// NewGenerator returns the initiative generator selected by GENERATOR.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (generator.Generator, error) {
	switch cfg.Generator {
	case config.GeneratorGemini:
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		logger.Info("Initialized Gemini generator", "model", g.Model())
		return g, nil
	default:
		logger.Info("Initialized template generator")
		return generator.Template{}, nil
	}
}

// InitBackend builds the export backend. queue routes exports through AMQP
// when a broker is configured. Exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config, queue bool) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg, queue)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return result
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged.
func ShutdownContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
