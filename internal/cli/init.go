// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/finanzas, cmd/finanzas-worker, and cmd/finanzasctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/config"
	"finanzas/internal/llm"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/summary"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ConfigureJSON makes decimals encode as JSON numbers in every payload the
// binaries write: API responses, CLI output and model prompts.
func ConfigureJSON() {
	decimal.MarshalJSONWithoutQuotes = true
}

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default. Unknown levels fall back to info;
// Validate reports them.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	level, _ := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Bootstrap runs the shared startup sequence of every binary: JSON encoding,
// .env, config, logger. It exits the process when the configuration is invalid.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	ConfigureJSON()
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	logger := SetupLogger(cfg, component)
	if err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenStore creates the configured backend, seeding it when SEED_ON_START is set.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
}

// NewSummaryService builds the aggregation service with the configured pacing.
func NewSummaryService(cfg *config.Config, store services.SummaryReader) (*services.SummaryService, error) {
	mode, err := summary.ParsePacingMode(cfg.PacingMode)
	if err != nil {
		return nil, err
	}
	return services.NewSummaryService(store, mode), nil
}

// ConnectBroker dials RabbitMQ when AMQP_URL is set. A nil client with a nil
// error means the broker is disabled.
func ConnectBroker(logger *applog.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.BrokerEnabled() {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

// NewLLMClient creates the Gemini client when GEMINI_API_KEY is set. A nil
// client with a nil error means statement parsing and reports are disabled.
func NewLLMClient(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*llm.Client, error) {
	if !cfg.LLMEnabled() {
		logger.Info("Gemini disabled - no GEMINI_API_KEY provided")
		return nil, nil
	}
	client, err := llm.New(ctx, llm.Config{
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.GeminiModel,
		CacheSize: cfg.ParseCacheSize,
		CacheTTL:  cfg.ParseCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Initialized Gemini client", "model", cfg.GeminiModel)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
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
