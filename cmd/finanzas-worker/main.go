package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzas/internal/cli"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/sheets"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/sheets/memory"
	"finanzas/internal/worker"
)

func main() {
	start := time.Now()
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting finanzas-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker is using the memory backend; it will not see the server's ledger")
	}
	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Cleanup()

	broker, err := cli.ConnectBroker(logger, cfg)
	if err != nil || broker == nil {
		logger.Error("The worker needs a broker", applog.FieldError, err)
		os.Exit(1)
	}
	defer broker.Close()

	summaries, err := cli.NewSummaryService(cfg, store.Store)
	if err != nil {
		logger.Error("Invalid pacing mode", applog.FieldError, err)
		os.Exit(1)
	}

	var exporter sheets.YearlyExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memory.New()
		logger.Info("Google Sheets disabled - exports are kept in memory")
	}

	exports := services.NewExportProcessor(summaries, exporter, services.ExportProcessorConfig{
		FlushInterval: cfg.ExportInterval,
		BatchSize:     cfg.ExportBatchSize,
	})
	if err := exports.Start(ctx); err != nil {
		logger.Error("Failed to start export processor", applog.FieldError, err)
		os.Exit(1)
	}

	llmClient, err := cli.NewLLMClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", applog.FieldError, err)
		os.Exit(1)
	}
	var reports worker.ReportGenerator
	if llmClient != nil {
		reports = services.NewReportService(summaries, store.Store, llmClient, nil)
	} else {
		logger.Info("Report generation disabled - report requests will be dropped")
	}

	w := worker.New(exports, reports)
	consumeErr := broker.Consume(ctx, w.Handlers())
	if consumeErr != nil && !errors.Is(consumeErr, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, consumeErr)
	}

	logger.Info("Shutting down worker...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := exports.Stop(shutdownCtx); err != nil {
		logger.Error("Export processor shutdown error", applog.FieldError, err)
	}

	stats := exports.Stats()
	logger.Info("Worker stopped",
		"exported", stats.Exported,
		"dropped", stats.Dropped,
		"pending", stats.Pending,
		"uptime", time.Since(start).Round(time.Second).String())
}
