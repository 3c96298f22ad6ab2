package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	broker, err := cli.ConnectBroker(logger, cfg)
	if err != nil {
		// Writes still succeed without the broker; exports catch up on the next change.
		logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
	}
	var (
		events   services.EventPublisher
		requests services.ReportRequester
	)
	if broker != nil {
		defer broker.Close()
		events, requests = broker, broker
	}

	llmClient, err := cli.NewLLMClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", applog.FieldError, err)
		os.Exit(1)
	}

	summaries, err := cli.NewSummaryService(cfg, store.Store)
	if err != nil {
		logger.Error("Invalid pacing mode", applog.FieldError, err)
		os.Exit(1)
	}
	ledgerService := services.NewLedgerService(store.Store, events)
	defer ledgerService.Close()

	deps := apphttp.Dependencies{
		Logger:    logger,
		Ledger:    ledgerService,
		Summaries: summaries,
	}
	var analyzer services.Analyzer
	if llmClient != nil {
		analyzer = llmClient
		deps.Parser = llmClient
		deps.ParseCache = llmClient.Cache()

		caches := cache.NewManager()
		caches.Register(llmClient.Cache())
		caches.StartCleanup(time.Minute)
		defer caches.Stop()
	}
	deps.Reports = services.NewReportService(summaries, store.Store, analyzer, requests)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		TrustedProxies:     cfg.TrustedProxies,
	}, deps)
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"pacing", cfg.PacingMode,
		"amqp_enabled", broker != nil,
		"llm_enabled", llmClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
