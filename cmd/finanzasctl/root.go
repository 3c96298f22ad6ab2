package main

import (
	"context"
	"fmt"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/services"

	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
	now    func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "finanzasctl",
		Short: "Operate the finanzas ledger from the command line",
		Long: `finanzasctl manages the finanzas ledger: it applies migrations, loads
seed files, imports and exports categorised CSV and prints summaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.ConfigureJSON()
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			level, _ := applog.ParseLevel(cfg.LogLevel)
			a.cfg = cfg
			a.logger = applog.New(applog.Config{
				Level:     level,
				Format:    cfg.LogFormat,
				Component: applog.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			applog.SetDefault(a.logger)
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newSummaryCmd(a),
		newSheetsAuthCmd(a),
	)
	return root
}

// openStore opens the configured backend without the start-up seed; seeding
// from the CLI is explicit.
func (a *app) openStore(ctx context.Context) (*backend.BackendResult, error) {
	cfg := *a.cfg
	cfg.SeedOnStart = false
	return cli.OpenStore(ctx, a.logger, &cfg)
}

// ledger opens the store and wraps it in a LedgerService that publishes
// events when a broker is configured. closeFn releases both.
func (a *app) ledger(ctx context.Context) (svc *services.LedgerService, closeFn func(), err error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	var events services.EventPublisher
	broker, err := cli.ConnectBroker(a.logger, a.cfg)
	if err != nil {
		a.logger.Warn("Continuing without ledger events", applog.FieldError, err)
	} else if broker != nil {
		events = broker
	}

	svc = services.NewLedgerService(store.Store, events)
	closeFn = func() {
		if broker != nil {
			_ = broker.Close()
		}
		_ = svc.Close()
	}
	return svc, closeFn, nil
}

// period fills a zero year or month from the current date.
func (a *app) period(year, month int) (int, int) {
	now := a.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	return year, month
}

func requireSQLite(cfg *config.Config) error {
	if cfg.DataBackend != config.BackendSQLite {
		return fmt.Errorf("migrations need DATA_BACKEND=%s, got %q", config.BackendSQLite, cfg.DataBackend)
	}
	return nil
}
