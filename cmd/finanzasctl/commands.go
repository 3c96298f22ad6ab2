package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/csvio"
	"finanzas/internal/seed"
	"finanzas/internal/services"
	"finanzas/internal/storage"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		down    int
		version bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSQLite(a.cfg); err != nil {
				return err
			}
			path := a.cfg.SQLiteDBPath
			switch {
			case version:
			case down > 0:
				if err := storage.RollbackMigrations(path, down); err != nil {
					return err
				}
			default:
				if err := storage.RunMigrations(path); err != nil {
					return err
				}
			}

			v, dirty, err := storage.MigrationVersion(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations")
	cmd.Flags().BoolVar(&version, "version", false, "print the schema version without migrating")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load profiles and budget lines from a YAML seed file",
		Long: `Load profiles and budget lines from a YAML seed file. Without --file the
embedded default seed is used. Existing budget lines are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Cleanup()

			res, err := seed.Apply(cmd.Context(), store.Store, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profiles: %d, lines created: %d, lines skipped: %d\n",
				res.Profiles, res.LinesCreated, res.LinesSkipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (default: embedded seed)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		profile   string
		file      string
		source    string
		delimiter string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import categorised CSV rows as one upload batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comma := []rune(delimiter)
			if len(comma) != 1 {
				return fmt.Errorf("delimiter must be a single character, got %q", delimiter)
			}
			in, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer in.Close()

			rows, err := csvio.ReadDelimited(in, comma[0])
			if err != nil {
				return err
			}

			ledger, closeFn, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := ledger.Ingest(cmd.Context(), services.IngestRequest{
				ProfileID: profile,
				Source:    source,
				Filename:  filepath.Base(file),
				Rows:      rows,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions (batch %s)\n", res.Count, res.BatchID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "profile id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to import")
	cmd.Flags().StringVar(&source, "source", "", "source for rows without one")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		profile string
		year    int
		month   int
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a profile's transactions as CSV",
		Long: `Export a profile's transactions as CSV. --year defaults to the current
year; --month limits the export to one month of that year.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = a.now().Year()
			}
			ledger, closeFn, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			txs, err := ledger.Transactions(cmd.Context(), core.TransactionFilter{ProfileID: profile, Year: year, Month: month})
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return csvio.Write(out, txs)
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "profile id")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "year (default: current year)")
	cmd.Flags().IntVarP(&month, "month", "m", 0, "month 1-12 (default: whole year)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		profile string
		year    int
		month   int
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a budget-vs-actual summary as JSON",
	}
	cmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile id")
	cmd.PersistentFlags().IntVarP(&year, "year", "y", 0, "year (default: current year)")
	_ = cmd.MarkPersistentFlagRequired("profile")

	monthly := &cobra.Command{
		Use:   "monthly",
		Short: "Summary of one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			y, m := a.period(year, month)
			svc, closeFn, err := a.summaries(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := svc.Monthly(cmd.Context(), profile, y, m)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
	monthly.Flags().IntVarP(&month, "month", "m", 0, "month 1-12 (default: current month)")

	yearly := &cobra.Command{
		Use:   "yearly",
		Short: "Summary of one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			y, _ := a.period(year, 0)
			svc, closeFn, err := a.summaries(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := svc.Yearly(cmd.Context(), profile, y)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}

	cmd.AddCommand(monthly, yearly)
	return cmd
}

func (a *app) summaries(cmd *cobra.Command) (*services.SummaryService, func(), error) {
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc, err := cli.NewSummaryService(a.cfg, store.Store)
	if err != nil {
		_ = store.Cleanup()
		return nil, nil, err
	}
	return svc, func() { _ = store.Cleanup() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
