package sheets

import (
	"context"

	"finanzas/internal/summary"
)

// Ports for outbound adapters.
type (
	// YearlyExporter publishes a yearly summary to a spreadsheet tab named
	// "<year> <profile>", replacing whatever the tab held before.
	YearlyExporter interface {
		ExportYearly(ctx context.Context, y summary.Yearly) (ref string, err error)
	}
)
