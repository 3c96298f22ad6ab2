package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/sheets"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// FlushInterval is how often pending profile-years are exported (default: 15s)
	FlushInterval time.Duration

	// BatchSize is the max number of profile-years exported per flush (default: 10)
	BatchSize int

	// MaxRetries is the number of failed exports before an entry is dropped (default: 3)
	MaxRetries int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		FlushInterval: 15 * time.Second,
		BatchSize:     10,
		MaxRetries:    3,
	}
}

type exportKey struct {
	profileID string
	year      int
}

// ExportStats reports the state of the pending set.
type ExportStats struct {
	Pending  int `json:"pending"`
	Exported int `json:"exported"`
	Dropped  int `json:"dropped"`
}

// ExportProcessor coalesces ledger changes into yearly Sheets exports. A burst
// of writes to the same profile-year results in one export per flush.
type ExportProcessor struct {
	summaries *SummaryService
	exporter  sheets.YearlyExporter
	config    ExportProcessorConfig

	pendingMu sync.Mutex
	pending   map[exportKey]int // failed attempts so far
	exported  int
	dropped   int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(summaries *SummaryService, exporter sheets.YearlyExporter, config ExportProcessorConfig) *ExportProcessor {
	defaults := DefaultExportProcessorConfig()
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	return &ExportProcessor{
		summaries: summaries,
		exporter:  exporter,
		config:    config,
		pending:   make(map[exportKey]int),
	}
}

// MarkDirty schedules the given profile-years for export. Years already
// pending keep their attempt count.
func (p *ExportProcessor) MarkDirty(profileID string, years ...int) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	for _, y := range years {
		k := exportKey{profileID: profileID, year: y}
		if _, ok := p.pending[k]; !ok {
			p.pending[k] = 0
		}
	}
}

// Start begins the flush loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started",
		"flush_interval", p.config.FlushInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop, waits for it and runs a final flush so that no
// pending change is lost on shutdown.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	for p.Stats().Pending > 0 && ctx.Err() == nil {
		if p.Flush(ctx) == 0 {
			break
		}
	}
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush exports up to BatchSize pending profile-years and returns how many
// entries it handled, successful or not.
func (p *ExportProcessor) Flush(ctx context.Context) int {
	batch := p.takeBatch()
	if len(batch) == 0 {
		return 0
	}
	slog.DebugContext(ctx, "Flushing yearly exports", "count", len(batch))

	for _, item := range batch {
		if ctx.Err() != nil {
			p.requeue(item.key, item.attempts)
			continue
		}
		if err := p.export(ctx, item.key); err != nil {
			p.handleFailure(ctx, item.key, item.attempts, err)
			continue
		}
		p.pendingMu.Lock()
		p.exported++
		p.pendingMu.Unlock()
	}
	return len(batch)
}

// Export rebuilds and writes one profile-year immediately.
func (p *ExportProcessor) Export(ctx context.Context, profileID string, year int) (string, error) {
	y, err := p.summaries.Yearly(ctx, profileID, year)
	if err != nil {
		return "", err
	}
	ref, err := p.exporter.ExportYearly(ctx, y)
	if err != nil {
		return "", fmt.Errorf("export yearly summary: %w", err)
	}
	return ref, nil
}

func (p *ExportProcessor) export(ctx context.Context, k exportKey) error {
	ref, err := p.Export(ctx, k.profileID, k.year)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Exported yearly summary",
		"profile_id", k.profileID,
		"year", k.year,
		"sheets_ref", ref)
	return nil
}

type pendingExport struct {
	key      exportKey
	attempts int
}

// takeBatch removes the oldest-keyed entries from the pending set. Entries
// are ordered by profile then year so flushes are deterministic.
func (p *ExportProcessor) takeBatch() []pendingExport {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	batch := make([]pendingExport, 0, len(p.pending))
	for k, attempts := range p.pending {
		batch = append(batch, pendingExport{key: k, attempts: attempts})
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].key.profileID != batch[j].key.profileID {
			return batch[i].key.profileID < batch[j].key.profileID
		}
		return batch[i].key.year < batch[j].key.year
	})
	if len(batch) > p.config.BatchSize {
		batch = batch[:p.config.BatchSize]
	}
	for _, item := range batch {
		delete(p.pending, item.key)
	}
	return batch
}

func (p *ExportProcessor) requeue(k exportKey, attempts int) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	// A MarkDirty that raced the flush already re-added the key with a
	// fresh count; keep it.
	if _, ok := p.pending[k]; !ok {
		p.pending[k] = attempts
	}
}

// handleFailure requeues a failed export until MaxRetries is reached.
// Profiles that no longer exist are dropped straight away.
func (p *ExportProcessor) handleFailure(ctx context.Context, k exportKey, attempts int, exportErr error) {
	attempts++
	slog.WarnContext(ctx, "Yearly export failed",
		"profile_id", k.profileID,
		"year", k.year,
		"attempt", attempts,
		"error", exportErr)

	if attempts >= p.config.MaxRetries || errors.Is(exportErr, core.ErrProfileNotFound) {
		p.pendingMu.Lock()
		p.dropped++
		p.pendingMu.Unlock()
		slog.ErrorContext(ctx, "Yearly export dropped",
			"profile_id", k.profileID,
			"year", k.year,
			"attempts", attempts)
		return
	}
	p.requeue(k, attempts)
}

// Stats returns current pending-set statistics
func (p *ExportProcessor) Stats() ExportStats {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return ExportStats{Pending: len(p.pending), Exported: p.exported, Dropped: p.dropped}
}
