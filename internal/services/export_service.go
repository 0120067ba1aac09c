package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// LedgerReader is the read side of the ledger the exporter mirrors.
type LedgerReader interface {
	BudgetSummary(ctx context.Context, userID int64) ([]core.CategoryStatus, error)
	ListTransactions(ctx context.Context, userID int64, period core.Period) ([]core.Transaction, error)
}

// ExportService mirrors a user's budget summary and transactions into a
// spreadsheet. Export runs outside the write path, so a failure here never
// affects stored data.
type ExportService struct {
	ledger  LedgerReader
	sheets  sheets.Exporter
	timeout time.Duration
}

// NewExportService creates an exporter. A non-positive timeout disables the deadline.
func NewExportService(ledger LedgerReader, exporter sheets.Exporter, timeout time.Duration) *ExportService {
	return &ExportService{
		ledger:  ledger,
		sheets:  exporter,
		timeout: timeout,
	}
}

// Export reads the user's current ledger state and rewrites both sheets.
func (s *ExportService) Export(ctx context.Context, userID int64) error {
	if s.sheets == nil {
		return fmt.Errorf("export: no sheets exporter configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := applog.FromContext(ctx).WithComponent(applog.ComponentExport)
	start := time.Now()

	err := s.export(ctx, userID)

	fields := applog.NewFields().WithOperation(applog.OpExport)
	fields[applog.FieldUserID] = userID
	fields[applog.FieldDuration] = time.Since(start).Milliseconds()
	if err != nil {
		fields.WithError(err, applog.ErrorTypeOf(err))
		logger.ErrorContext(ctx, "Sheets export failed", fields.ToSlice()...)
		return err
	}
	logger.InfoContext(ctx, "Ledger exported to sheets", fields.ToSlice()...)
	return nil
}

func (s *ExportService) export(ctx context.Context, userID int64) error {
	summary, err := s.ledger.BudgetSummary(ctx, userID)
	if err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	txs, err := s.ledger.ListTransactions(ctx, userID, core.AllTime)
	if err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.sheets.WriteBudgetSummary(gctx, summary); err != nil {
			return fmt.Errorf("write budget summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.sheets.WriteTransactions(gctx, txs); err != nil {
			return fmt.Errorf("write transactions: %w", err)
		}
		return nil
	})
	return g.Wait()
}
