package worker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

// StatusReader re-reads the live status of a category.
type StatusReader interface {
	CategoryStatus(ctx context.Context, userID int64, category string) (core.CategoryStatus, error)
}

// Exporter refreshes the spreadsheet mirror of a user's ledger.
type Exporter interface {
	Export(ctx context.Context, userID int64) error
}

// AlertWorker handles budget alerts delivered over AMQP.
type AlertWorker struct {
	ledger   StatusReader
	exporter Exporter
	logger   *applog.Logger
}

// NewAlertWorker creates a worker. exporter may be nil.
func NewAlertWorker(ledger StatusReader, exporter Exporter, logger *applog.Logger) *AlertWorker {
	return &AlertWorker{
		ledger:   ledger,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentAlerts),
	}
}

// HandleBudgetAlert logs the alert against the category's live status and
// refreshes the sheets export. An alert that is no longer current is logged
// and acknowledged.
func (w *AlertWorker) HandleBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	live, err := w.ledger.CategoryStatus(ctx, msg.UserID, msg.Category)
	if err != nil {
		return fmt.Errorf("read category status: %w", err)
	}

	limit := decimal.Zero
	if live.Limit != nil {
		limit = *live.Limit
	}
	fields := applog.NewFields().
		WithOperation(applog.OpBudget).
		WithTransaction(msg.UserID, msg.TransactionID, msg.Category).
		WithBudgetStatus(live.Status.String(), limit, live.Spent)

	if !live.Status.IsAlert() {
		w.logger.InfoContext(ctx, "Budget alert no longer current", fields.ToSlice()...)
	} else {
		w.logger.WarnContext(ctx, "Budget alert", fields.ToSlice()...)
	}

	if w.exporter == nil {
		return nil
	}
	if err := w.exporter.Export(ctx, msg.UserID); err != nil {
		return fmt.Errorf("export after alert: %w", err)
	}
	return nil
}
