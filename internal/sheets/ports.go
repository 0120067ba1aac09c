package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound spreadsheet adapters. Every write replaces the
// sheet's previous content.
type (
	SummaryWriter interface {
		WriteBudgetSummary(ctx context.Context, rows []core.CategoryStatus) error
	}

	TransactionWriter interface {
		WriteTransactions(ctx context.Context, txs []core.Transaction) error
	}

	// Exporter mirrors the ledger into a spreadsheet.
	Exporter interface {
		SummaryWriter
		TransactionWriter
	}
)
