package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// ExpenseReader returns raw expense amounts for a category window.
type ExpenseReader interface {
	ExpenseAmounts(ctx context.Context, userID int64, category string, period core.Period) ([]decimal.Decimal, error)
}

// Aggregator turns stored expense rows into spend totals.
type Aggregator struct {
	store ExpenseReader
}

func NewAggregator(store ExpenseReader) *Aggregator {
	return &Aggregator{store: store}
}

// SpendInCategory returns the sum of the absolute values of the user's
// expenses in category during period. Income never contributes.
func (a *Aggregator) SpendInCategory(ctx context.Context, userID int64, category string, period core.Period) (decimal.Decimal, error) {
	if err := core.ValidateUserID(userID); err != nil {
		return decimal.Zero, err
	}
	if err := period.Validate(); err != nil {
		return decimal.Zero, err
	}

	amounts, err := a.store.ExpenseAmounts(ctx, userID, strings.TrimSpace(category), period)
	if err != nil {
		return decimal.Zero, fmt.Errorf("spend in category %s: %w", category, err)
	}

	spent := decimal.Zero
	for _, amt := range amounts {
		if amt.IsNegative() {
			spent = spent.Add(amt.Abs())
		}
	}
	return spent, nil
}
