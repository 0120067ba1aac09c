package core

import "github.com/shopspring/decimal"

// CategoryStatus is one row of a budget summary.
type CategoryStatus struct {
	Category string
	Limit    *decimal.Decimal // nil when no budget is set
	Spent    decimal.Decimal
	Status   Verdict
}

// HasBudget reports whether a limit exists for the category.
func (c CategoryStatus) HasBudget() bool {
	return c.Limit != nil
}

// Remaining returns limit minus spent, or zero when no budget is set.
func (c CategoryStatus) Remaining() decimal.Decimal {
	if c.Limit == nil {
		return decimal.Zero
	}
	return c.Limit.Sub(c.Spent)
}

// RecordResult is the outcome of a ledger write.
// PreAlert and PostStatus are only set for saved expenses.
type RecordResult struct {
	Saved         bool
	TransactionID int64
	PreAlert      *Verdict
	PostStatus    *Verdict
}
