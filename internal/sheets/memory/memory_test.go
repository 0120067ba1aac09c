package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

func TestStoreReplacesSheets(t *testing.T) {
	s := New()
	ctx := context.Background()

	if got := s.Summary(); got != nil {
		t.Fatalf("fresh store summary = %v, want nil", got)
	}

	first := []core.Transaction{
		{ID: 1, Amount: decimal.NewFromInt(-5), Category: "Food", Date: core.NewDate(2025, 1, 1)},
		{ID: 2, Amount: decimal.NewFromInt(-7), Category: "Food", Date: core.NewDate(2025, 1, 2)},
	}
	if err := s.WriteTransactions(ctx, first); err != nil {
		t.Fatalf("WriteTransactions: %v", err)
	}
	if err := s.WriteTransactions(ctx, first[:1]); err != nil {
		t.Fatalf("WriteTransactions: %v", err)
	}

	txs := s.Transactions()
	if len(txs) != 2 {
		t.Fatalf("transactions sheet has %d rows, want header + 1", len(txs))
	}
	if txs[1][0] != "1" {
		t.Errorf("first row id = %v, want 1", txs[1][0])
	}

	if err := s.WriteBudgetSummary(ctx, []core.CategoryStatus{{Category: "Food", Spent: decimal.NewFromInt(5), Status: core.VerdictNoBudget}}); err != nil {
		t.Fatalf("WriteBudgetSummary: %v", err)
	}
	if s.Writes() != 3 {
		t.Errorf("writes = %d, want 3", s.Writes())
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New()
	_ = s.WriteBudgetSummary(context.Background(), []core.CategoryStatus{{Category: "Food", Spent: decimal.Zero, Status: core.VerdictNoBudget}})

	got := s.Summary()
	got[1][0] = "mutated"

	if s.Summary()[1][0] != "Food" {
		t.Error("caller mutation leaked into the store")
	}
}
