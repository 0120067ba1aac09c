package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

type stubExpenses struct {
	amounts []decimal.Decimal
	err     error

	gotCategory string
	gotPeriod   core.Period
}

func (s *stubExpenses) ExpenseAmounts(_ context.Context, _ int64, category string, period core.Period) ([]decimal.Decimal, error) {
	s.gotCategory = category
	s.gotPeriod = period
	return s.amounts, s.err
}

func TestAggregator_SpendInCategory(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		want    string
	}{
		{"no rows", nil, "0"},
		{"single expense", []string{"-42.10"}, "42.10"},
		{"sums magnitudes", []string{"-0.1", "-0.2", "-0.3"}, "0.6"},
		{"ignores stray income", []string{"-10", "25"}, "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExpenses{}
			for _, a := range tt.amounts {
				stub.amounts = append(stub.amounts, decimal.RequireFromString(a))
			}
			agg := NewAggregator(stub)

			got, err := agg.SpendInCategory(context.Background(), 1, " Food ", core.Period{Month: 3, Year: 2025})
			if err != nil {
				t.Fatalf("SpendInCategory: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("spent = %s, want %s", got, tt.want)
			}
			if stub.gotCategory != "Food" {
				t.Errorf("category passed = %q, want trimmed", stub.gotCategory)
			}
			if stub.gotPeriod != (core.Period{Month: 3, Year: 2025}) {
				t.Errorf("period passed = %+v", stub.gotPeriod)
			}
		})
	}
}

func TestAggregator_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("period validation", func(t *testing.T) {
		agg := NewAggregator(&stubExpenses{})
		// year without month covers the whole year
		if _, err := agg.SpendInCategory(ctx, 1, "Food", core.Period{Year: 2025}); err != nil {
			t.Fatalf("year-only period rejected: %v", err)
		}
		if _, err := agg.SpendInCategory(ctx, 1, "Food", core.Period{Month: 13, Year: 2025}); !errors.Is(err, core.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("invalid user", func(t *testing.T) {
		agg := NewAggregator(&stubExpenses{})
		if _, err := agg.SpendInCategory(ctx, 0, "Food", core.AllTime); !errors.Is(err, core.ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("store failure propagates", func(t *testing.T) {
		agg := NewAggregator(&stubExpenses{err: &core.StorageError{Op: "list", Err: errors.New("locked")}})
		if _, err := agg.SpendInCategory(ctx, 1, "Food", core.AllTime); !errors.Is(err, core.ErrStorage) {
			t.Errorf("err = %v, want ErrStorage", err)
		}
	})
}
