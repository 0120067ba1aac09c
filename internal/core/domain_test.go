package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{" 2025-12-31 ", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-13-01", false},
		{"01/02/2025", false},
		{"", false},
	}
	for i, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d expected error", i)
			}
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("case %d expected format error, got %v", i, err)
			}
			continue
		}
		if d.IsEmpty() {
			t.Fatalf("case %d expected non-empty date", i)
		}
	}
}

func TestDateString(t *testing.T) {
	if got := NewDate(2025, 4, 18).String(); got != "2025-04-18" {
		t.Fatalf("expected 2025-04-18, got %q", got)
	}
	if got := (Date{}).String(); got != "" {
		t.Fatalf("expected empty string for zero date, got %q", got)
	}
}

func TestPeriodValidate(t *testing.T) {
	tests := []struct {
		name    string
		period  Period
		wantErr bool
	}{
		{"all time", AllTime, false},
		{"year only", Period{Year: 2025}, false},
		{"month and year", Period{Month: 12, Year: 2025}, false},
		{"month zero is unset", Period{Month: 0, Year: 2025}, false},
		{"month too high", Period{Month: 13, Year: 2025}, true},
		{"month negative", Period{Month: -1, Year: 2025}, true},
		{"month without year", Period{Month: 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.period.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDateOfAndMonthOf(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	d := DateOf(time.Date(2025, 2, 28, 23, 30, 0, 0, loc))
	if d.String() != "2025-02-28" {
		t.Errorf("DateOf = %s, want 2025-02-28", d)
	}
	if p := MonthOf(d); p != (Period{Month: 2, Year: 2025}) {
		t.Errorf("MonthOf = %+v", p)
	}
	if MonthOf(d).Validate() != nil {
		t.Error("MonthOf produced an invalid period")
	}

	now := time.Now()
	if got := Today().String(); got != DateOf(now).String() && got != DateOf(time.Now()).String() {
		t.Errorf("Today = %s", got)
	}
}

func TestPeriodIsAllTime(t *testing.T) {
	tests := []struct {
		period Period
		want   bool
	}{
		{AllTime, true},
		{Period{Year: 2025}, false},
		{Period{Month: 3, Year: 2025}, false},
	}
	for _, tt := range tests {
		if got := tt.period.IsAllTime(); got != tt.want {
			t.Errorf("%+v.IsAllTime() = %v, want %v", tt.period, got, tt.want)
		}
	}
}

func TestIsExpense(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"-0.01", true},
		{"-100", true},
		{"0.01", false},
		{"2500", false},
	}
	for _, tt := range tests {
		amount := decimal.RequireFromString(tt.amount)
		if got := (Transaction{Amount: amount}).IsExpense(); got != tt.want {
			t.Errorf("Transaction(%s).IsExpense() = %v, want %v", tt.amount, got, tt.want)
		}
		if got := (NewTransaction{Amount: amount}).IsExpense(); got != tt.want {
			t.Errorf("NewTransaction(%s).IsExpense() = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func TestNewTransactionNormalize(t *testing.T) {
	good := NewTransaction{
		UserID:      1,
		Amount:      decimal.NewFromInt(-50),
		Category:    "  Food ",
		DateText:    "2025-04-18",
		Description: " lunch ",
	}
	n, err := good.Normalize()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if n.Category != "Food" || n.Description != "lunch" {
		t.Fatalf("expected trimmed fields, got %q %q", n.Category, n.Description)
	}
	if n.Date.String() != "2025-04-18" {
		t.Fatalf("expected parsed date, got %q", n.Date.String())
	}

	bads := []struct {
		tx   NewTransaction
		want error
	}{
		{NewTransaction{UserID: 0, Amount: decimal.NewFromInt(1), Category: "c", Date: NewDate(2025, 1, 1)}, ErrValidation},
		{NewTransaction{UserID: 1, Amount: decimal.Zero, Category: "c", Date: NewDate(2025, 1, 1)}, ErrValidation},
		{NewTransaction{UserID: 1, Amount: decimal.NewFromInt(1), Category: "   ", Date: NewDate(2025, 1, 1)}, ErrValidation},
		{NewTransaction{UserID: 1, Amount: decimal.NewFromInt(1), Category: "c", DateText: "18-04-2025"}, ErrFormat},
	}
	for i, tc := range bads {
		if _, err := tc.tx.Normalize(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestTransactionUpdateApply(t *testing.T) {
	base := Transaction{ID: 1, UserID: 1, Amount: decimal.NewFromInt(-10), Category: "Food", Date: NewDate(2025, 1, 1)}

	amount := decimal.NewFromInt(-25)
	category := " Groceries "
	got, err := TransactionUpdate{Amount: &amount, Category: &category}.Apply(base)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !got.Amount.Equal(amount) || got.Category != "Groceries" {
		t.Fatalf("unexpected result: %+v", got)
	}

	zero := decimal.Zero
	if _, err := (TransactionUpdate{Amount: &zero}).Apply(base); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	empty := ""
	if _, err := (TransactionUpdate{Category: &empty}).Apply(base); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty category, got %v", err)
	}
}

func TestSeedDataValidate(t *testing.T) {
	good := SeedData{UserID: 1, UserName: "Default User", Budgets: DefaultBudgets()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := SeedData{UserID: 1, UserName: "x", Budgets: map[string]decimal.Decimal{"Food": decimal.Zero}}
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	err := &StorageError{Op: "insert", Err: errors.New("disk full")}
	if !errors.Is(err, ErrStorage) {
		t.Fatal("storage error should match ErrStorage")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("storage error should not match ErrValidation")
	}
	var ve *ValidationError
	if !errors.As(ValidateLimit(decimal.NewFromInt(-1)), &ve) || ve.Field != "limit_amount" {
		t.Fatalf("expected limit_amount validation error, got %v", ve)
	}
}
