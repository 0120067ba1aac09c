package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRecentLimit is the number of rows returned by RecentTransactions
// when the caller does not ask for a specific amount.
const DefaultRecentLimit = 5

type (
	User struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Amount      decimal.Decimal // positive = income, negative = expense
		Category    string
		Date        Date
		Description string
		CreatedAt   time.Time
	}

	// NewTransaction is the caller-supplied input for a ledger write.
	// DateText is used when Date is empty so that callers can hand over
	// raw "YYYY-MM-DD" input and get a FormatError back.
	NewTransaction struct {
		UserID      int64
		Amount      decimal.Decimal
		Category    string
		Date        Date
		DateText    string
		Description string
	}

	// TransactionUpdate overwrites the non-nil fields of a transaction.
	TransactionUpdate struct {
		Amount      *decimal.Decimal
		Category    *string
		Date        *Date
		Description *string
	}

	Budget struct {
		UserID   int64
		Category string
		Limit    decimal.Decimal
	}

	// SeedData describes the rows created on first initialization.
	SeedData struct {
		UserID   int64
		UserName string
		Budgets  map[string]decimal.Decimal
	}
)

// DefaultBudgets returns the starter limits for a freshly initialized ledger.
func DefaultBudgets() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"Food":          decimal.NewFromInt(300),
		"Transport":     decimal.NewFromInt(150),
		"Entertainment": decimal.NewFromInt(100),
		"Healthcare":    decimal.NewFromInt(200),
		"Shopping":      decimal.NewFromInt(250),
		"Utilities":     decimal.NewFromInt(150),
	}
}

// IsExpense reports whether the transaction debits the account.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsExpense reports whether the new entry will debit the account.
func (n NewTransaction) IsExpense() bool {
	return n.Amount.IsNegative()
}

// Normalize trims text fields and resolves DateText into Date.
// It returns the cleaned copy together with the first validation failure.
func (n NewTransaction) Normalize() (NewTransaction, error) {
	n.Category = strings.TrimSpace(n.Category)
	n.Description = strings.TrimSpace(n.Description)

	if err := ValidateUserID(n.UserID); err != nil {
		return n, err
	}
	if err := ValidateAmount(n.Amount); err != nil {
		return n, err
	}
	if err := ValidateCategory(n.Category); err != nil {
		return n, err
	}
	if n.Date.IsEmpty() {
		d, err := ParseDate(n.DateText)
		if err != nil {
			return n, err
		}
		n.Date = d
	}
	return n, nil
}

// Apply returns t with the update's fields written over it, validated.
func (u TransactionUpdate) Apply(t Transaction) (Transaction, error) {
	if u.Amount != nil {
		if err := ValidateAmount(*u.Amount); err != nil {
			return t, err
		}
		t.Amount = *u.Amount
	}
	if u.Category != nil {
		c := strings.TrimSpace(*u.Category)
		if err := ValidateCategory(c); err != nil {
			return t, err
		}
		t.Category = c
	}
	if u.Date != nil {
		if u.Date.IsEmpty() {
			return t, &ValidationError{Field: "date", Reason: "cannot be empty"}
		}
		t.Date = *u.Date
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	return t, nil
}

// IsEmpty reports whether the update changes nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Category == nil && u.Date == nil && u.Description == nil
}

func (b Budget) Validate() error {
	if err := ValidateUserID(b.UserID); err != nil {
		return err
	}
	if err := ValidateCategory(b.Category); err != nil {
		return err
	}
	return ValidateLimit(b.Limit)
}

func (s SeedData) Validate() error {
	if err := ValidateUserID(s.UserID); err != nil {
		return err
	}
	if err := ValidateUserName(s.UserName); err != nil {
		return err
	}
	for category, limit := range s.Budgets {
		if err := ValidateCategory(strings.TrimSpace(category)); err != nil {
			return err
		}
		if err := ValidateLimit(limit); err != nil {
			return err
		}
	}
	return nil
}

func ValidateUserID(id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	return nil
}

func ValidateUserName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	return nil
}

func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return &ValidationError{Field: "amount", Reason: "cannot be zero"}
	}
	return nil
}

func ValidateLimit(limit decimal.Decimal) error {
	if !limit.IsPositive() {
		return &ValidationError{Field: "limit_amount", Reason: "must be greater than zero"}
	}
	return nil
}

func ValidateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return &ValidationError{Field: "category", Reason: "cannot be empty"}
	}
	return nil
}
