package log

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldDuration      = "duration_ms"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldAmount        = "amount"
	FieldLimit         = "limit"
	FieldSpent         = "spent"
	FieldStatus        = "status"
)

// Components
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentAlerts  = "alerts"
	ComponentSheets  = "sheets"
	ComponentExport  = "export"
)

// Operations
const (
	OpRecord  = "record"
	OpDelete  = "delete"
	OpUpdate  = "update"
	OpBudget  = "budget"
	OpExport  = "export"
	OpSeed    = "seed"
	OpPublish = "publish"
	OpConsume = "consume"
)

// Error categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeFormat        = "format_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// ErrorTypeOf maps a ledger error to its error_type value.
func ErrorTypeOf(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrFormat):
		return ErrorTypeFormat
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrStorage):
		return ErrorTypeDatabase
	default:
		return ErrorTypeInternal
	}
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error text and its category. Nil errors are ignored.
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

// WithTransaction adds the identifying fields of a ledger entry. A zero
// transaction id (not yet stored) and an empty category are left out.
func (f LogFields) WithTransaction(userID, transactionID int64, category string) LogFields {
	f[FieldUserID] = userID
	if transactionID != 0 {
		f[FieldTransactionID] = transactionID
	}
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

func (f LogFields) WithAmount(amount decimal.Decimal) LogFields {
	f[FieldAmount] = amount.String()
	return f
}

// WithBudgetStatus adds a category verdict with its limit and spend.
func (f LogFields) WithBudgetStatus(status string, limit, spent decimal.Decimal) LogFields {
	f[FieldStatus] = status
	f[FieldLimit] = limit.String()
	f[FieldSpent] = spent.String()
	return f
}

// ToSlice converts LogFields to key/value pairs for slog, ordered by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
