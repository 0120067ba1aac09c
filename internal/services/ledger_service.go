package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

// LedgerStore is the persistence surface the ledger service needs.
// storage.SQLiteRepository satisfies it.
type LedgerStore interface {
	ExpenseReader

	InsertTransaction(ctx context.Context, in core.NewTransaction) (int64, error)
	GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id, userID int64, upd core.TransactionUpdate) (bool, error)
	DeleteTransaction(ctx context.Context, id, userID int64) (bool, error)
	ListTransactions(ctx context.Context, userID int64, period core.Period) ([]core.Transaction, error)
	RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
	SumSignedAmount(ctx context.Context, userID int64) (decimal.Decimal, error)
	DistinctCategories(ctx context.Context, userID int64) ([]string, error)

	GetBudget(ctx context.Context, userID int64, category string) (decimal.Decimal, bool, error)
	SetBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) error
	CreateBudgetIfAbsent(ctx context.Context, userID int64, category string, limit decimal.Decimal) (bool, error)
	UpdateBudgetIfPresent(ctx context.Context, userID int64, category string, limit decimal.Decimal) (bool, error)
	DeleteBudget(ctx context.Context, userID int64, category string) (bool, error)
	ListBudgets(ctx context.Context, userID int64) (map[string]decimal.Decimal, error)

	CreateUser(ctx context.Context, name string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
}

// AlertPublisher receives budget alerts after a write lands in WARNING or OVER.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// LedgerOptions configures a LedgerService.
type LedgerOptions struct {
	// DefaultUserID is the user single-user callers act as.
	DefaultUserID int64
	// RecentLimit bounds RecentTransactions when the caller passes no limit.
	RecentLimit int
}

// LedgerService records transactions and reports budget status around them.
// Verdicts are computed against the category's whole spend history.
type LedgerService struct {
	store         LedgerStore
	aggregator    *Aggregator
	alerts        AlertPublisher
	defaultUserID int64
	recentLimit   int
}

// NewLedgerService wires a service over store. alerts may be nil.
func NewLedgerService(store LedgerStore, alerts AlertPublisher, opts LedgerOptions) (*LedgerService, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger service: store is required")
	}
	if err := core.ValidateUserID(opts.DefaultUserID); err != nil {
		return nil, fmt.Errorf("ledger service default user: %w", err)
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = core.DefaultRecentLimit
	}

	return &LedgerService{
		store:         store,
		aggregator:    NewAggregator(store),
		alerts:        alerts,
		defaultUserID: opts.DefaultUserID,
		recentLimit:   opts.RecentLimit,
	}, nil
}

// DefaultUserID returns the configured default user. Every operation takes
// an explicit user id; callers acting for the default user pass this value.
func (s *LedgerService) DefaultUserID() int64 {
	return s.defaultUserID
}

func (s *LedgerService) resolveUser(userID int64) (int64, error) {
	if err := core.ValidateUserID(userID); err != nil {
		return 0, err
	}
	return userID, nil
}

func ledgerLogger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentLedger)
}

// RecordTransaction stores a transaction. For expenses it also reports the
// impact verdict computed before the write and the category status after it.
// The impact verdict never blocks the write.
func (s *LedgerService) RecordTransaction(ctx context.Context, in core.NewTransaction) (core.RecordResult, error) {
	userID, err := s.resolveUser(in.UserID)
	if err != nil {
		return core.RecordResult{}, err
	}
	in.UserID = userID

	tx, err := in.Normalize()
	if err != nil {
		return core.RecordResult{}, err
	}

	logger := ledgerLogger(ctx)
	expense := tx.IsExpense()

	var pre *core.Verdict
	if expense {
		limit, current, err := s.limitAndSpend(ctx, userID, tx.Category)
		if err != nil {
			// advisory only
			fields := applog.NewFields().
				WithOperation(applog.OpRecord).
				WithTransaction(userID, 0, tx.Category).
				WithAmount(tx.Amount).
				WithError(err, applog.ErrorTypeOf(err))
			logger.WarnContext(ctx, "Impact evaluation skipped", fields.ToSlice()...)
		} else {
			pre = core.EvaluateImpact(limit, current, tx.Amount).Ptr()
		}
	}

	id, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpRecord).
			WithTransaction(userID, 0, tx.Category).
			WithAmount(tx.Amount).
			WithError(err, applog.ErrorTypeOf(err))
		logger.ErrorContext(ctx, "Transaction not recorded", fields.ToSlice()...)
		return core.RecordResult{Saved: false}, fmt.Errorf("record transaction: %w", err)
	}

	fields := applog.NewFields().
		WithOperation(applog.OpRecord).
		WithTransaction(userID, id, tx.Category).
		WithAmount(tx.Amount)

	result := core.RecordResult{Saved: true, TransactionID: id}
	if !expense {
		logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
		return result, nil
	}

	result.PreAlert = pre
	status, err := s.CategoryStatus(ctx, userID, tx.Category)
	if err != nil {
		fields.WithError(err, applog.ErrorTypeOf(err))
		logger.ErrorContext(ctx, "Post-write status unavailable", fields.ToSlice()...)
		return result, nil
	}
	logger.InfoContext(ctx, "Transaction recorded",
		append(fields.ToSlice(), applog.FieldStatus, status.Status.String())...)
	result.PostStatus = status.Status.Ptr()

	if status.Status.IsAlert() {
		s.publishAlert(ctx, userID, id, status)
	}
	return result, nil
}

func (s *LedgerService) publishAlert(ctx context.Context, userID, transactionID int64, status core.CategoryStatus) {
	logger := ledgerLogger(ctx)
	if s.alerts == nil {
		logger.DebugContext(ctx, "Alert publisher not configured, skipping budget alert")
		return
	}
	msg := amqp.NewBudgetAlertMessage(userID, transactionID, status)
	if err := s.alerts.PublishBudgetAlert(ctx, msg); err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpRecord).
			WithBudgetStatus(status.Status.String(), msg.Limit, status.Spent).
			WithTransaction(userID, transactionID, status.Category).
			WithError(err, applog.ErrorTypeNetwork)
		logger.ErrorContext(ctx, "Failed to publish budget alert", fields.ToSlice()...)
	}
}

// RemoveTransaction deletes a transaction owned by userID. It reports false
// when the id does not exist or belongs to another user.
func (s *LedgerService) RemoveTransaction(ctx context.Context, transactionID, userID int64) (bool, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return false, err
	}
	ok, err := s.store.DeleteTransaction(ctx, transactionID, userID)
	s.logOutcome(ctx, applog.OpDelete, userID, transactionID, ok, err)
	return ok, err
}

// EditTransaction overwrites the given fields of a transaction owned by userID.
func (s *LedgerService) EditTransaction(ctx context.Context, transactionID, userID int64, upd core.TransactionUpdate) (bool, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return false, err
	}
	if upd.IsEmpty() {
		return false, &core.ValidationError{Field: "update", Reason: "no fields to change"}
	}
	ok, err := s.store.UpdateTransaction(ctx, transactionID, userID, upd)
	s.logOutcome(ctx, applog.OpUpdate, userID, transactionID, ok, err)
	return ok, err
}

func (s *LedgerService) logOutcome(ctx context.Context, op string, userID, transactionID int64, ok bool, err error) {
	fields := applog.NewFields().
		WithOperation(op).
		WithTransaction(userID, transactionID, "")

	logger := ledgerLogger(ctx)
	switch {
	case err != nil:
		fields.WithError(err, applog.ErrorTypeOf(err))
		logger.WarnContext(ctx, "Transaction change rejected", fields.ToSlice()...)
	case !ok:
		fields.WithError(core.ErrNotFound, applog.ErrorTypeNotFound)
		logger.InfoContext(ctx, "Transaction change matched nothing", fields.ToSlice()...)
	default:
		logger.DebugContext(ctx, "Transaction changed", fields.ToSlice()...)
	}
}

func (s *LedgerService) GetTransaction(ctx context.Context, transactionID, userID int64) (core.Transaction, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.store.GetTransaction(ctx, transactionID, userID)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID int64, period core.Period) ([]core.Transaction, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, userID, period)
}

// RecentTransactions returns the latest transactions. A non-positive limit
// falls back to the configured default.
func (s *LedgerService) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.store.RecentTransactions(ctx, userID, limit)
}

// AccountBalance returns income minus expenses. Lookup failures are logged
// and reported as a zero balance.
func (s *LedgerService) AccountBalance(ctx context.Context, userID int64) decimal.Decimal {
	if _, err := s.resolveUser(userID); err != nil {
		s.balanceUnavailable(ctx, userID, err)
		return decimal.Zero
	}
	balance, err := s.store.SumSignedAmount(ctx, userID)
	if err != nil {
		s.balanceUnavailable(ctx, userID, err)
		return decimal.Zero
	}
	return balance
}

func (s *LedgerService) balanceUnavailable(ctx context.Context, userID int64, err error) {
	fields := applog.NewFields().WithError(err, applog.ErrorTypeOf(err))
	fields[applog.FieldUserID] = userID
	ledgerLogger(ctx).ErrorContext(ctx, "Account balance unavailable", fields.ToSlice()...)
}

// BudgetSummary reports every category the user has transacted in, in
// ascending order. Budgets without transactions are not listed.
func (s *LedgerService) BudgetSummary(ctx context.Context, userID int64) ([]core.CategoryStatus, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return nil, err
	}

	categories, err := s.store.DistinctCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("budget summary: %w", err)
	}
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("budget summary: %w", err)
	}

	summary := make([]core.CategoryStatus, 0, len(categories))
	for _, category := range categories {
		var limit *decimal.Decimal
		if l, ok := budgets[category]; ok {
			limit = &l
		}
		spent, err := s.aggregator.SpendInCategory(ctx, userID, category, core.AllTime)
		if err != nil {
			return nil, fmt.Errorf("budget summary: %w", err)
		}
		summary = append(summary, core.CategoryStatus{
			Category: category,
			Limit:    limit,
			Spent:    spent,
			Status:   core.Evaluate(limit, spent),
		})
	}
	return summary, nil
}

// CategoryStatus evaluates the current spend of a single category.
func (s *LedgerService) CategoryStatus(ctx context.Context, userID int64, category string) (core.CategoryStatus, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return core.CategoryStatus{}, err
	}
	category = strings.TrimSpace(category)
	if err := core.ValidateCategory(category); err != nil {
		return core.CategoryStatus{}, err
	}

	limit, spent, err := s.limitAndSpend(ctx, userID, category)
	if err != nil {
		return core.CategoryStatus{}, err
	}
	return core.CategoryStatus{
		Category: category,
		Limit:    limit,
		Spent:    spent,
		Status:   core.Evaluate(limit, spent),
	}, nil
}

func (s *LedgerService) limitAndSpend(ctx context.Context, userID int64, category string) (*decimal.Decimal, decimal.Decimal, error) {
	l, ok, err := s.store.GetBudget(ctx, userID, category)
	if err != nil {
		return nil, decimal.Zero, err
	}
	var limit *decimal.Decimal
	if ok {
		limit = &l
	}
	spent, err := s.aggregator.SpendInCategory(ctx, userID, category, core.AllTime)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return limit, spent, nil
}

// SetNewBudget creates a budget. It reports false when one already exists
// for the category; use ChangeBudget to modify it.
func (s *LedgerService) SetNewBudget(ctx context.Context, userID int64, category string, amount decimal.Decimal) (bool, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return false, err
	}
	created, err := s.store.CreateBudgetIfAbsent(ctx, userID, category, amount)
	if err == nil && !created {
		fields := applog.NewFields().WithOperation(applog.OpBudget)
		fields[applog.FieldUserID] = userID
		fields[applog.FieldCategory] = strings.TrimSpace(category)
		ledgerLogger(ctx).InfoContext(ctx, "Budget left unchanged, one already exists", fields.ToSlice()...)
	}
	return created, err
}

// ChangeBudget replaces an existing limit. It reports false when no budget
// exists for the category.
func (s *LedgerService) ChangeBudget(ctx context.Context, userID int64, category string, amount decimal.Decimal) (bool, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return false, err
	}
	return s.store.UpdateBudgetIfPresent(ctx, userID, category, amount)
}

// ReplaceBudget sets the limit whether or not one exists.
func (s *LedgerService) ReplaceBudget(ctx context.Context, userID int64, category string, amount decimal.Decimal) error {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return err
	}
	return s.store.SetBudget(ctx, userID, category, amount)
}

func (s *LedgerService) RemoveBudget(ctx context.Context, userID int64, category string) (bool, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return false, err
	}
	return s.store.DeleteBudget(ctx, userID, category)
}

func (s *LedgerService) ListBudgets(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	userID, err := s.resolveUser(userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListBudgets(ctx, userID)
}

func (s *LedgerService) CreateUser(ctx context.Context, name string) (core.User, error) {
	return s.store.CreateUser(ctx, name)
}

func (s *LedgerService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}
