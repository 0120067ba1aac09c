package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	applog "ledger/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the ledger store. It is the only component that
// touches the database file.
//
// One repository is expected per database file; concurrent processes
// opening the same file are not coordinated.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN builds the modernc sqlite connection string for dbPath with foreign
// keys enforced on every connection.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer: every logical operation runs against one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Seed creates the default user and starter budgets when they are absent.
// Everything runs in one transaction so a failure leaves no partial rows.
func (r *SQLiteRepository) Seed(ctx context.Context, seed core.SeedData) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	err := r.inTx(ctx, func(q *Queries) error {
		created, err := q.InsertUserIfAbsent(ctx, seed.UserID, strings.TrimSpace(seed.UserName), r.now())
		if err != nil {
			return fmt.Errorf("insert default user: %w", err)
		}
		if created == 0 {
			storageLogger(ctx).DebugContext(ctx, "Default user already present", applog.FieldUserID, seed.UserID)
		}

		for category, limit := range seed.Budgets {
			if _, err := q.InsertBudgetIfAbsent(ctx, seed.UserID, strings.TrimSpace(category), limit); err != nil {
				return fmt.Errorf("insert default budget %s: %w", category, err)
			}
		}
		return nil
	})
	if err != nil {
		return &core.StorageError{Op: "seed", Err: err}
	}

	storageLogger(ctx).InfoContext(ctx, "Ledger seed applied",
		applog.FieldOperation, applog.OpSeed,
		applog.FieldUserID, seed.UserID,
		"budgets", len(seed.Budgets))
	return nil
}

// InsertTransaction validates and stores a transaction, returning its id.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, in core.NewTransaction) (int64, error) {
	tx, err := in.Normalize()
	if err != nil {
		return 0, err
	}

	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:      tx.UserID,
		Amount:      tx.Amount,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Description: tx.Description,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return 0, &core.StorageError{Op: "insert transaction", Err: err}
	}

	fields := applog.NewFields().
		WithOperation(applog.OpRecord).
		WithTransaction(tx.UserID, id, tx.Category).
		WithAmount(tx.Amount)
	storageLogger(ctx).DebugContext(ctx, "Transaction saved to SQLite",
		append(fields.ToSlice(), "date", tx.Date.String())...)

	return id, nil
}

// GetTransaction returns the transaction owned by userID, or core.ErrNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "get transaction", Err: err}
	}
	t, err := row.toCore()
	if err != nil {
		return core.Transaction{}, &core.StorageError{Op: "decode transaction", Err: err}
	}
	return t, nil
}

// UpdateTransaction overwrites fields of a transaction owned by userID.
// It returns false when no such transaction exists.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id, userID int64, upd core.TransactionUpdate) (bool, error) {
	if err := core.ValidateUserID(userID); err != nil {
		return false, err
	}

	var updated bool
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetTransaction(ctx, id, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return &core.StorageError{Op: "get transaction", Err: err}
		}
		current, err := row.toCore()
		if err != nil {
			return &core.StorageError{Op: "decode transaction", Err: err}
		}
		next, err := upd.Apply(current)
		if err != nil {
			return err
		}
		n, err := q.UpdateTransaction(ctx, UpdateTransactionParams{
			ID:          id,
			UserID:      userID,
			Amount:      next.Amount,
			Category:    next.Category,
			Date:        next.Date.String(),
			Description: next.Description,
		})
		if err != nil {
			return &core.StorageError{Op: "update transaction", Err: err}
		}
		updated = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if updated {
		storageLogger(ctx).DebugContext(ctx, "Transaction updated",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldTransactionID, id,
			applog.FieldUserID, userID)
	}
	return updated, nil
}

// DeleteTransaction removes the transaction only when it belongs to userID.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) (bool, error) {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return false, &core.StorageError{Op: "delete transaction", Err: err}
	}
	if n == 0 {
		return false, nil
	}

	storageLogger(ctx).DebugContext(ctx, "Transaction deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id,
		applog.FieldUserID, userID)
	return true, nil
}

// ListTransactions returns the user's transactions in period, most recent first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, period core.Period) ([]core.Transaction, error) {
	if err := core.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return r.listTransactions(ctx, userID, period, 0)
}

// RecentTransactions returns at most limit transactions, most recent first.
// A non-positive limit uses core.DefaultRecentLimit.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if err := core.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = core.DefaultRecentLimit
	}
	return r.listTransactions(ctx, userID, core.AllTime, limit)
}

func (r *SQLiteRepository) listTransactions(ctx context.Context, userID int64, period core.Period, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, userID, period, limit)
	if err != nil {
		return nil, &core.StorageError{Op: "list transactions", Err: err}
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toCore()
		if err != nil {
			return nil, &core.StorageError{Op: "decode transaction", Err: err}
		}
		out = append(out, t)
	}
	return out, nil
}

// SumSignedAmount returns the user's net balance: income minus expenses.
func (r *SQLiteRepository) SumSignedAmount(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if err := core.ValidateUserID(userID); err != nil {
		return decimal.Zero, err
	}
	amounts, err := r.queries.ListAmounts(ctx, userID, "", false, core.AllTime)
	if err != nil {
		return decimal.Zero, &core.StorageError{Op: "sum amounts", Err: err}
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// ExpenseAmounts returns the negative amounts recorded in category during period.
func (r *SQLiteRepository) ExpenseAmounts(ctx context.Context, userID int64, category string, period core.Period) ([]decimal.Decimal, error) {
	category = strings.TrimSpace(category)
	if err := core.ValidateCategory(category); err != nil {
		return nil, err
	}
	amounts, err := r.queries.ListAmounts(ctx, userID, category, true, period)
	if err != nil {
		return nil, &core.StorageError{Op: "list expense amounts", Err: err}
	}
	return amounts, nil
}

// DistinctCategories returns every category the user has transacted in, ascending.
func (r *SQLiteRepository) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	cats, err := r.queries.DistinctCategories(ctx, userID)
	if err != nil {
		return nil, &core.StorageError{Op: "distinct categories", Err: err}
	}
	return cats, nil
}

// GetBudget returns the limit for the category and whether one exists.
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID int64, category string) (decimal.Decimal, bool, error) {
	limit, err := r.queries.GetBudget(ctx, userID, strings.TrimSpace(category))
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, &core.StorageError{Op: "get budget", Err: err}
	}
	return limit, true, nil
}

// SetBudget creates or replaces the limit for the category.
func (r *SQLiteRepository) SetBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	b := core.Budget{UserID: userID, Category: strings.TrimSpace(category), Limit: limit}
	if err := b.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertBudget(ctx, b.UserID, b.Category, b.Limit); err != nil {
		return &core.StorageError{Op: "set budget", Err: err}
	}

	storageLogger(ctx).InfoContext(ctx, "Budget set", applog.FieldUserID, userID, applog.FieldCategory, b.Category, applog.FieldLimit, limit.String())
	return nil
}

// CreateBudgetIfAbsent stores the limit only when no budget exists for the
// category. It returns false and changes nothing otherwise.
func (r *SQLiteRepository) CreateBudgetIfAbsent(ctx context.Context, userID int64, category string, limit decimal.Decimal) (bool, error) {
	b := core.Budget{UserID: userID, Category: strings.TrimSpace(category), Limit: limit}
	if err := b.Validate(); err != nil {
		return false, err
	}
	n, err := r.queries.InsertBudgetIfAbsent(ctx, b.UserID, b.Category, b.Limit)
	if err != nil {
		return false, &core.StorageError{Op: "create budget", Err: err}
	}
	if n == 0 {
		storageLogger(ctx).WarnContext(ctx, "Budget already exists", applog.FieldUserID, userID, applog.FieldCategory, b.Category)
		return false, nil
	}

	storageLogger(ctx).InfoContext(ctx, "Budget created", applog.FieldUserID, userID, applog.FieldCategory, b.Category, applog.FieldLimit, limit.String())
	return true, nil
}

// UpdateBudgetIfPresent replaces an existing limit. It returns false and
// changes nothing when no budget exists for the category.
func (r *SQLiteRepository) UpdateBudgetIfPresent(ctx context.Context, userID int64, category string, limit decimal.Decimal) (bool, error) {
	b := core.Budget{UserID: userID, Category: strings.TrimSpace(category), Limit: limit}
	if err := b.Validate(); err != nil {
		return false, err
	}
	n, err := r.queries.UpdateBudget(ctx, b.UserID, b.Category, b.Limit)
	if err != nil {
		return false, &core.StorageError{Op: "update budget", Err: err}
	}
	if n == 0 {
		storageLogger(ctx).WarnContext(ctx, "Budget not found for update", applog.FieldUserID, userID, applog.FieldCategory, b.Category)
		return false, nil
	}

	storageLogger(ctx).InfoContext(ctx, "Budget updated", applog.FieldUserID, userID, applog.FieldCategory, b.Category, applog.FieldLimit, limit.String())
	return true, nil
}

// DeleteBudget removes the limit for the category.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID int64, category string) (bool, error) {
	n, err := r.queries.DeleteBudget(ctx, userID, strings.TrimSpace(category))
	if err != nil {
		return false, &core.StorageError{Op: "delete budget", Err: err}
	}
	return n > 0, nil
}

// ListBudgets returns the user's limits keyed by category.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	budgets, err := r.queries.ListBudgets(ctx, userID)
	if err != nil {
		return nil, &core.StorageError{Op: "list budgets", Err: err}
	}
	out := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		out[b.Category] = b.Limit
	}
	return out, nil
}

// CreateUser adds a user and returns it with its assigned id.
func (r *SQLiteRepository) CreateUser(ctx context.Context, name string) (core.User, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateUserName(name); err != nil {
		return core.User{}, err
	}
	now := r.now()
	id, err := r.queries.CreateUser(ctx, name, now)
	if err != nil {
		return core.User{}, &core.StorageError{Op: "create user", Err: err}
	}

	storageLogger(ctx).InfoContext(ctx, "User created", applog.FieldUserID, id, "name", name)
	return core.User{ID: id, Name: name, CreatedAt: now.UTC()}, nil
}

// GetUser returns the user or core.ErrNotFound.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, &core.StorageError{Op: "get user", Err: err}
	}
	u, err := row.toCore()
	if err != nil {
		return core.User{}, &core.StorageError{Op: "decode user", Err: err}
	}
	return u, nil
}

// ListUsers returns all users ordered by id.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, &core.StorageError{Op: "list users", Err: err}
	}
	out := make([]core.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toCore()
		if err != nil {
			return nil, &core.StorageError{Op: "decode user", Err: err}
		}
		out = append(out, u)
	}
	return out, nil
}

// DeleteUser removes a user together with its transactions and budgets.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) (bool, error) {
	n, err := r.queries.DeleteUser(ctx, id)
	if err != nil {
		return false, &core.StorageError{Op: "delete user", Err: err}
	}
	if n > 0 {
		storageLogger(ctx).InfoContext(ctx, "User deleted", applog.FieldUserID, id)
	}
	return n > 0, nil
}

func storageLogger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentStorage)
}

// inTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: "begin", Err: err}
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			storageLogger(ctx).ErrorContext(ctx, "Rollback failed", applog.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &core.StorageError{Op: "commit", Err: err}
	}
	return nil
}
