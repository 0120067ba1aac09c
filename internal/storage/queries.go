package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// createdAtLayout is fixed-width so created_at sorts correctly as text.
const createdAtLayout = "2006-01-02 15:04:05.000000000"

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the raw SQL for the ledger tables.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// transactionRow mirrors the transactions table.
type transactionRow struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Category    string
	Date        string
	Description string
	CreatedAt   string
}

func (r transactionRow) toCore() (core.Transaction, error) {
	d, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d: %w", r.ID, err)
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d created_at: %w", r.ID, err)
	}
	return core.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Category:    r.Category,
		Date:        d,
		Description: r.Description,
		CreatedAt:   created,
	}, nil
}

type CreateTransactionParams struct {
	UserID      int64
	Amount      decimal.Decimal
	Category    string
	Date        string
	Description string
	CreatedAt   time.Time
}

const createTransaction = `
INSERT INTO transactions (user_id, amount, category, date, description, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.UserID,
		arg.Amount.String(),
		arg.Category,
		arg.Date,
		arg.Description,
		formatTimestamp(arg.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getTransaction = `
SELECT transaction_id, user_id, amount, category, date, description, created_at
FROM transactions WHERE transaction_id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, userID int64) (transactionRow, error) {
	var r transactionRow
	err := q.db.QueryRowContext(ctx, getTransaction, id, userID).Scan(
		&r.ID, &r.UserID, &r.Amount, &r.Category, &r.Date, &r.Description, &r.CreatedAt,
	)
	return r, err
}

type UpdateTransactionParams struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Category    string
	Date        string
	Description string
}

const updateTransaction = `
UPDATE transactions SET amount = ?, category = ?, date = ?, description = ?
WHERE transaction_id = ? AND user_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Amount.String(), arg.Category, arg.Date, arg.Description, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE transaction_id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTransactions = `
SELECT transaction_id, user_id, amount, category, date, description, created_at
FROM transactions WHERE user_id = ?`

const transactionOrder = ` ORDER BY date DESC, created_at DESC, transaction_id DESC`

// ListTransactions returns rows for userID inside period, most recent first.
// A positive limit bounds the result.
func (q *Queries) ListTransactions(ctx context.Context, userID int64, period core.Period, limit int) ([]transactionRow, error) {
	var sb strings.Builder
	sb.WriteString(listTransactions)
	args := []any{userID}
	args = appendPeriodFilter(&sb, args, period)
	sb.WriteString(transactionOrder)
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []transactionRow
	for rows.Next() {
		var r transactionRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Amount, &r.Category, &r.Date, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listAmounts = `SELECT amount FROM transactions WHERE user_id = ?`

// ListAmounts returns the raw amounts for userID. When category is non-empty
// only that category is read; expensesOnly keeps negative amounts only.
func (q *Queries) ListAmounts(ctx context.Context, userID int64, category string, expensesOnly bool, period core.Period) ([]decimal.Decimal, error) {
	var sb strings.Builder
	sb.WriteString(listAmounts)
	args := []any{userID}
	if category != "" {
		sb.WriteString(" AND category = ?")
		args = append(args, category)
	}
	if expensesOnly {
		// amounts are stored in canonical decimal form, negatives carry a leading sign
		sb.WriteString(" AND amount LIKE '-%'")
	}
	args = appendPeriodFilter(&sb, args, period)

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decimal.Decimal
	for rows.Next() {
		var d decimal.Decimal
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const distinctCategories = `SELECT DISTINCT category FROM transactions WHERE user_id = ? ORDER BY category`

func (q *Queries) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, distinctCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const getBudget = `SELECT limit_amount FROM budgets WHERE user_id = ? AND category = ?`

func (q *Queries) GetBudget(ctx context.Context, userID int64, category string) (decimal.Decimal, error) {
	var limit decimal.Decimal
	err := q.db.QueryRowContext(ctx, getBudget, userID, category).Scan(&limit)
	return limit, err
}

const upsertBudget = `
INSERT INTO budgets (user_id, category, limit_amount) VALUES (?, ?, ?)
ON CONFLICT (user_id, category) DO UPDATE SET limit_amount = excluded.limit_amount`

func (q *Queries) UpsertBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, userID, category, limit.String())
	return err
}

const insertBudgetIfAbsent = `
INSERT INTO budgets (user_id, category, limit_amount) VALUES (?, ?, ?)
ON CONFLICT (user_id, category) DO NOTHING`

func (q *Queries) InsertBudgetIfAbsent(ctx context.Context, userID int64, category string, limit decimal.Decimal) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertBudgetIfAbsent, userID, category, limit.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateBudget = `UPDATE budgets SET limit_amount = ? WHERE user_id = ? AND category = ?`

func (q *Queries) UpdateBudget(ctx context.Context, userID int64, category string, limit decimal.Decimal) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget, limit.String(), userID, category)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE user_id = ? AND category = ?`

func (q *Queries) DeleteBudget(ctx context.Context, userID int64, category string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, userID, category)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listBudgets = `SELECT category, limit_amount FROM budgets WHERE user_id = ? ORDER BY category`

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b := core.Budget{UserID: userID}
		if err := rows.Scan(&b.Category, &b.Limit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const createUser = `INSERT INTO users (name, created_at) VALUES (?, ?)`

func (q *Queries) CreateUser(ctx context.Context, name string, createdAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, name, formatTimestamp(createdAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertUserIfAbsent = `
INSERT INTO users (user_id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT (user_id) DO NOTHING`

func (q *Queries) InsertUserIfAbsent(ctx context.Context, id int64, name string, createdAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertUserIfAbsent, id, name, formatTimestamp(createdAt))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type userRow struct {
	ID        int64
	Name      string
	CreatedAt string
}

func (r userRow) toCore() (core.User, error) {
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("user %d created_at: %w", r.ID, err)
	}
	return core.User{ID: r.ID, Name: r.Name, CreatedAt: created}, nil
}

const getUser = `SELECT user_id, name, created_at FROM users WHERE user_id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (userRow, error) {
	var r userRow
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&r.ID, &r.Name, &r.CreatedAt)
	return r, err
}

const listUsers = `SELECT user_id, name, created_at FROM users ORDER BY user_id`

func (q *Queries) ListUsers(ctx context.Context) ([]userRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []userRow
	for rows.Next() {
		var r userRow
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const deleteUser = `DELETE FROM users WHERE user_id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// appendPeriodFilter narrows a query on the date column to period.
func appendPeriodFilter(sb *strings.Builder, args []any, period core.Period) []any {
	if period.IsAllTime() {
		return args
	}
	if period.Year != 0 {
		sb.WriteString(" AND strftime('%Y', date) = ?")
		args = append(args, fmt.Sprintf("%04d", period.Year))
	}
	if period.Month != 0 {
		sb.WriteString(" AND strftime('%m', date) = ?")
		args = append(args, fmt.Sprintf("%02d", period.Month))
	}
	return args
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

// parseTimestamp accepts both the Go-written layout and SQLite's
// strftime('%Y-%m-%d %H:%M:%f') default.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{createdAtLayout, "2006-01-02 15:04:05.000", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
