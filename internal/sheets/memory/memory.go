package memory

import (
	"context"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// Store keeps the last exported value matrices in memory. It stands in for
// a spreadsheet when none is configured.
type Store struct {
	mu           sync.Mutex
	summary      [][]any
	transactions [][]any
	writes       int
}

var _ ports.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteBudgetSummary replaces the stored summary sheet.
func (s *Store) WriteBudgetSummary(_ context.Context, rows []core.CategoryStatus) error {
	values := ports.SummaryValues(rows)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = values
	s.writes++
	return nil
}

// WriteTransactions replaces the stored transactions sheet.
func (s *Store) WriteTransactions(_ context.Context, txs []core.Transaction) error {
	values := ports.TransactionValues(txs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = values
	s.writes++
	return nil
}

// Summary returns a copy of the stored summary sheet, header included.
func (s *Store) Summary() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyValues(s.summary)
}

// Transactions returns a copy of the stored transactions sheet, header included.
func (s *Store) Transactions() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyValues(s.transactions)
}

// Writes reports how many sheet writes the store has accepted.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyValues(in [][]any) [][]any {
	if in == nil {
		return nil
	}
	out := make([][]any, len(in))
	for i, row := range in {
		out[i] = append([]any(nil), row...)
	}
	return out
}
