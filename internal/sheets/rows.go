package sheets

import (
	"strconv"
	"strings"

	"ledger/internal/core"
)

var (
	SummaryHeader     = []any{"Category", "Limit", "Spent", "Status"}
	TransactionHeader = []any{"ID", "Date", "Category", "Amount", "Description"}
)

// SummaryValues renders summary rows as a value matrix with a header row.
// Categories without a budget get an empty limit cell.
func SummaryValues(rows []core.CategoryStatus) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, SummaryHeader)
	for _, r := range rows {
		limit := ""
		if r.Limit != nil {
			limit = core.FormatMoney(*r.Limit)
		}
		out = append(out, []any{TextCell(r.Category), limit, core.FormatMoney(r.Spent), r.Status.String()})
	}
	return out
}

// TransactionValues renders transactions as a value matrix with a header row.
func TransactionValues(txs []core.Transaction) [][]any {
	out := make([][]any, 0, len(txs)+1)
	out = append(out, TransactionHeader)
	for _, t := range txs {
		out = append(out, []any{
			strconv.FormatInt(t.ID, 10),
			t.Date.String(),
			TextCell(t.Category),
			core.FormatMoney(t.Amount),
			TextCell(t.Description),
		})
	}
	return out
}

// TextCell keeps free text literal when written with USER_ENTERED input.
// Values that Sheets would parse as a formula get a leading apostrophe,
// which Sheets strips on display.
func TextCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}
