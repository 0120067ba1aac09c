package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"ledger/internal/core"
	applog "ledger/internal/log"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSummarySheet      = "Budget Summary"
	DefaultTransactionsSheet = "Transactions"

	// clearColumns covers every column the exporter writes.
	clearColumns = "A:Z"
)

// Options selects the spreadsheet and its tabs. ClientOptions, when set,
// replace the service account credentials read from the environment.
type Options struct {
	SpreadsheetID     string
	SummarySheet      string
	TransactionsSheet string
	ClientOptions     []goption.ClientOption
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	summarySheet      string
	transactionsSheet string
}

var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets client for the spreadsheet in opts.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = DefaultSummarySheet
	}
	txs := strings.TrimSpace(opts.TransactionsSheet)
	if txs == "" {
		txs = DefaultTransactionsSheet
	}
	if summary == txs {
		return nil, fmt.Errorf("summary and transactions sheets must differ, both are %q", summary)
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		creds, err := serviceAccountCredentials(ctx)
		if err != nil {
			return nil, err
		}
		clientOpts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		summarySheet:      summary,
		transactionsSheet: txs,
	}, nil
}

// serviceAccountCredentials loads service account JSON from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if inline != "" {
		applog.FromContext(ctx).WithComponent(applog.ComponentSheets).DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentSheets).DebugContext(ctx, "Read service account credentials", "path", path, "size", len(data))
	return data, nil
}

// WriteBudgetSummary replaces the summary sheet with rows.
func (c *Client) WriteBudgetSummary(ctx context.Context, rows []core.CategoryStatus) error {
	return c.replaceSheet(ctx, c.summarySheet, ports.SummaryValues(rows))
}

// WriteTransactions replaces the transactions sheet with txs.
func (c *Client) WriteTransactions(ctx context.Context, txs []core.Transaction) error {
	return c.replaceSheet(ctx, c.transactionsSheet, ports.TransactionValues(txs))
}

func (c *Client) replaceSheet(ctx context.Context, sheet string, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := a1Range(sheet, clearColumns)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	dataRange := a1Range(sheet, "A1")
	vr := &gsheet.ValueRange{Values: values}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}

	applog.FromContext(ctx).WithComponent(applog.ComponentSheets).InfoContext(ctx, "Sheet rewritten",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", sheet,
		"rows", len(values)-1)
	return nil
}

// a1Range builds an A1 range for sheet, quoting the tab name so names with
// spaces or punctuation resolve. Embedded quotes are doubled.
func a1Range(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
