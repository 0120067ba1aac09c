package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets/memory"
)

type failingExporter struct {
	*memory.Store
}

func (failingExporter) WriteTransactions(context.Context, []core.Transaction) error {
	return errors.New("quota exceeded")
}

func TestExportService_Export(t *testing.T) {
	svc, _ := newTestLedger(t, nil)
	ctx := context.Background()

	if _, err := svc.SetNewBudget(ctx, 1, "Food", dec("100")); err != nil {
		t.Fatalf("SetNewBudget: %v", err)
	}
	record(t, svc, "-95", "Food", "2025-02-01")
	record(t, svc, "-10", "Gifts", "2025-02-02")
	record(t, svc, "500", "Salary", "2025-02-03")

	store := memory.New()
	exporter := NewExportService(svc, store, time.Second)

	if err := exporter.Export(ctx, 1); err != nil {
		t.Fatalf("Export: %v", err)
	}

	summary := store.Summary()
	if len(summary) != 4 {
		t.Fatalf("summary rows = %d, want header + 3", len(summary))
	}
	if summary[1][0] != "Food" || summary[1][3] != "WARNING" {
		t.Errorf("Food row = %v", summary[1])
	}
	if summary[2][0] != "Gifts" || summary[2][1] != "" {
		t.Errorf("Gifts row = %v", summary[2])
	}

	txs := store.Transactions()
	if len(txs) != 4 {
		t.Fatalf("transaction rows = %d, want header + 3", len(txs))
	}
	if txs[1][1] != "2025-02-03" {
		t.Errorf("newest first expected, got %v", txs[1])
	}
}

func TestExportService_WriteFailure(t *testing.T) {
	svc, _ := newTestLedger(t, nil)
	record(t, svc, "-1", "Food", "2025-02-01")

	exporter := NewExportService(svc, failingExporter{memory.New()}, 0)

	var buf bytes.Buffer
	ctx := applog.WithLogger(context.Background(), applog.New(applog.Config{Level: slog.LevelInfo, Output: &buf}))

	err := exporter.Export(ctx, 1)
	if err == nil || !strings.Contains(err.Error(), "write transactions") {
		t.Errorf("err = %v, want write transactions failure", err)
	}
	out := buf.String()
	for _, want := range []string{"component=export", "operation=export", "duration_ms=", "error_type=internal_error"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestExportService_NoExporter(t *testing.T) {
	svc, _ := newTestLedger(t, nil)
	if err := NewExportService(svc, nil, 0).Export(context.Background(), 1); err == nil {
		t.Error("expected error without exporter")
	}
}

func TestExportService_InvalidUser(t *testing.T) {
	svc, _ := newTestLedger(t, nil)
	err := NewExportService(svc, memory.New(), 0).Export(context.Background(), -2)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
