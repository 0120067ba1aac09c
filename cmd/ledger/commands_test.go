package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/sheets/memory"
	"ledger/internal/storage"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	seed := core.SeedData{
		UserID:   1,
		UserName: "Default User",
		Budgets:  map[string]decimal.Decimal{"Food": decimal.NewFromInt(100)},
	}
	if err := repo.Seed(context.Background(), seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	svc, err := services.NewLedgerService(repo, nil, services.LedgerOptions{DefaultUserID: 1})
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}

	sheet := memory.New()
	out := &bytes.Buffer{}
	return &app{
		ledger:   svc,
		exporter: services.NewExportService(svc, sheet, time.Second),
		out:      out,
		today:    func() core.Date { return core.NewDate(2025, 3, 10) },
	}, out, sheet
}

func TestRun_AddReportsVerdicts(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	if err := a.run(ctx, "add", []string{"-amount", "-95", "-category", "Food"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got := out.String()
	for _, want := range []string{"saved transaction 1", "impact: WARNING", "status: WARNING"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}

	out.Reset()
	if err := a.run(ctx, "list", []string{"-month", "3", "-year", "2025"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "2025-03-10") || !strings.Contains(out.String(), "-95.00") {
		t.Errorf("list output = %q", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
		wantErr error
	}{
		{"zero amount", "add", []string{"-amount", "0", "-category", "Food"}, core.ErrValidation},
		{"bad date", "add", []string{"-amount", "-1", "-category", "Food", "-date", "10/03/2025"}, core.ErrFormat},
		{"month without year", "list", []string{"-month", "3"}, core.ErrValidation},
		{"current with month", "list", []string{"-current", "-month", "3", "-year", "2025"}, core.ErrValidation},
		{"zero user", "add", []string{"-user", "0", "-amount", "-1", "-category", "Food"}, core.ErrValidation},
		{"delete missing", "delete", []string{"-id", "42"}, core.ErrNotFound},
		{"remove missing budget", "budget", []string{"remove", "-category", "Gifts"}, core.ErrNotFound},
		{"negative limit", "budget", []string{"set", "-category", "Gifts", "-amount", "-5"}, core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestApp(t)
			err := a.run(context.Background(), tt.command, tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	a, _, _ := newTestApp(t)
	if err := a.run(context.Background(), "frobnicate", nil); err == nil {
		t.Error("expected error for unknown command")
	}
	if err := a.run(context.Background(), "budget", nil); err == nil {
		t.Error("expected error for budget without action")
	}
}

func TestRun_BudgetLifecycle(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	steps := []struct {
		args    []string
		wantErr bool
	}{
		{[]string{"set", "-category", "Gifts", "-amount", "50"}, false},
		{[]string{"set", "-category", "Gifts", "-amount", "60"}, true},
		{[]string{"update", "-category", "Gifts", "-amount", "70"}, false},
		{[]string{"update", "-category", "Travel", "-amount", "70"}, true},
		{[]string{"replace", "-category", "Travel", "-amount", "80"}, false},
	}
	for _, s := range steps {
		err := a.run(ctx, "budget", s.args)
		if (err != nil) != s.wantErr {
			t.Fatalf("budget %v: err = %v, wantErr %v", s.args, err, s.wantErr)
		}
	}

	out.Reset()
	if err := a.run(ctx, "budget", []string{"list"}); err != nil {
		t.Fatalf("budget list: %v", err)
	}
	want := "Food: 100.00\nGifts: 70.00\nTravel: 80.00\n"
	if out.String() != want {
		t.Errorf("budget list = %q, want %q", out.String(), want)
	}
}

func TestRun_EditOnlyChangesGivenFields(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	if err := a.run(ctx, "add", []string{"-amount", "-10", "-category", "Food", "-desc", "lunch"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.run(ctx, "edit", []string{"-id", "1", "-amount", "-12.50"}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	tx, err := a.ledger.GetTransaction(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("-12.50")) || tx.Description != "lunch" || tx.Category != "Food" {
		t.Errorf("tx = %+v", tx)
	}

	out.Reset()
	if err := a.run(ctx, "balance", nil); err != nil {
		t.Fatalf("balance: %v", err)
	}
	if out.String() != "balance: -12.50\n" {
		t.Errorf("balance output = %q", out.String())
	}
}

func TestRun_SummaryAndExport(t *testing.T) {
	a, out, sheet := newTestApp(t)
	ctx := context.Background()

	for _, args := range [][]string{
		{"-amount", "-120", "-category", "Food"},
		{"-amount", "1000", "-category", "Salary"},
	} {
		if err := a.run(ctx, "add", args); err != nil {
			t.Fatalf("add %v: %v", args, err)
		}
	}

	out.Reset()
	if err := a.run(ctx, "summary", nil); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out.String(), "OVER") || !strings.Contains(out.String(), "NO_BUDGET") {
		t.Errorf("summary output = %q", out.String())
	}

	if err := a.run(ctx, "export", nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	// header plus two rows each
	if len(sheet.Summary()) != 3 || len(sheet.Transactions()) != 3 {
		t.Errorf("exported %d summary rows, %d transaction rows", len(sheet.Summary()), len(sheet.Transactions()))
	}
}

func TestRun_Users(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	if err := a.run(ctx, "users", []string{"-name", "Alice"}); err != nil {
		t.Fatalf("users -name: %v", err)
	}
	out.Reset()
	if err := a.run(ctx, "users", nil); err != nil {
		t.Fatalf("users: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "1\tDefault User (default)") || !strings.Contains(got, "Alice") {
		t.Errorf("users output = %q", got)
	}
}

func TestRun_ListCurrentMonth(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	for _, args := range [][]string{
		{"-amount", "-5", "-category", "Food", "-date", "2025-02-28"},
		{"-amount", "-7", "-category", "Food"},
		{"-amount", "20", "-category", "Salary"},
	} {
		if err := a.run(ctx, "add", args); err != nil {
			t.Fatalf("add %v: %v", args, err)
		}
	}

	out.Reset()
	if err := a.run(ctx, "list", []string{"-current"}); err != nil {
		t.Fatalf("list -current: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "2025-02-28") {
		t.Errorf("previous month listed: %q", got)
	}
	if !strings.Contains(got, "income 20.00, expenses 7.00") {
		t.Errorf("totals missing from %q", got)
	}
}
