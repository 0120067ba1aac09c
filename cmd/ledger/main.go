package main

import (
	"context"
	"fmt"
	"os"

	"ledger/internal/cli"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

var exitCode int

func main() {
	realMain()
	os.Exit(exitCode)
}

func realMain() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentLedger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := applog.WithLogger(context.Background(), logger)

	repo := cli.InitSQLite(ctx, logger, cfg)
	defer repo.Close()

	alerts := cli.InitAlerts(logger, cfg)
	if alerts != nil {
		defer alerts.Close()
	}

	svc, err := cli.NewLedgerService(cfg, repo, alerts)
	if err != nil {
		logger.Error("Failed to create ledger service", "error", err)
		exitCode = 1
		return
	}

	exporter, err := cli.InitExporter(ctx, logger, cfg)
	if err != nil {
		logger.Warn("Sheets export unavailable", "error", err)
	}

	app := &app{
		ledger: svc,
		out:    os.Stdout,
		today:  core.Today,
	}
	if exporter != nil {
		app.exporter = services.NewExportService(svc, exporter, cfg.ExportTimeout)
	}

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitCode = 1
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: ledger <command> [flags]

commands:
  add      record a transaction (negative amount for expenses)
  delete   remove a transaction
  edit     change fields of a transaction
  list     list transactions, optionally for a month
  recent   show the latest transactions
  balance  show the account balance
  summary  show budget status per category
  budget   manage budgets: set | update | replace | remove | list | status
  users    list users, or add one with -name
  export   mirror the ledger into Google Sheets
`)
}
