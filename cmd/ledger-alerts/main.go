package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentAlerts)

	if !cfg.AlertsEnabled() {
		logger.Error("AMQP_URL is required for the alerts worker")
		os.Exit(1)
	}

	logger.Info("Starting budget alerts worker",
		"sqlite_path", cfg.SQLiteDBPath,
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sheets_enabled", cfg.SheetsEnabled())

	repo := cli.InitSQLite(context.Background(), logger, cfg)

	alerts := cli.InitAlerts(logger, cfg)
	if alerts == nil {
		repo.Close()
		logger.Error("Failed to connect to AMQP broker")
		os.Exit(1)
	}

	// the worker only reads; it never republishes alerts
	svc, err := cli.NewLedgerService(cfg, repo, nil)
	if err != nil {
		logger.Error("Failed to create ledger service", "error", err)
		os.Exit(1)
	}

	var exportSvc worker.Exporter
	exporter, err := cli.InitExporter(context.Background(), logger, cfg)
	if err != nil {
		logger.Warn("Sheets export unavailable, alerts will only be logged", "error", err)
	} else if exporter != nil {
		exportSvc = services.NewExportService(svc, exporter, cfg.ExportTimeout)
	}

	w := worker.NewAlertWorker(svc, exportSvc, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := alerts.Close(); err != nil {
			logger.Error("Error closing AMQP client", "error", err)
		}
		if err := repo.Close(); err != nil {
			logger.Error("Error closing database", "error", err)
		}
	})
	ctx = applog.WithLogger(ctx, logger)

	if err := alerts.ConsumeBudgetAlerts(ctx, w.HandleBudgetAlert); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert consumer stopped", "error", err)
		os.Exit(1)
	}

	<-done
}
