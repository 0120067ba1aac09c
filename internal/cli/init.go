// Package cli provides common initialization shared by cmd/ledger and
// cmd/ledger-alerts.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/sheets"
	"ledger/internal/sheets/google"
	"ledger/internal/storage"
)

// SetupLogger initializes structured logging at the configured level and
// installs it as the slog default.
func SetupLogger(level string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info logging", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			"error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the ledger database and applies the seed from cfg.
// Returns the repository or exits the process on failure.
func InitSQLite(ctx context.Context, logger *applog.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	if err := repo.Seed(ctx, SeedData(cfg)); err != nil {
		repo.Close()
		logger.Error("Failed to seed ledger", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}

// SeedData builds the first-run seed for the configured default user.
func SeedData(cfg *config.Config) core.SeedData {
	seed := core.SeedData{
		UserID:   cfg.DefaultUserID,
		UserName: cfg.DefaultUserName,
	}
	if cfg.SeedDefaultBudgets {
		seed.Budgets = core.DefaultBudgets()
	} else {
		seed.Budgets = map[string]decimal.Decimal{}
	}
	return seed
}

// InitAlerts connects the budget alert publisher. It returns nil when alerts
// are disabled or the broker is unreachable; ledger writes never depend on it.
func InitAlerts(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.AlertsEnabled() {
		logger.Debug("Budget alerts disabled")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Budget alerts unavailable", "error", err)
		return nil
	}
	return client
}

// NewLedgerService wires the ledger service over repo. alerts may be nil.
func NewLedgerService(cfg *config.Config, repo *storage.SQLiteRepository, alerts *amqp.Client) (*services.LedgerService, error) {
	var publisher services.AlertPublisher
	if alerts != nil {
		publisher = alerts
	}
	return services.NewLedgerService(repo, publisher, services.LedgerOptions{
		DefaultUserID: cfg.DefaultUserID,
		RecentLimit:   cfg.RecentLimit,
	})
}

// InitExporter returns the Google Sheets exporter, or nil when no
// spreadsheet is configured.
func InitExporter(ctx context.Context, logger *applog.Logger, cfg *config.Config) (sheets.Exporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Debug("Sheets export disabled")
		return nil, nil
	}
	client, err := google.New(ctx, google.Options{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		SummarySheet:      cfg.GoogleSummarySheetName,
		TransactionsSheet: cfg.GoogleTransactionsSheetName,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM, after
// cleanup has run. The returned channel closes once shutdown completes or
// timeout expires.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}
