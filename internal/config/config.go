package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Ledger
	DefaultUserID      int64
	DefaultUserName    string
	SeedDefaultBudgets bool
	RecentLimit        int

	// Logging
	LogLevel string

	// AMQP budget alerts, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID         string
	GoogleSummarySheetName      string
	GoogleTransactionsSheetName string
	ExportTimeout               time.Duration
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		DefaultUserID:      getEnvInt64("DEFAULT_USER_ID", 1),
		DefaultUserName:    getEnv("DEFAULT_USER_NAME", "Default User"),
		SeedDefaultBudgets: getEnvBool("SEED_DEFAULT_BUDGETS", true),
		RecentLimit:        getEnvInt("RECENT_LIMIT", 5),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_alerts"),

		GoogleSpreadsheetID:         getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheetName:      getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Budget Summary"),
		GoogleTransactionsSheetName: getEnv("GOOGLE_TRANSACTIONS_SHEET_NAME", "Transactions"),
		ExportTimeout:               getEnvDuration("EXPORT_TIMEOUT", 30*time.Second),
	}

	return cfg
}

// AlertsEnabled reports whether budget alerts should be published.
func (c *Config) AlertsEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.DefaultUserID < 1 {
		errors = append(errors, fmt.Sprintf("invalid default user id %d: must be positive", c.DefaultUserID))
	}
	if strings.TrimSpace(c.DefaultUserName) == "" {
		errors = append(errors, "default user name cannot be empty")
	}

	if c.RecentLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be at least 1", c.RecentLimit))
	} else if c.RecentLimit > 1000 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be at most 1000", c.RecentLimit))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if strings.TrimSpace(c.GoogleSummarySheetName) == "" || strings.TrimSpace(c.GoogleTransactionsSheetName) == "" {
			errors = append(errors, "Google sheet names cannot be empty when a spreadsheet is configured")
		} else if c.GoogleSummarySheetName == c.GoogleTransactionsSheetName {
			errors = append(errors, fmt.Sprintf("Google summary and transactions sheets must differ, both are '%s'", c.GoogleSummarySheetName))
		}
		if c.ExportTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid export timeout %v: must be at least 1 second", c.ExportTimeout))
		} else if c.ExportTimeout > 10*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid export timeout %v: must be at most 10 minutes", c.ExportTimeout))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
