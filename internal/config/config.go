// Package config loads runtime configuration from the environment.
// Collaborator handles are constructed once in main from the loaded
// Config; a missing required setting is fatal at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// ConfigurationError reports a missing or malformed setting. It is
// returned from FromEnv and is never retried: the process must be
// restarted with a corrected environment.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

// Config carries every external endpoint and credential the binaries
// need. Fields without a Required tag fall back to sensible defaults
// or disable the feature they configure.
type Config struct {
	// HTTP server.
	Port string

	// Tenant owning the ledger partitions written by this deployment.
	Tenant string

	// DynamoDB table names.
	LedgerTable   string
	SavingsTable  string
	CardsTable    string
	PeopleTable   string
	AccountsTable string

	// Object storage for async CSV uploads.
	Bucket string

	// SQS queue for ingestion jobs. Empty means the in-memory queue.
	QueueURL string

	// Email notifications. Empty sender disables email entirely.
	EmailSender string

	// BigQuery analytics mirror. Empty project disables mirroring.
	AnalyticsProject string
	AnalyticsDataset string

	// Maximum accepted CSV upload size in bytes.
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 10 << 20

// FromEnv reads configuration from the process environment. Required
// settings are the tenant and the ledger table name; everything else
// is optional and degrades to a disabled feature.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:             envOr("PORT", "8080"),
		Tenant:           os.Getenv("LEDGER_TENANT"),
		LedgerTable:      os.Getenv("LEDGER_TABLE"),
		SavingsTable:     envOr("SAVINGS_TABLE", "savings"),
		CardsTable:       envOr("CARDS_TABLE", "cards"),
		PeopleTable:      envOr("PEOPLE_TABLE", "people"),
		AccountsTable:    envOr("ACCOUNTS_TABLE", "accounts"),
		Bucket:           os.Getenv("UPLOAD_BUCKET"),
		QueueURL:         os.Getenv("INGEST_QUEUE_URL"),
		EmailSender:      os.Getenv("EMAIL_SENDER"),
		AnalyticsProject: os.Getenv("ANALYTICS_PROJECT"),
		AnalyticsDataset: envOr("ANALYTICS_DATASET", "ledger"),
		MaxUploadBytes:   defaultMaxUploadBytes,
	}

	if cfg.Tenant == "" {
		return nil, &ConfigurationError{Key: "LEDGER_TENANT", Reason: "must be set"}
	}
	if cfg.LedgerTable == "" {
		return nil, &ConfigurationError{Key: "LEDGER_TABLE", Reason: "must be set"}
	}

	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return nil, &ConfigurationError{Key: "MAX_UPLOAD_BYTES", Reason: "must be a positive integer"}
		}
		cfg.MaxUploadBytes = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
