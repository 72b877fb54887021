package config

import (
	"errors"
	"testing"
)

func TestFromEnvRequiresTenant(t *testing.T) {
	t.Setenv("LEDGER_TENANT", "")
	t.Setenv("LEDGER_TABLE", "ledger")

	_, err := FromEnv()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "LEDGER_TENANT" {
		t.Errorf("Key = %q, want LEDGER_TENANT", cfgErr.Key)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LEDGER_TENANT", "acme")
	t.Setenv("LEDGER_TABLE", "ledger")
	t.Setenv("PORT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
	if cfg.SavingsTable != "savings" {
		t.Errorf("SavingsTable = %q, want savings", cfg.SavingsTable)
	}
}

func TestFromEnvRejectsBadUploadLimit(t *testing.T) {
	t.Setenv("LEDGER_TENANT", "acme")
	t.Setenv("LEDGER_TABLE", "ledger")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	_, err := FromEnv()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
