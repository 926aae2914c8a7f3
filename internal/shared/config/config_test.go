package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901") // 32 bytes
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Errorf("Scheduler.Interval = %v, want %v", cfg.Scheduler.Interval, time.Hour)
	}
	if cfg.Scheduler.WorkerCount != 5 {
		t.Errorf("Scheduler.WorkerCount = %d, want %d", cfg.Scheduler.WorkerCount, 5)
	}
	if cfg.Plaid.Environment != "sandbox" {
		t.Errorf("Plaid.Environment = %q, want %q", cfg.Plaid.Environment, "sandbox")
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	os.Unsetenv("ENCRYPTION_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing ENCRYPTION_KEY, got nil")
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_InvalidSyncInterval(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SYNC_INTERVAL", "soon")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid SYNC_INTERVAL, got nil")
	}
}

func TestLoad_NegativeSyncInterval(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SYNC_INTERVAL", "-1h")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for negative SYNC_INTERVAL, got nil")
	}
}

func TestLoad_InvalidPlaidEnv(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_ENV", "staging")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid PLAID_ENV, got nil")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SYNC_INTERVAL", "30m")
	t.Setenv("SYNC_WORKERS", "10")
	t.Setenv("DB_NAME", "budget_test")
	t.Setenv("PLAID_ENV", "Production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Scheduler.Interval != 30*time.Minute {
		t.Errorf("Scheduler.Interval = %v, want %v", cfg.Scheduler.Interval, 30*time.Minute)
	}
	if cfg.Scheduler.WorkerCount != 10 {
		t.Errorf("Scheduler.WorkerCount = %d, want %d", cfg.Scheduler.WorkerCount, 10)
	}
	if cfg.Database.DBName != "budget_test" {
		t.Errorf("Database.DBName = %q, want %q", cfg.Database.DBName, "budget_test")
	}
	if cfg.Plaid.Environment != "production" {
		t.Errorf("Plaid.Environment = %q, want %q", cfg.Plaid.Environment, "production")
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"", true, true},
		{"garbage", false, false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if tt.value == "" {
			os.Unsetenv("TEST_BOOL")
		}
		if got := getBoolEnv("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}
