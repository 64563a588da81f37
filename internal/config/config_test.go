package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "famwell.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "famwell.db")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
	if cfg.ReminderHour != 19 {
		t.Errorf("ReminderHour = %d, want 19", cfg.ReminderHour)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without VAPID keys")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FAMWELL_PORT", "9090")
	t.Setenv("FAMWELL_BASE_URL", "https://famwell.example.com/")
	t.Setenv("FAMWELL_PUSH_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("FAMWELL_PUSH_VAPID_PRIVATE_KEY", "priv")
	t.Setenv("FAMWELL_EXPORT_S3_BUCKET", "exports")
	t.Setenv("FAMWELL_FEDERATED_HMAC_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.BaseURL != "https://famwell.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if !cfg.PushEnabled() {
		t.Error("push should be enabled")
	}
	if cfg.Export.Bucket != "exports" {
		t.Errorf("Export.Bucket = %q, want %q", cfg.Export.Bucket, "exports")
	}
	if !cfg.FederatedEnabled() {
		t.Error("federated sign-in should be enabled")
	}
}

func TestLoadRejectsBadReminderHour(t *testing.T) {
	t.Setenv("FAMWELL_REMINDER_HOUR", "24")
	if _, err := Load(); err == nil {
		t.Error("expected error for reminder hour 24")
	}
}
