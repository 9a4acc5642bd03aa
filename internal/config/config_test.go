package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults_AreValidForPlanMode(t *testing.T) {
	cfg := Defaults()
	cfg.Wix.APIKey = "k"
	cfg.Wix.DailyBudgetItemID = "item"

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults with wix credentials should validate: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Exchange.BaseURL = ""
	cfg.Exchange.DepthLimit = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "unknown log_level", "base_url", "depth_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q: %v", want, err)
		}
	}
}

func TestValidate_CredentialsRequiredForLiveTrading(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "run"
	cfg.Wix.APIKey = "k"
	cfg.Wix.DailyBudgetItemID = "item"

	// Dry run: no credentials needed.
	if err := cfg.Validate(); err != nil {
		t.Errorf("dry run should not require credentials: %v", err)
	}

	cfg.Trading.Enabled = true
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Errorf("live trading without credentials should fail: %v", err)
	}

	cfg.Exchange.APIKey = "key"
	cfg.Exchange.APISecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("live trading with credentials should validate: %v", err)
	}
}

func TestValidate_SubmitModeNeedsOrder(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "submit"
	cfg.Exchange.APIKey = "key"
	cfg.Exchange.APISecret = "secret"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "quantity") {
		t.Errorf("submit mode without quantity should fail: %v", err)
	}

	cfg.Order.Quantity = 5
	cfg.Order.Price = 0.001
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete submit config should validate: %v", err)
	}
}

func TestValidate_S3RequiresPostgres(t *testing.T) {
	cfg := Defaults()
	cfg.Wix.APIKey = "k"
	cfg.Wix.DailyBudgetItemID = "item"
	cfg.S3.Enabled = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "postgres.enabled") {
		t.Errorf("s3 without postgres should fail: %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "run"
log_level = "debug"

[exchange]
base_url = "https://sandbox.example.com"
depth_limit = 25

[trading]
interval = "12s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MMBOT_EXCHANGE_DEPTH_LIMIT", "10")
	t.Setenv("MMBOT_TRADING_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "run" || cfg.LogLevel != "debug" {
		t.Errorf("file values not applied: mode=%s level=%s", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Exchange.BaseURL != "https://sandbox.example.com" {
		t.Errorf("base_url = %s", cfg.Exchange.BaseURL)
	}
	if cfg.Trading.Interval.Duration != 12*time.Second {
		t.Errorf("interval = %v, want 12s", cfg.Trading.Interval.Duration)
	}
	// Env wins over file.
	if cfg.Exchange.DepthLimit != 10 {
		t.Errorf("depth_limit = %d, want env override 10", cfg.Exchange.DepthLimit)
	}
	if !cfg.Trading.Enabled {
		t.Error("trading.enabled env override not applied")
	}
	// Untouched fields keep defaults.
	if cfg.Trading.Condition != "GOOD_TILL_CANCELLED" {
		t.Errorf("condition = %s, want default", cfg.Trading.Condition)
	}
}

func TestLoad_LegacyEnvAliases(t *testing.T) {
	t.Setenv("LATOKEN_API_KEY", "legacy-key")
	t.Setenv("WIX_DAILY_BUDGET_DATA_ITEM_ID", "legacy-item")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.APIKey != "legacy-key" {
		t.Errorf("LATOKEN_API_KEY alias not applied: %s", cfg.Exchange.APIKey)
	}
	if cfg.Wix.DailyBudgetItemID != "legacy-item" {
		t.Errorf("WIX_DAILY_BUDGET_DATA_ITEM_ID alias not applied: %s", cfg.Wix.DailyBudgetItemID)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Exchange.APIKey = "real-key"
	cfg.Exchange.APISecret = "real-secret"
	cfg.Wix.APIKey = "wix-key"
	cfg.Redis.Password = "redis-pw"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"exchange api_key":    red.Exchange.APIKey,
		"exchange api_secret": red.Exchange.APISecret,
		"wix api_key":         red.Wix.APIKey,
		"redis password":      red.Redis.Password,
	} {
		if got != "***" {
			t.Errorf("%s not redacted: %q", name, got)
		}
	}

	// Original untouched.
	if cfg.Exchange.APISecret != "real-secret" {
		t.Error("RedactedConfig mutated the original")
	}
	// Empty fields stay empty rather than becoming "***".
	if red.Postgres.Password != "" {
		t.Errorf("empty password became %q", red.Postgres.Password)
	}
}
