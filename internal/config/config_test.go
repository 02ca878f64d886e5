package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var configEnv = []string{
	"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL",
	"GOOGLE_CLOUD_PROJECT", "SECRET_NAME",
	"CATALOG_BACKEND", "CATALOG_FIXTURE",
	"REMOTE_STORE_URL", "REMOTE_STORE_API_KEY", "REMOTE_TIMEOUT", "REMOTE_FINGERPRINT",
	"PERSIST_BACKEND", "DATABASE_URL",
	"FREE_SHIPPING_OVER", "FLAT_SHIPPING", "TAX_RATE", "RECOMMEND_SEED",
	"LEDGER_CACHE_SIZE",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.Catalog.Backend != BackendMemory || cfg.Persist.Backend != BackendMemory {
		t.Errorf("backends = %s/%s, want memory/memory", cfg.Catalog.Backend, cfg.Persist.Backend)
	}
	if cfg.Remote.Timeout != 0 {
		t.Errorf("Remote.Timeout = %v, want 0 (client default)", cfg.Remote.Timeout)
	}
	if cfg.RecommendSeed != 0 {
		t.Errorf("RecommendSeed = %d, want 0", cfg.RecommendSeed)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_BACKEND", "remote")
	t.Setenv("REMOTE_STORE_URL", "https://records.example.com")
	t.Setenv("REMOTE_STORE_API_KEY", "key-123")
	t.Setenv("REMOTE_TIMEOUT", "3s")
	t.Setenv("PERSIST_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/storefront")
	t.Setenv("FREE_SHIPPING_OVER", "75")
	t.Setenv("TAX_RATE", "0.1")
	t.Setenv("RECOMMEND_SEED", "42")
	t.Setenv("LEDGER_CACHE_SIZE", "256")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Remote.URL != "https://records.example.com" || cfg.Remote.APIKey != "key-123" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("Remote.Timeout = %v, want 3s", cfg.Remote.Timeout)
	}
	if cfg.Persist.DatabaseURL != "postgres://localhost/storefront" {
		t.Errorf("DatabaseURL = %s", cfg.Persist.DatabaseURL)
	}
	if !cfg.Pricing.FreeShippingOver.Equal(decimal.NewFromInt(75)) {
		t.Errorf("FreeShippingOver = %s, want 75", cfg.Pricing.FreeShippingOver)
	}
	if cfg.RecommendSeed != 42 {
		t.Errorf("RecommendSeed = %d, want 42", cfg.RecommendSeed)
	}
	if cfg.LedgerCacheSize != 256 {
		t.Errorf("LedgerCacheSize = %d, want 256", cfg.LedgerCacheSize)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr string
	}{
		{
			name: "unknown catalog backend",
			setup: func(t *testing.T) {
				t.Setenv("CATALOG_BACKEND", "sqlite")
			},
			wantErr: "unknown catalog backend",
		},
		{
			name: "remote without url",
			setup: func(t *testing.T) {
				t.Setenv("CATALOG_BACKEND", "remote")
				t.Setenv("REMOTE_STORE_API_KEY", "key")
			},
			wantErr: "REMOTE_STORE_URL is required",
		},
		{
			name: "remote with malformed url",
			setup: func(t *testing.T) {
				t.Setenv("CATALOG_BACKEND", "remote")
				t.Setenv("REMOTE_STORE_URL", "not a url")
				t.Setenv("REMOTE_STORE_API_KEY", "key")
			},
			wantErr: "invalid REMOTE_STORE_URL",
		},
		{
			name: "remote without api key",
			setup: func(t *testing.T) {
				t.Setenv("CATALOG_BACKEND", "remote")
				t.Setenv("REMOTE_STORE_URL", "https://records.example.com")
			},
			wantErr: "REMOTE_STORE_API_KEY is required",
		},
		{
			name: "postgres without database url",
			setup: func(t *testing.T) {
				t.Setenv("PERSIST_BACKEND", "postgres")
			},
			wantErr: "DATABASE_URL is required",
		},
		{
			name: "unknown persist backend",
			setup: func(t *testing.T) {
				t.Setenv("PERSIST_BACKEND", "redis")
			},
			wantErr: "unknown persist backend",
		},
		{
			name: "bad timeout",
			setup: func(t *testing.T) {
				t.Setenv("REMOTE_TIMEOUT", "soon")
			},
			wantErr: "parsing REMOTE_TIMEOUT",
		},
		{
			name: "bad amount",
			setup: func(t *testing.T) {
				t.Setenv("FLAT_SHIPPING", "free")
			},
			wantErr: "parsing FLAT_SHIPPING",
		},
		{
			name: "negative tax",
			setup: func(t *testing.T) {
				t.Setenv("TAX_RATE", "-0.1")
			},
			wantErr: "must not be negative",
		},
		{
			name: "bad seed",
			setup: func(t *testing.T) {
				t.Setenv("RECOMMEND_SEED", "lucky")
			},
			wantErr: "parsing RECOMMEND_SEED",
		},
		{
			name: "bad cache size",
			setup: func(t *testing.T) {
				t.Setenv("LEDGER_CACHE_SIZE", "many")
			},
			wantErr: "parsing LEDGER_CACHE_SIZE",
		},
		{
			name: "negative cache size",
			setup: func(t *testing.T) {
				t.Setenv("LEDGER_CACHE_SIZE", "-1")
			},
			wantErr: "ledger cache size must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tt.setup(t)

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("Load() should return error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCalculator(t *testing.T) {
	cfg := &Config{}
	calc := cfg.Calculator()
	if !calc.FlatShipping.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("default FlatShipping = %s, want 9.99", calc.FlatShipping)
	}

	cfg.Pricing = PricingConfig{
		FreeShippingOver: decimal.NewFromInt(100),
		FlatShipping:     decimal.RequireFromString("4.50"),
		TaxRate:          decimal.RequireFromString("0.2"),
	}
	calc = cfg.Calculator()
	if !calc.FreeShippingOver.Equal(decimal.NewFromInt(100)) {
		t.Errorf("FreeShippingOver = %s, want 100", calc.FreeShippingOver)
	}
	if !calc.FlatShipping.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("FlatShipping = %s, want 4.5", calc.FlatShipping)
	}
	if !calc.TaxRate.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("TaxRate = %s, want 0.2", calc.TaxRate)
	}
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		Remote:  RemoteConfig{APIKey: "from-env"},
		Persist: PersistConfig{DatabaseURL: "postgres://env"},
	}

	if err := cfg.applySecrets([]byte(`{"remote_store_api_key":"from-secret"}`)); err != nil {
		t.Fatalf("applySecrets() error: %v", err)
	}
	if cfg.Remote.APIKey != "from-secret" {
		t.Errorf("APIKey = %s, want from-secret", cfg.Remote.APIKey)
	}
	if cfg.Persist.DatabaseURL != "postgres://env" {
		t.Errorf("DatabaseURL = %s, want unchanged", cfg.Persist.DatabaseURL)
	}

	if err := cfg.applySecrets([]byte("not json")); err == nil {
		t.Error("applySecrets() should reject invalid JSON")
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "custom")
	if got := envOrDefault("TEST_ENV_VAR", "default"); got != "custom" {
		t.Errorf("envOrDefault(set) = %s, want custom", got)
	}
	if got := envOrDefault("TEST_ENV_VAR_UNSET", "default"); got != "default" {
		t.Errorf("envOrDefault(unset) = %s, want default", got)
	}
}

func TestWithDefault(t *testing.T) {
	if got := withDefault("", "fallback"); got != "fallback" {
		t.Errorf("withDefault(\"\") = %s, want fallback", got)
	}
	if got := withDefault("value", "fallback"); got != "value" {
		t.Errorf("withDefault(value) = %s, want value", got)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.json")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `{
		"port": "3000",
		"environment": "development",
		"catalog": {"backend": "remote", "fixture": ""},
		"remote": {"url": "https://records.example.com", "api_key": "file-key"},
		"remote_timeout": "2s",
		"persist": {"backend": "memory"},
		"pricing": {"flat_shipping": "5.00"},
		"recommend_seed": 7,
		"ledger_cache_size": 64
	}`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %s, want 3000", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info (default)", cfg.LogLevel)
	}
	if cfg.Catalog.Backend != BackendRemote || cfg.Remote.APIKey != "file-key" {
		t.Errorf("Catalog = %+v, Remote = %+v", cfg.Catalog, cfg.Remote)
	}
	if cfg.Remote.Timeout != 2*time.Second {
		t.Errorf("Remote.Timeout = %v, want 2s", cfg.Remote.Timeout)
	}
	if !cfg.Pricing.FlatShipping.Equal(decimal.NewFromInt(5)) {
		t.Errorf("FlatShipping = %s, want 5", cfg.Pricing.FlatShipping)
	}
	if cfg.RecommendSeed != 7 {
		t.Errorf("RecommendSeed = %d, want 7", cfg.RecommendSeed)
	}
	if cfg.LedgerCacheSize != 64 {
		t.Errorf("LedgerCacheSize = %d, want 64", cfg.LedgerCacheSize)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", "/nonexistent/config.json")
		_, err := Load(context.Background())
		if err == nil || !strings.Contains(err.Error(), "reading config file") {
			t.Errorf("error = %v, want reading config file", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, "not json"))
		_, err := Load(context.Background())
		if err == nil || !strings.Contains(err.Error(), "parsing config file") {
			t.Errorf("error = %v, want parsing config file", err)
		}
	})

	t.Run("fails validation", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, `{"persist": {"backend": "postgres"}}`))
		_, err := Load(context.Background())
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
			t.Errorf("error = %v, want DATABASE_URL", err)
		}
	})
}
