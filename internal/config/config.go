// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/shopspring/decimal"

	"storefront/internal/checkout"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRemote   = "remote"
	BackendPostgres = "postgres"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (optional; enable Secret Manager in production)
	GCPProject string
	SecretName string

	Catalog CatalogConfig
	Remote  RemoteConfig
	Persist PersistConfig
	Pricing PricingConfig

	// RecommendSeed seeds recommendation shuffling; 0 seeds from the clock.
	RecommendSeed int64

	// LedgerCacheSize bounds the carts and wishlists kept in memory; 0 keeps
	// the service default.
	LedgerCacheSize int
}

// CatalogConfig selects where products, orders and reviews come from.
type CatalogConfig struct {
	Backend string `json:"backend"` // "memory" or "remote"
	Fixture string `json:"fixture"` // YAML or JSON file; empty uses the built-in sample
}

// RemoteConfig describes the remote record store.
type RemoteConfig struct {
	URL         string        `json:"url"`
	APIKey      string        `json:"api_key"`
	Timeout     time.Duration `json:"-"`
	Fingerprint bool          `json:"fingerprint"` // browser TLS fingerprint
}

// PersistConfig selects the cart and wishlist store.
type PersistConfig struct {
	Backend     string `json:"backend"` // "memory" or "postgres"
	DatabaseURL string `json:"database_url"`
}

// PricingConfig overrides the checkout pricing rules. Zero values keep
// the defaults.
type PricingConfig struct {
	FreeShippingOver decimal.Decimal `json:"free_shipping_over"`
	FlatShipping     decimal.Decimal `json:"flat_shipping"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
}

// secrets is the JSON payload stored in Secret Manager.
type secrets struct {
	RemoteStoreAPIKey string `json:"remote_store_api_key"`
	DatabaseURL       string `json:"database_url"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
		SecretName:  os.Getenv("SECRET_NAME"),
		Catalog: CatalogConfig{
			Backend: envOrDefault("CATALOG_BACKEND", BackendMemory),
			Fixture: os.Getenv("CATALOG_FIXTURE"),
		},
		Remote: RemoteConfig{
			URL:         os.Getenv("REMOTE_STORE_URL"),
			APIKey:      os.Getenv("REMOTE_STORE_API_KEY"),
			Fingerprint: os.Getenv("REMOTE_FINGERPRINT") == "true",
		},
		Persist: PersistConfig{
			Backend:     envOrDefault("PERSIST_BACKEND", BackendMemory),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if cfg.Environment == "production" && cfg.GCPProject != "" && cfg.SecretName != "" {
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading secrets: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port          string        `json:"port"`
		Environment   string        `json:"environment"`
		LogLevel      string        `json:"log_level"`
		Catalog       CatalogConfig `json:"catalog"`
		Remote        RemoteConfig  `json:"remote"`
		RemoteTimeout string        `json:"remote_timeout"`
		Persist       PersistConfig `json:"persist"`
		Pricing       PricingConfig `json:"pricing"`
		RecommendSeed int64         `json:"recommend_seed"`
		LedgerCache   int           `json:"ledger_cache_size"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:          withDefault(fileConfig.Port, "8080"),
		Environment:   withDefault(fileConfig.Environment, "development"),
		LogLevel:      withDefault(fileConfig.LogLevel, "info"),
		Catalog:       fileConfig.Catalog,
		Remote:        fileConfig.Remote,
		Persist:       fileConfig.Persist,
		Pricing:       fileConfig.Pricing,
		RecommendSeed: fileConfig.RecommendSeed,

		LedgerCacheSize: fileConfig.LedgerCache,
	}
	cfg.Catalog.Backend = withDefault(cfg.Catalog.Backend, BackendMemory)
	cfg.Persist.Backend = withDefault(cfg.Persist.Backend, BackendMemory)

	cfg.Remote.Timeout, err = parseDuration("remote_timeout", fileConfig.RemoteTimeout)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
// Secret values override env vars; empty fields leave them unchanged.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretName)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applySecrets(result.Payload.Data)
}

// applySecrets merges a secret payload into the config.
func (c *Config) applySecrets(data []byte) error {
	var s secrets
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	if s.RemoteStoreAPIKey != "" {
		c.Remote.APIKey = s.RemoteStoreAPIKey
	}
	if s.DatabaseURL != "" {
		c.Persist.DatabaseURL = s.DatabaseURL
	}
	return nil
}

// loadFromEnv parses the typed environment variables.
func (c *Config) loadFromEnv() error {
	var err error
	if c.Remote.Timeout, err = parseDuration("REMOTE_TIMEOUT", os.Getenv("REMOTE_TIMEOUT")); err != nil {
		return err
	}

	if c.Pricing.FreeShippingOver, err = parseAmount("FREE_SHIPPING_OVER"); err != nil {
		return err
	}
	if c.Pricing.FlatShipping, err = parseAmount("FLAT_SHIPPING"); err != nil {
		return err
	}
	if c.Pricing.TaxRate, err = parseAmount("TAX_RATE"); err != nil {
		return err
	}

	if seed := os.Getenv("RECOMMEND_SEED"); seed != "" {
		if c.RecommendSeed, err = strconv.ParseInt(seed, 10, 64); err != nil {
			return fmt.Errorf("parsing RECOMMEND_SEED: %w", err)
		}
	}

	if size := os.Getenv("LEDGER_CACHE_SIZE"); size != "" {
		if c.LedgerCacheSize, err = strconv.Atoi(size); err != nil {
			return fmt.Errorf("parsing LEDGER_CACHE_SIZE: %w", err)
		}
	}

	return nil
}

func parseDuration(name, val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return d, nil
}

func parseAmount(key string) (decimal.Decimal, error) {
	val := os.Getenv(key)
	if val == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	switch c.Catalog.Backend {
	case BackendMemory:
	case BackendRemote:
		if c.Remote.URL == "" {
			return fmt.Errorf("REMOTE_STORE_URL is required for the remote catalog")
		}
		// Validate store URL is well-formed
		if u, err := url.Parse(c.Remote.URL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid REMOTE_STORE_URL: %q", c.Remote.URL)
		}
		if c.Remote.APIKey == "" {
			return fmt.Errorf("REMOTE_STORE_API_KEY is required for the remote catalog")
		}
	default:
		return fmt.Errorf("unknown catalog backend %q (memory or remote)", c.Catalog.Backend)
	}

	switch c.Persist.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Persist.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown persist backend %q (memory or postgres)", c.Persist.Backend)
	}

	if c.Pricing.FreeShippingOver.IsNegative() || c.Pricing.FlatShipping.IsNegative() || c.Pricing.TaxRate.IsNegative() {
		return fmt.Errorf("pricing values must not be negative")
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote timeout must not be negative")
	}
	if c.LedgerCacheSize < 0 {
		return fmt.Errorf("ledger cache size must not be negative")
	}

	return nil
}

// Calculator builds the checkout calculator, applying pricing overrides.
func (c *Config) Calculator() *checkout.Calculator {
	calc := checkout.New()
	if !c.Pricing.FreeShippingOver.IsZero() {
		calc.FreeShippingOver = c.Pricing.FreeShippingOver
	}
	if !c.Pricing.FlatShipping.IsZero() {
		calc.FlatShipping = c.Pricing.FlatShipping
	}
	if !c.Pricing.TaxRate.IsZero() {
		calc.TaxRate = c.Pricing.TaxRate
	}
	return calc
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
