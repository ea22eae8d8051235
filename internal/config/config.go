package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/pkg/money"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Pricing   PricingConfig
	FX        map[string]string `mapstructure:"fx"`
	Providers map[string]ProviderConfig
	Quote     QuoteConfig
	Order     OrderConfig
	Cart      CartConfig
	Tracking  TrackingConfig
	Catalog   CatalogConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AdminKey        string        `mapstructure:"admin_key"` // empty disables /api/admin
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	LogSQL          bool          `mapstructure:"log_sql"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogConfig struct {
	Level string
}

// PricingConfig holds the platform-wide margin policy. Percentages are decimal strings.
type PricingConfig struct {
	ReferenceCurrency string `mapstructure:"reference_currency"`
	MinimumMarginPct  string `mapstructure:"minimum_margin_pct"`
	ShippingMarkupPct string `mapstructure:"shipping_markup_pct"`
}

func (p PricingConfig) MinimumMargin() decimal.Decimal {
	return decimal.RequireFromString(p.MinimumMarginPct)
}

func (p PricingConfig) ShippingMarkup() decimal.Decimal {
	return decimal.RequireFromString(p.ShippingMarkupPct)
}

// ProviderConfig carries per-provider credentials and transport tuning.
// Keys under providers are provider slugs.
type ProviderConfig struct {
	Enabled    bool
	BaseURL    string `mapstructure:"base_url"` // overrides the registry URL (sandbox)
	Token      string
	Username   string
	Password   string
	ShopID     string `mapstructure:"shop_id"`
	RecipeID   string `mapstructure:"recipe_id"`
	Timeout    time.Duration
	RetryCount int `mapstructure:"retry_count"`
}

type QuoteConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	TTL             time.Duration
	Concurrency     int
}

type OrderConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	NumberPrefix    string        `mapstructure:"number_prefix"`
}

type CartConfig struct {
	TTL time.Duration
}

type TrackingConfig struct {
	Enabled         bool
	Cron            string
	BatchSize       int `mapstructure:"batch_size"`
	Concurrency     int
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // manual refresh throttle
}

type CatalogConfig struct {
	SyncEnabled  bool          `mapstructure:"sync_enabled"`
	SyncCron     string        `mapstructure:"sync_cron"`
	SyncTimeout  time.Duration `mapstructure:"sync_timeout"`
	SyncInterval time.Duration `mapstructure:"sync_interval"` // manual sync throttle
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_key", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "pod_fulfillment")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("log.level", "info")

	v.SetDefault("pricing.reference_currency", money.ReferenceCurrency)
	v.SetDefault("pricing.minimum_margin_pct", "30")
	v.SetDefault("pricing.shipping_markup_pct", "10")

	v.SetDefault("fx", map[string]string{"USD": "5.10", "EUR": "5.60", "GBP": "6.50"})

	v.SetDefault("quote.provider_timeout", "8s")
	v.SetDefault("quote.ttl", "30m")
	v.SetDefault("quote.concurrency", 8)

	v.SetDefault("order.provider_timeout", "20s")
	v.SetDefault("order.number_prefix", "POD")

	v.SetDefault("cart.ttl", "72h")

	v.SetDefault("tracking.enabled", true)
	v.SetDefault("tracking.cron", "0 */15 * * * *")
	v.SetDefault("tracking.batch_size", 100)
	v.SetDefault("tracking.concurrency", 5)
	v.SetDefault("tracking.provider_timeout", "10s")
	v.SetDefault("tracking.refresh_interval", "1m")

	v.SetDefault("catalog.sync_enabled", true)
	v.SetDefault("catalog.sync_cron", "0 0 3 * * *")
	v.SetDefault("catalog.sync_timeout", "2m")
	v.SetDefault("catalog.sync_interval", "10m")
}

// Load reads config.yaml (optional) from path or the usual locations, then POD_* env vars.
// POD_DATABASE_HOST overrides database.host and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("..")
	}

	v.SetEnvPrefix("POD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	if err := v.ReadInConfig(); err != nil {
		// no file is fine, env vars and defaults carry it
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// KnownProviders are the slugs whose credentials can come from env alone,
// e.g. POD_PROVIDERS_PRODIGI_TOKEN.
var KnownProviders = []string{
	"prodigi", "printful", "printify", "gelato", "gooten",
	"customcat", "spod", "shineon", "zazzle", "redbubble",
}

var providerKeys = []string{"enabled", "base_url", "token", "username", "password", "shop_id", "recipe_id", "timeout", "retry_count"}

func bindProviderEnv(v *viper.Viper) {
	for _, slug := range KnownProviders {
		for _, key := range providerKeys {
			_ = v.BindEnv("providers." + slug + "." + key)
		}
	}
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	if !strings.EqualFold(c.Pricing.ReferenceCurrency, money.ReferenceCurrency) {
		return fmt.Errorf("pricing.reference_currency must be %s", money.ReferenceCurrency)
	}
	for key, raw := range map[string]string{
		"pricing.minimum_margin_pct":  c.Pricing.MinimumMarginPct,
		"pricing.shipping_markup_pct": c.Pricing.ShippingMarkupPct,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	if _, err := money.ParseRates(c.FX); err != nil {
		return err
	}
	return nil
}

// Rates returns the parsed FX table; Validate has already accepted it.
func (c *Config) Rates() money.Rates {
	rates, _ := money.ParseRates(c.FX)
	return rates
}

// Provider returns the config for a slug, or a zero value when none is set.
func (c *Config) Provider(slug string) ProviderConfig {
	if c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[slug]
}

// CredentialSource feeds provider clients from the providers section.
// Entries without enabled: true are ignored.
func (c *Config) CredentialSource() provider.CredentialSource {
	return func(slug string) provider.Credentials {
		pc := c.Provider(slug)
		if !pc.Enabled {
			return provider.Credentials{}
		}
		return provider.Credentials{
			Token:      pc.Token,
			Username:   pc.Username,
			Password:   pc.Password,
			ShopID:     pc.ShopID,
			RecipeID:   pc.RecipeID,
			BaseURL:    pc.BaseURL,
			Timeout:    pc.Timeout,
			RetryCount: pc.RetryCount,
		}
	}
}
