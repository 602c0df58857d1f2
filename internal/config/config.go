package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	Shopify ShopifyConfig
	Tables  TablesConfig
	Token   TokenConfig
	Audit   AuditConfig
	Report  ReportConfig
	Combine CombineConfig
}

type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

type ShopifyConfig struct {
	APIKey       string
	APISecret    string
	APIVersion   string
	Scopes       string
	RedirectBase string // public base URL of this API, used for the OAuth callback
	AppURL       string // where the callback redirects once the token is stored
}

// TablesConfig names the DynamoDB tables. Empty disables the feature using it.
type TablesConfig struct {
	Sessions   string
	OAuthState string
	Operations string
	Scans      string
}

// TokenConfig locates the 32-byte AES key for access tokens: either inline
// (base64) or as an SSM SecureString parameter name.
type TokenConfig struct {
	KeyB64   string
	KeyParam string
}

type AuditConfig struct {
	SnapshotBucket string
	TopicARN       string
}

type ReportConfig struct {
	Bucket          string
	Prefix          string
	Timezone        string
	DaysBack        int
	AthenaDatabase  string
	AthenaTable     string
	AthenaWorkgroup string
	AthenaOutput    string
}

type CombineConfig struct {
	Timezone           string
	Currency           string
	SendReceipt        bool
	CustomerOrderLimit int
}

// Load reads config.toml (optional) and the environment. Keys map to the
// upper-cased, underscore-joined env var: shopify.api_key -> SHOPIFY_API_KEY.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/var/task")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("combine.send_receipt", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Shopify: ShopifyConfig{
			APIKey:       v.GetString("shopify.api_key"),
			APISecret:    v.GetString("shopify.api_secret"),
			APIVersion:   v.GetString("shopify.api_version"),
			Scopes:       v.GetString("shopify.scopes"),
			RedirectBase: strings.TrimRight(v.GetString("shopify.redirect_base"), "/"),
			AppURL:       strings.TrimRight(v.GetString("shopify.app_url"), "/"),
		},
		Tables: TablesConfig{
			Sessions:   v.GetString("sessions.table"),
			OAuthState: v.GetString("oauth_state.table"),
			Operations: v.GetString("operations.table"),
			Scans:      v.GetString("scans.table"),
		},
		Token: TokenConfig{
			KeyB64:   v.GetString("token_enc.key_b64"),
			KeyParam: v.GetString("token_enc.key_param"),
		},
		Audit: AuditConfig{
			SnapshotBucket: v.GetString("snapshot.bucket"),
			TopicARN:       v.GetString("ops.topic_arn"),
		},
		Report: ReportConfig{
			Bucket:          v.GetString("analytics.bucket"),
			Prefix:          v.GetString("ops_report.prefix"),
			Timezone:        v.GetString("ops_report.timezone"),
			DaysBack:        v.GetInt("ops_report.days_back"),
			AthenaDatabase:  v.GetString("athena.database"),
			AthenaTable:     v.GetString("athena.table"),
			AthenaWorkgroup: v.GetString("athena.workgroup"),
			AthenaOutput:    v.GetString("athena.output"),
		},
		Combine: CombineConfig{
			Timezone:           v.GetString("combine.timezone"),
			Currency:           v.GetString("combine.currency"),
			SendReceipt:        v.GetBool("combine.send_receipt"),
			CustomerOrderLimit: v.GetInt("combine.customer_order_limit"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderdesk"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2026-01"
	}
	if cfg.Report.Prefix == "" {
		cfg.Report.Prefix = "ops_report/"
	}
	if cfg.Report.Timezone == "" {
		cfg.Report.Timezone = "America/Denver"
	}
	if cfg.Report.DaysBack == 0 {
		cfg.Report.DaysBack = 1
	}
	if cfg.Report.AthenaWorkgroup == "" {
		cfg.Report.AthenaWorkgroup = "primary"
	}
	if cfg.Combine.Timezone == "" {
		cfg.Combine.Timezone = "America/Denver"
	}
	if cfg.Combine.Currency == "" {
		cfg.Combine.Currency = "USD"
	}
	if cfg.Combine.CustomerOrderLimit == 0 {
		cfg.Combine.CustomerOrderLimit = 250
	}
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (expected json or console)", c.Log.Format)
	}
	if _, err := time.LoadLocation(c.Combine.Timezone); err != nil {
		return fmt.Errorf("invalid combine timezone %q: %w", c.Combine.Timezone, err)
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err)
	}
	if c.Combine.CustomerOrderLimit < 1 || c.Combine.CustomerOrderLimit > 250 {
		return fmt.Errorf("combine customer order limit must be between 1 and 250, got %d", c.Combine.CustomerOrderLimit)
	}
	if c.Report.DaysBack < 1 || c.Report.DaysBack > 90 {
		return fmt.Errorf("ops report days back must be between 1 and 90, got %d", c.Report.DaysBack)
	}
	if c.Report.AthenaOutput != "" && !strings.HasPrefix(c.Report.AthenaOutput, "s3://") {
		return fmt.Errorf("ATHENA_OUTPUT must start with s3://")
	}
	if c.IsProduction() && (c.Shopify.APIKey == "" || c.Shopify.APISecret == "") {
		return fmt.Errorf("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required in production")
	}
	return nil
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// RepairEnabled reports whether the ops report should refresh Athena partitions.
func (r ReportConfig) RepairEnabled() bool {
	return r.AthenaDatabase != "" && r.AthenaTable != "" && r.AthenaOutput != ""
}
