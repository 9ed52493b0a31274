package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	DefaultRefreshInterval = 15 // minutes
	MinRefreshInterval     = 1
	MaxRefreshInterval     = 60

	// DefaultAccountName is used for the account synthesized from UBG_OPENID.
	DefaultAccountName = "default"
)

// Config holds all Unicom Bill Guardian configuration.
type Config struct {
	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Provider ProviderConfig  `mapstructure:"provider" yaml:"provider"`
	Server   ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Alerts   AlertsConfig    `mapstructure:"alerts" yaml:"alerts"`
	Metrics  MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// AccountConfig defines one monitored account.
type AccountConfig struct {
	Name              string `mapstructure:"name" yaml:"name"`
	OpenID            string `mapstructure:"openid" yaml:"openid"`
	RefreshInterval   int    `mapstructure:"refresh_interval" yaml:"refresh_interval"` // minutes
	IndividualSensors bool   `mapstructure:"individual_sensors" yaml:"individual_sensors"`
}

// Interval returns the refresh interval as a duration.
func (a AccountConfig) Interval() time.Duration {
	return time.Duration(a.RefreshInterval) * time.Minute
}

// ProviderConfig defines the billing API endpoint.
type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Channel string        `mapstructure:"channel" yaml:"channel"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen" yaml:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack" yaml:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string `mapstructure:"channel" yaml:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Secret  string `mapstructure:"secret" yaml:"secret"`
}

// MetricsConfig defines the constant labels of exported metrics.
type MetricsConfig struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".ubg"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("openid", "")
	v.SetDefault("provider.base_url", "https://mina.10010.com/wxapplet/weixinNew")
	v.SetDefault("provider.channel", "wxmini")
	v.SetDefault("provider.timeout", "10s")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("storage.path", filepath.Join(home, ".ubg", "guardian.db"))
	v.SetDefault("alerts.slack.channel", "#billing")
	v.SetDefault("metrics.environment", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("UBG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if openid := v.GetString("openid"); openid != "" && len(cfg.Accounts) == 0 {
		cfg.Accounts = []AccountConfig{{Name: DefaultAccountName, OpenID: openid}}
	}
	for i := range cfg.Accounts {
		cfg.Accounts[i].OpenID = ExpandEnvVars(cfg.Accounts[i].OpenID)
		if cfg.Accounts[i].RefreshInterval == 0 {
			cfg.Accounts[i].RefreshInterval = DefaultRefreshInterval
		}
	}
	cfg.Alerts.Webhook.Secret = ExpandEnvVars(cfg.Alerts.Webhook.Secret)

	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		name := strings.TrimSpace(a.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("accounts[%d]: name is required", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate name %q", i, name))
		}
		seen[name] = true

		if strings.TrimSpace(a.OpenID) == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]: openid is required", i))
		}
		if a.RefreshInterval < MinRefreshInterval || a.RefreshInterval > MaxRefreshInterval {
			errs = append(errs, fmt.Errorf("accounts[%d]: refresh_interval must be between %d and %d minutes, got %d",
				i, MinRefreshInterval, MaxRefreshInterval, a.RefreshInterval))
		}
	}

	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.slack.webhook_url is required when slack is enabled"))
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		errs = append(errs, errors.New("alerts.webhook.url is required when the webhook is enabled"))
	}

	return errors.Join(errs...)
}

// Account returns the named account.
func (c *Config) Account(name string) (AccountConfig, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return AccountConfig{}, false
}

// Redacted returns a copy safe to print: openids and secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Accounts = make([]AccountConfig, len(c.Accounts))
	for i, a := range c.Accounts {
		a.OpenID = mask(a.OpenID)
		out.Accounts[i] = a
	}
	out.Alerts.Slack.WebhookURL = mask(c.Alerts.Slack.WebhookURL)
	out.Alerts.Webhook.Secret = mask(c.Alerts.Webhook.Secret)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// ExpandEnvVars expands $VAR and ${VAR} references.
func ExpandEnvVars(s string) string {
	return os.ExpandEnv(s)
}
