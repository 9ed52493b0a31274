package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o644))
	return cfgPath
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Accounts)
	assert.Equal(t, "https://mina.10010.com/wxapplet/weixinNew", cfg.Provider.BaseURL)
	assert.Equal(t, "wxmini", cfg.Provider.Channel)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "#billing", cfg.Alerts.Slack.Channel)
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("HOME_OPENID", "oid-from-env")
	cfgPath := writeConfig(t, `
accounts:
  - name: home
    openid: ${HOME_OPENID}
    refresh_interval: 30
    individual_sensors: true
  - name: office
    openid: oid-office
provider:
  timeout: 5s
storage:
  path: /tmp/test.db
server:
  listen: ":9090"
logging:
  level: debug
`)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Accounts, 2)
	home := cfg.Accounts[0]
	assert.Equal(t, "home", home.Name)
	assert.Equal(t, "oid-from-env", home.OpenID)
	assert.Equal(t, 30*time.Minute, home.Interval())
	assert.True(t, home.IndividualSensors)

	office, ok := cfg.Account("office")
	require.True(t, ok)
	assert.Equal(t, config.DefaultRefreshInterval, office.RefreshInterval)
	assert.False(t, office.IndividualSensors)

	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UBG_LOGGING_LEVEL", "error")
	t.Setenv("UBG_SERVER_LISTEN", ":7070")
	t.Setenv("UBG_OPENID", "oid-env")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, config.DefaultAccountName, cfg.Accounts[0].Name)
	assert.Equal(t, "oid-env", cfg.Accounts[0].OpenID)
	assert.Equal(t, config.DefaultRefreshInterval, cfg.Accounts[0].RefreshInterval)
}

func TestLoad_InvalidFile(t *testing.T) {
	cfgPath := writeConfig(t, "invalid: [yaml")

	_, err := config.Load(cfgPath)
	assert.Error(t, err)
}

func TestValidate_RefreshInterval(t *testing.T) {
	tests := []struct {
		interval int
		valid    bool
	}{
		{1, true},
		{15, true},
		{60, true},
		{61, false},
		{-5, false},
	}

	for _, tt := range tests {
		cfg := &config.Config{
			Accounts: []config.AccountConfig{{Name: "home", OpenID: "oid", RefreshInterval: tt.interval}},
			Provider: config.ProviderConfig{Timeout: time.Second},
		}
		err := cfg.Validate()
		if tt.valid {
			assert.NoError(t, err, "interval %d", tt.interval)
		} else {
			assert.ErrorContains(t, err, "refresh_interval must be between 1 and 60", "interval %d", tt.interval)
		}
	}
}

func TestLoad_ZeroIntervalSelectsDefault(t *testing.T) {
	cfgPath := writeConfig(t, `
accounts:
  - name: home
    openid: oid
    refresh_interval: 0
`)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Accounts[0].Interval())
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &config.Config{
		Accounts: []config.AccountConfig{
			{Name: "home", OpenID: "", RefreshInterval: 15},
			{Name: "home", OpenID: "oid", RefreshInterval: 15},
			{Name: "", OpenID: "oid", RefreshInterval: 15},
		},
		Alerts: config.AlertsConfig{Slack: config.SlackConfig{Enabled: true}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "accounts[0]: openid is required")
	assert.Contains(t, msg, `accounts[1]: duplicate name "home"`)
	assert.Contains(t, msg, "accounts[2]: name is required")
	assert.Contains(t, msg, "provider.timeout must be positive")
	assert.Contains(t, msg, "alerts.slack.webhook_url is required")
}

func TestRedacted(t *testing.T) {
	cfg := &config.Config{
		Accounts: []config.AccountConfig{{Name: "home", OpenID: "oABCDEFGHIJ"}, {Name: "x", OpenID: "abc"}},
		Alerts:   config.AlertsConfig{Webhook: config.WebhookConfig{Secret: "topsecret"}},
	}

	r := cfg.Redacted()
	assert.Equal(t, "oABC****", r.Accounts[0].OpenID)
	assert.Equal(t, "****", r.Accounts[1].OpenID)
	assert.Equal(t, "tops****", r.Alerts.Webhook.Secret)
	assert.Equal(t, "oABCDEFGHIJ", cfg.Accounts[0].OpenID)
}
