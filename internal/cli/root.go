package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ogulcanaydogan/unicom-bill-guardian/internal/config"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/storage"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/unicom"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ubg",
	Short: "Unicom Bill Guardian - China Unicom usage and balance monitoring",
	Long: `Unicom Bill Guardian polls the China Unicom mini-program billing API for
voice, SMS, data, and balance figures, publishes them as sensors, and raises
alerts when a reading crosses a configured threshold.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.ubg/config.yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// newClient creates a billing API client from config.
func newClient(cfg *config.Config, logger *slog.Logger) *unicom.Client {
	return unicom.NewClient(unicom.Options{
		BaseURL: cfg.Provider.BaseURL,
		Channel: cfg.Provider.Channel,
		Timeout: cfg.Provider.Timeout,
		Logger:  logger,
	})
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}
