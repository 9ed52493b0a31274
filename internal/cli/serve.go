package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/ogulcanaydogan/unicom-bill-guardian/internal/config"
	"github.com/ogulcanaydogan/unicom-bill-guardian/internal/server"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/metrics"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Monitor accounts and serve the HTTP API",
	Long: `Refresh every configured account on its schedule, evaluate alert rules after
each successful refresh, and serve readings and Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Server.Listen = listen
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, newLogger(cfg))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides server.listen)")
}

// runServe wires storage, alerting, metrics, and every configured account, then
// serves the HTTP API until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Accounts) == 0 {
		return errors.New("no accounts configured (set UBG_OPENID or add accounts to the config file)")
	}

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	refreshMetrics := metrics.New(reg, metrics.Config{
		ServiceName: "ubg",
		Environment: cfg.Metrics.Environment,
	})

	evaluator := monitor.NewRuleEvaluator(store, initNotifiers(cfg), logger)
	mgr := monitor.NewManager(newClient(cfg, logger), evaluator, refreshMetrics, logger)
	defer mgr.Close()

	for _, a := range cfg.Accounts {
		if _, err := mgr.AddAccount(ctx, monitor.AccountConfig{
			Name:              a.Name,
			OpenID:            a.OpenID,
			Interval:          a.Interval(),
			Timeout:           cfg.Provider.Timeout,
			IndividualSensors: a.IndividualSensors,
		}); err != nil {
			return fmt.Errorf("add account %s: %w", a.Name, err)
		}
	}

	apiServer := server.NewServer(mgr, reg, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("guardian started", "listen", cfg.Server.Listen, "accounts", len(cfg.Accounts))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
