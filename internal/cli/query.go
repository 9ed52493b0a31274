package cli

import (
	"fmt"
	"os"

	"github.com/ogulcanaydogan/unicom-bill-guardian/internal/config"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/coordinator"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/sensor"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Fetch current usage and balance",
	Long: `Fetch the current voice, SMS, data, and balance figures once for every
configured account (or the one named by --account) and print them.`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringP("account", "a", "", "Query only this account")
	queryCmd.Flags().StringP("output", "o", OutputTable, "Output format (table, json, yaml)")
	queryCmd.Flags().Bool("all", false, "Include individual sensors")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accountName, _ := cmd.Flags().GetString("account")
	output, _ := cmd.Flags().GetString("output")
	all, _ := cmd.Flags().GetBool("all")

	accounts := cfg.Accounts
	if accountName != "" {
		acct, ok := cfg.Account(accountName)
		if !ok {
			return fmt.Errorf("account %q is not configured", accountName)
		}
		accounts = []config.AccountConfig{acct}
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts configured (set UBG_OPENID or add accounts to the config file)")
	}

	logger := newLogger(cfg)
	client := newClient(cfg, logger)

	reports := make([]AccountReport, 0, len(accounts))
	failed := 0
	for _, a := range accounts {
		coord := coordinator.New(coordinator.Config{
			Account: a.Name,
			OpenID:  a.OpenID,
			Timeout: cfg.Provider.Timeout,
		}, client, coordinator.WithLogger(logger))

		set := sensor.NewSet(a.Name, sensor.Specs(all || a.IndividualSensors))
		set.Attach(coord)

		report := AccountReport{Account: a.Name}
		if _, err := coord.Refresh(cmd.Context()); err != nil {
			report.Error = err.Error()
			failed++
		}
		report.Readings = set.Readings()
		report.Sensors = set.Sensors()
		reports = append(reports, report)

		set.Detach()
		coord.Stop()
	}

	if err := writeReports(os.Stdout, output, reports); err != nil {
		return err
	}
	if failed == len(reports) {
		return fmt.Errorf("all %d account(s) failed to refresh", failed)
	}
	return nil
}
