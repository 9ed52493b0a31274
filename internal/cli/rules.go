package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/storage"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage alert rules",
}

var rulesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update an alert rule",
	Long: `Create or update a rule that alerts when a sensor crosses a threshold.
Data thresholds are in MB, currency thresholds in CNY, ratios in percent.`,
	RunE: runRulesSet,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert rules",
	RunE:  runRulesList,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDelete,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesSetCmd, rulesListCmd, rulesDeleteCmd)

	rulesSetCmd.Flags().StringP("name", "n", "", "Rule name")
	rulesSetCmd.Flags().StringP("account", "a", "", "Account name")
	rulesSetCmd.Flags().StringP("sensor", "s", "", "Sensor key (e.g. balance, data, data_usage_ratio)")
	rulesSetCmd.Flags().String("when", string(model.CompareBelow), "Comparison (above, below)")
	rulesSetCmd.Flags().Float64P("threshold", "t", 0, "Threshold value")
	_ = rulesSetCmd.MarkFlagRequired("name")
	_ = rulesSetCmd.MarkFlagRequired("account")
	_ = rulesSetCmd.MarkFlagRequired("sensor")
	_ = rulesSetCmd.MarkFlagRequired("threshold")

	rulesListCmd.Flags().StringP("account", "a", "", "Filter by account")
	rulesListCmd.Flags().StringP("sensor", "s", "", "Filter by sensor")
}

func runRulesSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	account, _ := cmd.Flags().GetString("account")
	sensorKey, _ := cmd.Flags().GetString("sensor")
	when, _ := cmd.Flags().GetString("when")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	rule := &model.Rule{
		Name:       name,
		Account:    account,
		Sensor:     sensorKey,
		Comparison: model.Comparison(when),
		Threshold:  threshold,
	}
	if err := monitor.ValidateRule(rule); err != nil {
		return err
	}
	if _, ok := cfg.Account(account); !ok {
		fmt.Fprintf(os.Stderr, "warning: account %q is not in the current config\n", account)
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetRule(cmd.Context(), rule); err != nil {
		return fmt.Errorf("set rule: %w", err)
	}

	fmt.Printf("Rule %q set: %s %s %s %.2f\n", rule.Name, rule.Account, rule.Sensor, rule.Comparison, rule.Threshold)
	return nil
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	account, _ := cmd.Flags().GetString("account")
	sensorKey, _ := cmd.Flags().GetString("sensor")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rules, err := store.ListRules(cmd.Context(), storage.RuleFilter{Account: account, Sensor: sensorKey})
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	if len(rules) == 0 {
		fmt.Println("No rules configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tACCOUNT\tSENSOR\tWHEN\tTHRESHOLD\tSTATE\tLAST VALUE\n")
	for _, r := range rules {
		state := "ok"
		if r.Triggered {
			state = "TRIGGERED"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%.2f\n",
			r.Name, r.Account, r.Sensor, r.Comparison, r.Threshold, state, r.LastValue)
	}
	return w.Flush()
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteRule(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	fmt.Printf("Rule %q deleted.\n", args[0])
	return nil
}
