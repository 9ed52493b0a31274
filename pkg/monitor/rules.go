package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/sensor"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/storage"
)

// ValidateRule checks a rule before it is stored.
func ValidateRule(rule *model.Rule) error {
	var errs []error
	if strings.TrimSpace(rule.Name) == "" {
		errs = append(errs, errors.New("rule name is required"))
	}
	if strings.TrimSpace(rule.Account) == "" {
		errs = append(errs, errors.New("rule account is required"))
	}
	if _, ok := sensor.Lookup(rule.Sensor); !ok {
		errs = append(errs, fmt.Errorf("unknown sensor %q", rule.Sensor))
	}
	if !rule.Comparison.Valid() {
		errs = append(errs, fmt.Errorf("comparison must be %q or %q, got %q", model.CompareAbove, model.CompareBelow, rule.Comparison))
	}
	return errors.Join(errs...)
}

// RuleEvaluator checks an account's readings against its rules and dispatches an
// alert whenever a rule starts or stops breaching.
type RuleEvaluator struct {
	storage   storage.Storage
	notifiers []alerts.Notifier
	logger    *slog.Logger
}

// NewRuleEvaluator creates a rule evaluator.
func NewRuleEvaluator(store storage.Storage, notifiers []alerts.Notifier, logger *slog.Logger) *RuleEvaluator {
	return &RuleEvaluator{
		storage:   store,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Evaluate checks every rule of account and returns the alerts it dispatched.
// Rules whose reading is absent keep their state.
func (e *RuleEvaluator) Evaluate(ctx context.Context, account string, readings normalize.Readings) ([]alerts.Alert, error) {
	rules, err := e.storage.ListRules(ctx, storage.RuleFilter{Account: account})
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	var sent []alerts.Alert
	for i := range rules {
		alert, ok := e.check(ctx, &rules[i], readings)
		if ok {
			sent = append(sent, alert)
		}
	}
	return sent, nil
}

func (e *RuleEvaluator) check(ctx context.Context, rule *model.Rule, readings normalize.Readings) (alerts.Alert, bool) {
	spec, ok := sensor.Lookup(rule.Sensor)
	if !ok {
		e.logger.Warn("rule references unknown sensor", "rule", rule.Name, "sensor", rule.Sensor)
		return alerts.Alert{}, false
	}

	q := spec.Value(readings)
	if !q.Present {
		return alerts.Alert{}, false
	}

	value := q.Base()
	breached := rule.Comparison.Breached(value, rule.Threshold)

	if err := e.storage.UpdateRuleState(ctx, rule.Name, breached, value); err != nil {
		e.logger.Error("update rule state", "rule", rule.Name, "error", err)
		return alerts.Alert{}, false
	}
	if breached == rule.Triggered {
		return alerts.Alert{}, false
	}

	level := alerts.AlertResolved
	if breached {
		level = alerts.AlertTriggered
	}

	unit := baseUnit(q)
	alert := alerts.Alert{
		Level:      level,
		Rule:       rule.Name,
		Account:    rule.Account,
		Sensor:     rule.Sensor,
		Comparison: string(rule.Comparison),
		Value:      value,
		Threshold:  rule.Threshold,
		Unit:       unit,
		Message: fmt.Sprintf("%s %s: %s %.2f %s, threshold %s %.2f %s",
			rule.Account, rule.Name, spec.Name, value, unit, rule.Comparison, rule.Threshold, unit),
	}

	e.logger.Warn("rule state changed",
		"rule", rule.Name,
		"account", rule.Account,
		"level", level,
		"value", value,
		"threshold", rule.Threshold,
	)

	for _, notifier := range e.notifiers {
		if err := notifier.Send(ctx, alert); err != nil {
			e.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"rule", rule.Name,
				"error", err,
			)
		}
	}
	return alert, true
}

func baseUnit(q normalize.Quantity) string {
	if q.Unit == normalize.UnitGB {
		return string(normalize.UnitMB)
	}
	return normalize.Quantity{Unit: q.Unit}.Symbol()
}
