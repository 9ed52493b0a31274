package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
)

// ErrNotFound is returned when a rule does not exist.
var ErrNotFound = errors.New("not found")

// RuleFilter narrows ListRules. Empty fields match everything.
type RuleFilter struct {
	Account string
	Sensor  string
}

// Storage defines the persistence layer for alert rules.
type Storage interface {
	// SetRule creates a rule or updates the rule with the same name. Updating
	// a rule clears its trigger state.
	SetRule(ctx context.Context, rule *model.Rule) error

	// GetRule retrieves a rule by name.
	GetRule(ctx context.Context, name string) (*model.Rule, error)

	// ListRules returns the rules matching filter, ordered by name.
	ListRules(ctx context.Context, filter RuleFilter) ([]model.Rule, error)

	// DeleteRule removes a rule by name.
	DeleteRule(ctx context.Context, name string) error

	// UpdateRuleState records whether a rule is triggered and the value it last saw.
	UpdateRuleState(ctx context.Context, name string, triggered bool, value float64) error

	// Close releases resources.
	Close() error
}
