package model

import "time"

// Comparison defines which side of a threshold breaches a rule.
type Comparison string

const (
	CompareAbove Comparison = "above"
	CompareBelow Comparison = "below"
)

// Valid reports whether c is a known comparison.
func (c Comparison) Valid() bool {
	return c == CompareAbove || c == CompareBelow
}

// Breached reports whether value is on the alerting side of threshold.
func (c Comparison) Breached(value, threshold float64) bool {
	switch c {
	case CompareAbove:
		return value > threshold
	case CompareBelow:
		return value < threshold
	default:
		return false
	}
}

// Rule watches one reading of one account and alerts when it crosses a threshold.
// Threshold is expressed in the reading's base unit (MB, minutes, count, percent, yuan).
type Rule struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Account    string     `json:"account" db:"account"`
	Sensor     string     `json:"sensor" db:"sensor"`
	Comparison Comparison `json:"comparison" db:"comparison"`
	Threshold  float64    `json:"threshold" db:"threshold"`
	Triggered  bool       `json:"triggered" db:"triggered"`
	LastValue  float64    `json:"last_value" db:"last_value"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
