package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit is the canonical unit of a Quantity.
type Unit string

const (
	UnitMB       Unit = "MB"
	UnitGB       Unit = "GB"
	UnitMinutes  Unit = "MINUTES"
	UnitCount    Unit = "COUNT"
	UnitPercent  Unit = "PERCENT"
	UnitCurrency Unit = "CURRENCY"
)

// Quantity is a normalized numeric value. Present is false when the provider did
// not report the field, reported the "not tracked" sentinel, or sent something
// that could not be parsed.
type Quantity struct {
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
	Unit      Unit    `json:"unit" yaml:"unit"`
	Present   bool    `json:"present" yaml:"present"`
}

// Absent returns a Quantity with no value in the given unit.
func Absent(unit Unit) Quantity {
	return Quantity{Unit: unit}
}

// Base returns the magnitude in the unit family's base unit. GB is reported in MB
// so thresholds can be compared regardless of display canonicalization.
func (q Quantity) Base() float64 {
	if q.Unit == UnitGB {
		return decimal.NewFromFloat(q.Magnitude).Mul(decimal.NewFromInt(mbPerGB)).InexactFloat64()
	}
	return q.Magnitude
}

// Symbol is the short unit label used in human-readable output.
func (q Quantity) Symbol() string {
	switch q.Unit {
	case UnitMinutes:
		return "min"
	case UnitCount:
		return "msgs"
	case UnitPercent:
		return "%"
	case UnitCurrency:
		return "CNY"
	default:
		return string(q.Unit)
	}
}

func (q Quantity) String() string {
	if !q.Present {
		return "n/a"
	}
	v := decimal.NewFromFloat(q.Magnitude).StringFixed(2)
	if q.Unit == UnitPercent {
		return v + "%"
	}
	return fmt.Sprintf("%s %s", v, q.Symbol())
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
