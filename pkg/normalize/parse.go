package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

const mbPerGB = 1024

// Localized unit suffixes the provider appends to voice and SMS amounts.
const (
	SuffixMinutes  = "分钟"
	SuffixMessages = "条"
)

// RatioScale describes how a category stores its usage ratio.
type RatioScale int

const (
	// RatioFraction ratios are in [0,1] and are multiplied by 100.
	RatioFraction RatioScale = iota
	// RatioPercent ratios are already percentages.
	RatioPercent
)

var sentinel = decimal.NewFromInt(-1)

// ParseUsageAmount parses a data amount such as "46.98MB" or "1.5GB". The suffix
// is matched case-sensitively. A string without a known suffix, or with a
// non-numeric remainder, is reported as zero MB, which is what the provider
// means by an empty amount.
func ParseUsageAmount(s string) Quantity {
	s = strings.TrimSpace(s)

	unit := UnitMB
	switch {
	case strings.HasSuffix(s, "GB"):
		unit = UnitGB
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		s = strings.TrimSuffix(s, "MB")
	default:
		return Quantity{Unit: UnitMB, Present: true}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Quantity{Unit: UnitMB, Present: true}
	}
	return Quantity{Magnitude: d.InexactFloat64(), Unit: unit, Present: true}
}

// Canonical converts a data amount to its display form: MB values of 1024 or more
// become GB, and every value is rounded to two decimals. GB is never converted
// back down to MB.
func Canonical(q Quantity) Quantity {
	if !q.Present {
		return q
	}
	switch q.Unit {
	case UnitMB:
		d := decimal.NewFromFloat(q.Magnitude)
		if d.GreaterThanOrEqual(decimal.NewFromInt(mbPerGB)) {
			return Quantity{
				Magnitude: d.Div(decimal.NewFromInt(mbPerGB)).Round(2).InexactFloat64(),
				Unit:      UnitGB,
				Present:   true,
			}
		}
		return Quantity{Magnitude: d.Round(2).InexactFloat64(), Unit: UnitMB, Present: true}
	case UnitGB:
		return Quantity{Magnitude: round2(q.Magnitude), Unit: UnitGB, Present: true}
	default:
		return q
	}
}

// ParseDataAmount is ParseUsageAmount followed by Canonical.
func ParseDataAmount(s string) Quantity {
	return Canonical(ParseUsageAmount(s))
}

// ParseSuffixed parses a voice or SMS amount such as "120分钟" or "50条". The
// suffix is optional. Anything that is not a number after stripping it is absent.
func ParseSuffixed(s, suffix string, unit Unit) Quantity {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), suffix))
	if s == "" {
		return Absent(unit)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Absent(unit)
	}
	return Quantity{Magnitude: d.InexactFloat64(), Unit: unit, Present: true}
}

// ParseRatio parses a usage ratio. The sentinel -1 and unparsable values are
// absent. The result is a percentage rounded to two decimals.
func ParseRatio(s string, scale RatioScale) Quantity {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.Equal(sentinel) {
		return Absent(UnitPercent)
	}
	if scale == RatioFraction {
		d = d.Mul(decimal.NewFromInt(100))
	}
	return Quantity{Magnitude: d.Round(2).InexactFloat64(), Unit: UnitPercent, Present: true}
}

// ParseCurrency parses a plain decimal amount of money. An unparsable value is
// absent, never zero.
func ParseCurrency(s string) Quantity {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Absent(UnitCurrency)
	}
	return Quantity{Magnitude: d.InexactFloat64(), Unit: UnitCurrency, Present: true}
}
