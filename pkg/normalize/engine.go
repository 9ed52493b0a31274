// Package normalize turns raw provider records into typed, unit-consistent readings.
// Every function here is pure, and a field that cannot be parsed only affects its
// own Quantity.
package normalize

import (
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
)

// Category is a usage category reported by the usage endpoint.
type Category string

const (
	CategoryVoice Category = "voice"
	CategorySMS   Category = "sms"
	CategoryData  Category = "data"
)

// Categories lists every usage category in display order.
var Categories = []Category{CategoryVoice, CategorySMS, CategoryData}

type categoryRule struct {
	category    Category
	sourceType  string
	specialType string
	amount      func(model.Text) Quantity
	ratio       RatioScale
}

var categoryRules = []categoryRule{
	{
		category:    CategoryVoice,
		sourceType:  "1",
		specialType: "1",
		amount:      func(t model.Text) Quantity { return ParseSuffixed(t.String(), SuffixMinutes, UnitMinutes) },
		ratio:       RatioPercent,
	},
	{
		category:    CategorySMS,
		sourceType:  "2",
		specialType: "1",
		amount:      func(t model.Text) Quantity { return ParseSuffixed(t.String(), SuffixMessages, UnitCount) },
		ratio:       RatioPercent,
	},
	{
		category:    CategoryData,
		sourceType:  "3",
		specialType: "0",
		amount:      func(t model.Text) Quantity { return ParseDataAmount(t.String()) },
		ratio:       RatioFraction,
	},
}

// UsageReadings holds the normalized values of one usage category. When Present is
// false no record of that category was returned and every Quantity is absent.
type UsageReadings struct {
	Present   bool     `json:"present" yaml:"present"`
	Used      Quantity `json:"used" yaml:"used"`
	Total     Quantity `json:"total" yaml:"total"`
	Exceeded  Quantity `json:"exceeded" yaml:"exceeded"`
	Available Quantity `json:"available" yaml:"available"`
	UsedRatio Quantity `json:"used_ratio" yaml:"used_ratio"`
}

// BalanceReadings holds the normalized balance fields, all in CURRENCY.
type BalanceReadings struct {
	CanUse         Quantity `json:"can_use" yaml:"can_use"`
	Current        Quantity `json:"current" yaml:"current"`
	Available      Quantity `json:"available" yaml:"available"`
	TotalOwed      Quantity `json:"total_owed" yaml:"total_owed"`
	RealtimeFee    Quantity `json:"realtime_fee" yaml:"realtime_fee"`
	Credit         Quantity `json:"credit" yaml:"credit"`
	GrantAvailable Quantity `json:"grant_available" yaml:"grant_available"`
}

// Readings is the full normalized view of one snapshot.
type Readings struct {
	Account    string          `json:"account" yaml:"account"`
	SnapshotID string          `json:"snapshot_id" yaml:"snapshot_id"`
	FetchedAt  time.Time       `json:"fetched_at" yaml:"fetched_at"`
	Voice      UsageReadings   `json:"voice" yaml:"voice"`
	SMS        UsageReadings   `json:"sms" yaml:"sms"`
	Data       UsageReadings   `json:"data" yaml:"data"`
	Balance    BalanceReadings `json:"balance" yaml:"balance"`
}

// Usage returns the readings for a category.
func (r Readings) Usage(c Category) UsageReadings {
	switch c {
	case CategoryVoice:
		return r.Voice
	case CategorySMS:
		return r.SMS
	case CategoryData:
		return r.Data
	default:
		return UsageReadings{}
	}
}

// Normalize derives every reading from snap. A nil snapshot yields readings that
// are all absent.
func Normalize(snap *model.Snapshot) Readings {
	var r Readings
	for _, rule := range categoryRules {
		r.setUsage(rule.category, absentUsage(rule))
	}
	r.Balance = absentBalance()
	if snap == nil {
		return r
	}

	r.Account = snap.Account()
	r.SnapshotID = snap.ID()
	r.FetchedAt = snap.FetchedAt()

	for _, rule := range categoryRules {
		rec, ok := snap.FindUsage(rule.sourceType, rule.specialType)
		if !ok {
			continue
		}
		r.setUsage(rule.category, normalizeUsage(rule, rec))
	}
	r.Balance = NormalizeBalance(snap.Balance())
	return r
}

// NormalizeBalance converts a balance record.
func NormalizeBalance(b model.BalanceRecord) BalanceReadings {
	return BalanceReadings{
		CanUse:         ParseCurrency(b.CanUseFee.String()),
		Current:        ParseCurrency(b.CurrentBalance.String()),
		Available:      ParseCurrency(b.FeeAvailable.String()),
		TotalOwed:      ParseCurrency(b.TotalOwed.String()),
		RealtimeFee:    ParseCurrency(b.RealtimeFee.String()),
		Credit:         ParseCurrency(b.CreditValue.String()),
		GrantAvailable: ParseCurrency(b.GrantAvailable.String()),
	}
}

func normalizeUsage(rule categoryRule, rec model.UsageRecord) UsageReadings {
	return UsageReadings{
		Present:   true,
		Used:      rule.amount(rec.UsedValue),
		Total:     rule.amount(rec.Upper),
		Exceeded:  rule.amount(rec.ExceedValue),
		Available: rule.amount(rec.CanUseValue),
		UsedRatio: ParseRatio(rec.UsedRatio.String(), rule.ratio),
	}
}

func absentUsage(rule categoryRule) UsageReadings {
	unit := rule.amount("").Unit
	return UsageReadings{
		Used:      Absent(unit),
		Total:     Absent(unit),
		Exceeded:  Absent(unit),
		Available: Absent(unit),
		UsedRatio: Absent(UnitPercent),
	}
}

func absentBalance() BalanceReadings {
	return BalanceReadings{
		CanUse:         Absent(UnitCurrency),
		Current:        Absent(UnitCurrency),
		Available:      Absent(UnitCurrency),
		TotalOwed:      Absent(UnitCurrency),
		RealtimeFee:    Absent(UnitCurrency),
		Credit:         Absent(UnitCurrency),
		GrantAvailable: Absent(UnitCurrency),
	}
}

func (r *Readings) setUsage(c Category, u UsageReadings) {
	switch c {
	case CategoryVoice:
		r.Voice = u
	case CategorySMS:
		r.SMS = u
	case CategoryData:
		r.Data = u
	}
}
