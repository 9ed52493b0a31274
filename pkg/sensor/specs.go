package sensor

import "github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"

// Spec declares one derived reading.
type Spec struct {
	Key        string
	Name       string
	Primary    bool
	Value      func(normalize.Readings) normalize.Quantity
	Attributes func(normalize.Readings) map[string]string
}

func usageAttributes(c normalize.Category) func(normalize.Readings) map[string]string {
	return func(r normalize.Readings) map[string]string {
		u := r.Usage(c)
		return map[string]string{
			"used":       u.Used.String(),
			"total":      u.Total.String(),
			"exceeded":   u.Exceeded.String(),
			"available":  u.Available.String(),
			"used_ratio": u.UsedRatio.String(),
		}
	}
}

func balanceAttributes(r normalize.Readings) map[string]string {
	b := r.Balance
	return map[string]string{
		"current_balance": b.Current.String(),
		"available":       b.Available.String(),
		"total_owed":      b.TotalOwed.String(),
		"realtime_fee":    b.RealtimeFee.String(),
		"credit":          b.Credit.String(),
		"grant_available": b.GrantAvailable.String(),
	}
}

var primarySpecs = []Spec{
	{
		Key: "voice", Name: "Voice usage", Primary: true,
		Value:      func(r normalize.Readings) normalize.Quantity { return r.Voice.Used },
		Attributes: usageAttributes(normalize.CategoryVoice),
	},
	{
		Key: "sms", Name: "SMS usage", Primary: true,
		Value:      func(r normalize.Readings) normalize.Quantity { return r.SMS.Used },
		Attributes: usageAttributes(normalize.CategorySMS),
	},
	{
		Key: "data", Name: "Data usage", Primary: true,
		Value:      func(r normalize.Readings) normalize.Quantity { return r.Data.Used },
		Attributes: usageAttributes(normalize.CategoryData),
	},
	{
		Key: "balance", Name: "Balance", Primary: true,
		Value:      func(r normalize.Readings) normalize.Quantity { return r.Balance.CanUse },
		Attributes: balanceAttributes,
	},
}

var individualSpecs = []Spec{
	{Key: "voice_total", Name: "Voice total", Value: func(r normalize.Readings) normalize.Quantity { return r.Voice.Total }},
	{Key: "voice_available", Name: "Voice available", Value: func(r normalize.Readings) normalize.Quantity { return r.Voice.Available }},
	{Key: "voice_usage_ratio", Name: "Voice usage ratio", Value: func(r normalize.Readings) normalize.Quantity { return r.Voice.UsedRatio }},
	{Key: "sms_total", Name: "SMS total", Value: func(r normalize.Readings) normalize.Quantity { return r.SMS.Total }},
	{Key: "sms_available", Name: "SMS available", Value: func(r normalize.Readings) normalize.Quantity { return r.SMS.Available }},
	{Key: "data_used", Name: "Data used", Value: func(r normalize.Readings) normalize.Quantity { return r.Data.Used }},
	{Key: "data_total", Name: "Data total", Value: func(r normalize.Readings) normalize.Quantity { return r.Data.Total }},
	{Key: "data_available", Name: "Data available", Value: func(r normalize.Readings) normalize.Quantity { return r.Data.Available }},
	{Key: "data_exceed", Name: "Data exceeded", Value: func(r normalize.Readings) normalize.Quantity { return r.Data.Exceeded }},
	{Key: "data_usage_ratio", Name: "Data usage ratio", Value: func(r normalize.Readings) normalize.Quantity { return r.Data.UsedRatio }},
	{Key: "current_balance", Name: "Current balance", Value: func(r normalize.Readings) normalize.Quantity { return r.Balance.Current }},
	{Key: "total_owed", Name: "Total owed", Value: func(r normalize.Readings) normalize.Quantity { return r.Balance.TotalOwed }},
	{Key: "credit_value", Name: "Credit", Value: func(r normalize.Readings) normalize.Quantity { return r.Balance.Credit }},
	{Key: "real_fee_new", Name: "Realtime fee", Value: func(r normalize.Readings) normalize.Quantity { return r.Balance.RealtimeFee }},
	{Key: "can_user_value", Name: "Grant available", Value: func(r normalize.Readings) normalize.Quantity { return r.Balance.GrantAvailable }},
}

// Specs returns the primary readings, followed by the individual ones when
// individual is true.
func Specs(individual bool) []Spec {
	specs := make([]Spec, 0, len(primarySpecs)+len(individualSpecs))
	specs = append(specs, primarySpecs...)
	if individual {
		specs = append(specs, individualSpecs...)
	}
	return specs
}

// Lookup finds a spec by key across all readings.
func Lookup(key string) (Spec, bool) {
	for _, s := range Specs(true) {
		if s.Key == key {
			return s, true
		}
	}
	return Spec{}, false
}
