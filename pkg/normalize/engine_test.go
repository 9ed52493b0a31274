package normalize_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
	"github.com/stretchr/testify/assert"
)

func sampleUsage() []model.UsageRecord {
	return []model.UsageRecord{
		{
			SourceType: "1", SpecialType: "1",
			UsedValue: "35分钟", Upper: "100分钟", ExceedValue: "0分钟", CanUseValue: "65分钟",
			UsedRatio: "35.00",
		},
		{
			SourceType: "2", SpecialType: "1",
			UsedValue: "3条", Upper: "100条", ExceedValue: "0条", CanUseValue: "97条",
			UsedRatio: "3",
		},
		{
			SourceType: "3", SpecialType: "0",
			UsedValue: "46.98MB", Upper: "1024.00MB", CanUseValue: "977.02MB",
			UsedRatio: "0.0459",
		},
	}
}

func TestNormalize_DataRecord(t *testing.T) {
	snap := model.NewSnapshot("c1", "home", sampleUsage(), model.BalanceRecord{}, time.Now())
	r := normalize.Normalize(snap)

	assert.True(t, r.Data.Present)
	assert.Equal(t, normalize.Quantity{Magnitude: 46.98, Unit: normalize.UnitMB, Present: true}, r.Data.Used)
	assert.Equal(t, normalize.Quantity{Magnitude: 1.0, Unit: normalize.UnitGB, Present: true}, r.Data.Total)
	assert.Equal(t, normalize.Quantity{Magnitude: 977.02, Unit: normalize.UnitMB, Present: true}, r.Data.Available)
	assert.InDelta(t, 4.59, r.Data.UsedRatio.Magnitude, 0.001)
	assert.Equal(t, normalize.UnitPercent, r.Data.UsedRatio.Unit)
	// missing X_EXCEED_VALUE follows the provider's zero default
	assert.Equal(t, normalize.Quantity{Magnitude: 0, Unit: normalize.UnitMB, Present: true}, r.Data.Exceeded)
}

func TestNormalize_VoiceAndSMS(t *testing.T) {
	snap := model.NewSnapshot("c1", "home", sampleUsage(), model.BalanceRecord{}, time.Now())
	r := normalize.Normalize(snap)

	assert.Equal(t, 35.0, r.Voice.Used.Magnitude)
	assert.Equal(t, normalize.UnitMinutes, r.Voice.Total.Unit)
	assert.Equal(t, 100.0, r.Voice.Total.Magnitude)
	assert.Equal(t, 65.0, r.Voice.Available.Magnitude)
	assert.Equal(t, 35.0, r.Voice.UsedRatio.Magnitude)

	assert.Equal(t, 97.0, r.SMS.Available.Magnitude)
	assert.Equal(t, normalize.UnitCount, r.SMS.Available.Unit)
	assert.Equal(t, 3.0, r.SMS.UsedRatio.Magnitude)
}

func TestNormalize_MissingCategoryIsolated(t *testing.T) {
	usage := sampleUsage()[1:]
	snap := model.NewSnapshot("c1", "home", usage, model.BalanceRecord{CurrentBalance: "12.50"}, time.Now())
	r := normalize.Normalize(snap)

	assert.False(t, r.Voice.Present)
	for _, q := range []normalize.Quantity{r.Voice.Used, r.Voice.Total, r.Voice.Exceeded, r.Voice.Available, r.Voice.UsedRatio} {
		assert.False(t, q.Present)
	}
	assert.Equal(t, normalize.UnitMinutes, r.Voice.Used.Unit)

	assert.True(t, r.SMS.Present)
	assert.True(t, r.Data.Present)
	assert.True(t, r.Balance.Current.Present)
}

func TestNormalize_FirstMatchWins(t *testing.T) {
	usage := append(sampleUsage(), model.UsageRecord{
		SourceType: "3", SpecialType: "0", UsedValue: "999.00MB", UsedRatio: "0.9",
	})
	r := normalize.Normalize(model.NewSnapshot("c1", "home", usage, model.BalanceRecord{}, time.Now()))
	assert.Equal(t, 46.98, r.Data.Used.Magnitude)
}

func TestNormalize_SentinelRatio(t *testing.T) {
	usage := []model.UsageRecord{{SourceType: "3", SpecialType: "0", UsedValue: "10MB", UsedRatio: "-1"}}
	r := normalize.Normalize(model.NewSnapshot("c1", "home", usage, model.BalanceRecord{}, time.Now()))

	assert.True(t, r.Data.Present)
	assert.False(t, r.Data.UsedRatio.Present)
	assert.Equal(t, 10.0, r.Data.Used.Magnitude)
}

func TestNormalize_Balance(t *testing.T) {
	balance := model.BalanceRecord{
		CanUseFee:      "10.00",
		CurrentBalance: "12.50",
		TotalOwed:      "not-a-number",
		CreditValue:    "0",
	}
	r := normalize.Normalize(model.NewSnapshot("c1", "home", nil, balance, time.Now()))

	assert.False(t, r.Balance.TotalOwed.Present)
	assert.True(t, r.Balance.Current.Present)
	assert.Equal(t, 12.5, r.Balance.Current.Magnitude)
	assert.Equal(t, 10.0, r.Balance.CanUse.Magnitude)
	assert.True(t, r.Balance.Credit.Present)
	assert.False(t, r.Balance.RealtimeFee.Present)
}

func TestNormalize_NilSnapshot(t *testing.T) {
	r := normalize.Normalize(nil)

	assert.Empty(t, r.Account)
	for _, c := range normalize.Categories {
		assert.False(t, r.Usage(c).Present)
		assert.False(t, r.Usage(c).Used.Present)
	}
	assert.False(t, r.Balance.CanUse.Present)
}

func TestNormalize_CarriesSnapshotIdentity(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	r := normalize.Normalize(model.NewSnapshot("c42", "office", nil, model.BalanceRecord{}, at))

	assert.Equal(t, "office", r.Account)
	assert.Equal(t, "c42", r.SnapshotID)
	assert.Equal(t, at, r.FetchedAt)
}
