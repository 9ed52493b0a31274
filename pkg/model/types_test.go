package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_Unmarshal(t *testing.T) {
	var rec model.UsageRecord
	err := json.Unmarshal([]byte(`{"SOURCE_TYPE": 3, "SPECIAL_TYPE": "0", "X_USED_VALUE": "46.98MB", "USED_RATIO": null}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, "3", rec.SourceType.String())
	assert.Equal(t, "0", rec.SpecialType.String())
	assert.Equal(t, "46.98MB", rec.UsedValue.String())
	assert.True(t, rec.UsedRatio.Empty())
	assert.True(t, rec.Upper.Empty())
}

func TestText_UnmarshalNonScalarIsEmpty(t *testing.T) {
	var rec model.BalanceRecord
	err := json.Unmarshal([]byte(`{"CANUSE_FEE_CUST": "12.50", "CREDIT_VALUE": false, "ALLBOWE_FEE_CUST": {"x": 1}, "FEE_AVAILABLE": [1, 2]}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, "12.50", rec.CanUseFee.String())
	assert.True(t, rec.CreditValue.Empty())
	assert.True(t, rec.TotalOwed.Empty())
	assert.True(t, rec.FeeAvailable.Empty())
}

func TestUsageRecord_Matches(t *testing.T) {
	rec := model.UsageRecord{SourceType: " 1", SpecialType: "1 "}
	assert.True(t, rec.Matches("1", "1"))
	assert.False(t, rec.Matches("1", "0"))
	assert.False(t, rec.Matches("2", "1"))
}

func TestSnapshot_Immutable(t *testing.T) {
	usage := []model.UsageRecord{{SourceType: "1", SpecialType: "1", UsedValue: "10分钟"}}
	snap := model.NewSnapshot("cycle-1", "home", usage, model.BalanceRecord{CanUseFee: "12.50"}, time.Now())

	usage[0].UsedValue = "mutated"
	got := snap.Usage()
	assert.Equal(t, model.Text("10分钟"), got[0].UsedValue)

	got[0].UsedValue = "mutated again"
	rec, ok := snap.FindUsage("1", "1")
	require.True(t, ok)
	assert.Equal(t, model.Text("10分钟"), rec.UsedValue)

	_, ok = snap.FindUsage("3", "0")
	assert.False(t, ok)
	assert.Equal(t, "cycle-1", snap.ID())
	assert.Equal(t, "home", snap.Account())
}

func TestComparison_Breached(t *testing.T) {
	assert.True(t, model.CompareAbove.Breached(90, 80))
	assert.False(t, model.CompareAbove.Breached(80, 80))
	assert.True(t, model.CompareBelow.Breached(5, 10))
	assert.False(t, model.CompareBelow.Breached(10, 10))
	assert.False(t, model.Comparison("sideways").Breached(1, 0))
	assert.False(t, model.Comparison("sideways").Valid())
}
