package sensor_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/coordinator"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	state     coordinator.State
	listeners []func(coordinator.State)
}

func (f *fakeSource) State() coordinator.State { return f.state }

func (f *fakeSource) Subscribe(fn func(coordinator.State)) func() {
	f.listeners = append(f.listeners, fn)
	idx := len(f.listeners) - 1
	return func() { f.listeners[idx] = nil }
}

func (f *fakeSource) publish(st coordinator.State) {
	f.state = st
	for _, fn := range f.listeners {
		if fn != nil {
			fn(st)
		}
	}
}

func testSnapshot() *model.Snapshot {
	usage := []model.UsageRecord{
		{SourceType: "1", SpecialType: "1", UsedValue: "35分钟", Upper: "100分钟", CanUseValue: "65分钟", UsedRatio: "35"},
		{SourceType: "3", SpecialType: "0", UsedValue: "46.98MB", Upper: "1024.00MB", CanUseValue: "977.02MB", UsedRatio: "0.0459"},
	}
	balance := model.BalanceRecord{CanUseFee: "10.00", CurrentBalance: "12.50", TotalOwed: "oops"}
	return model.NewSnapshot("c1", "home", usage, balance, time.Now())
}

func TestSpecs(t *testing.T) {
	primary := sensor.Specs(false)
	all := sensor.Specs(true)

	require.Len(t, primary, 4)
	assert.Len(t, all, 19)

	keys := map[string]bool{}
	for _, s := range all {
		assert.False(t, keys[s.Key], "duplicate key %s", s.Key)
		keys[s.Key] = true
		assert.NotNil(t, s.Value)
	}

	spec, ok := sensor.Lookup("data_usage_ratio")
	require.True(t, ok)
	assert.False(t, spec.Primary)

	_, ok = sensor.Lookup("nope")
	assert.False(t, ok)
}

func TestSet_AttachAppliesCurrentState(t *testing.T) {
	src := &fakeSource{state: coordinator.State{Snapshot: testSnapshot(), LastSuccess: true, Cycle: 1}}
	set := sensor.NewSet("home", sensor.Specs(true))
	set.Attach(src)

	data, ok := set.Get("data")
	require.True(t, ok)
	assert.True(t, data.Available)
	assert.Equal(t, normalize.Quantity{Magnitude: 46.98, Unit: normalize.UnitMB, Present: true}, data.Value)
	assert.Equal(t, "1.00 GB", data.Attributes["total"])
	assert.Equal(t, "4.59%", data.Attributes["used_ratio"])

	owed, ok := set.Get("total_owed")
	require.True(t, ok)
	assert.False(t, owed.Value.Present)

	balance, _ := set.Get("balance")
	assert.Equal(t, 10.0, balance.Value.Magnitude)
	assert.Equal(t, "12.50 CNY", balance.Attributes["current_balance"])

	sms, _ := set.Get("sms")
	assert.False(t, sms.Value.Present)
	assert.True(t, sms.Available)
}

func TestSet_FailureKeepsValuesMarkedUnavailable(t *testing.T) {
	snap := testSnapshot()
	src := &fakeSource{}
	set := sensor.NewSet("home", sensor.Specs(false))
	set.Attach(src)

	voice, _ := set.Get("voice")
	assert.False(t, voice.Available)
	assert.False(t, voice.Value.Present)

	src.publish(coordinator.State{Snapshot: snap, LastSuccess: true, Cycle: 1})
	src.publish(coordinator.State{Snapshot: snap, LastSuccess: false, LastError: assert.AnError, Cycle: 2})

	voice, _ = set.Get("voice")
	assert.False(t, voice.Available)
	assert.Equal(t, 35.0, voice.Value.Magnitude)
	assert.Equal(t, 35.0, set.Readings().Voice.Used.Magnitude)
}

func TestSet_IgnoresOlderStates(t *testing.T) {
	src := &fakeSource{}
	set := sensor.NewSet("home", sensor.Specs(false))
	set.Attach(src)

	src.publish(coordinator.State{Snapshot: testSnapshot(), LastSuccess: true, Cycle: 3})
	set.Update(coordinator.State{LastSuccess: false, Cycle: 2})

	data, _ := set.Get("data")
	assert.True(t, data.Available)
	assert.True(t, data.Value.Present)
}

func TestSet_Detach(t *testing.T) {
	src := &fakeSource{}
	set := sensor.NewSet("home", sensor.Specs(false))
	set.Attach(src)
	set.Detach()

	src.publish(coordinator.State{Snapshot: testSnapshot(), LastSuccess: true, Cycle: 1})

	data, _ := set.Get("data")
	assert.False(t, data.Available)
	assert.Len(t, set.Sensors(), 4)
}

func TestReading_AttributesAreCopied(t *testing.T) {
	src := &fakeSource{state: coordinator.State{Snapshot: testSnapshot(), LastSuccess: true, Cycle: 1}}
	set := sensor.NewSet("home", sensor.Specs(false))
	set.Attach(src)

	r, _ := set.Get("data")
	r.Attributes["total"] = "changed"

	again, _ := set.Get("data")
	assert.Equal(t, "1.00 GB", again.Attributes["total"])
}
