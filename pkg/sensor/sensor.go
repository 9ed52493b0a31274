// Package sensor publishes individually observable readings derived from an
// account's latest snapshot.
package sensor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/coordinator"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
)

// Reading is the published value of one sensor. A failing account keeps its last
// values with Available set to false.
type Reading struct {
	Key        string             `json:"key" yaml:"key"`
	Name       string             `json:"name" yaml:"name"`
	Account    string             `json:"account" yaml:"account"`
	Value      normalize.Quantity `json:"value" yaml:"value"`
	Attributes map[string]string  `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Available  bool               `json:"available" yaml:"available"`
	UpdatedAt  time.Time          `json:"updated_at" yaml:"updated_at"`
}

// Sensor holds the latest reading for one Spec.
type Sensor struct {
	spec    Spec
	account string
	reading atomic.Pointer[Reading]
}

// New creates a sensor with an absent, unavailable reading.
func New(spec Spec, account string) *Sensor {
	s := &Sensor{spec: spec, account: account}
	s.update(normalize.Normalize(nil), false, time.Time{})
	return s
}

// Key returns the spec key.
func (s *Sensor) Key() string { return s.spec.Key }

// Reading returns the latest reading.
func (s *Sensor) Reading() Reading {
	r := *s.reading.Load()
	if r.Attributes != nil {
		attrs := make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		r.Attributes = attrs
	}
	return r
}

func (s *Sensor) update(readings normalize.Readings, available bool, at time.Time) {
	r := &Reading{
		Key:       s.spec.Key,
		Name:      s.spec.Name,
		Account:   s.account,
		Value:     s.spec.Value(readings),
		Available: available,
		UpdatedAt: at,
	}
	if s.spec.Attributes != nil {
		r.Attributes = s.spec.Attributes(readings)
	}
	s.reading.Store(r)
}

// Source is the coordinator surface a Set listens to.
type Source interface {
	State() coordinator.State
	Subscribe(func(coordinator.State)) func()
}

// Set is the group of sensors of one account. It normalizes each published state
// once and updates every sensor from the result.
type Set struct {
	account  string
	sensors  []*Sensor
	readings atomic.Pointer[normalize.Readings]

	mu          sync.Mutex
	unsubscribe func()

	updateMu  sync.Mutex
	lastCycle uint64
}

// NewSet creates the sensors for the given specs.
func NewSet(account string, specs []Spec) *Set {
	set := &Set{account: account}
	for _, spec := range specs {
		set.sensors = append(set.sensors, New(spec, account))
	}
	empty := normalize.Normalize(nil)
	set.readings.Store(&empty)
	return set
}

// Attach applies the source's current state and subscribes to later ones.
func (s *Set) Attach(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = src.Subscribe(s.Update)
	s.Update(src.State())
}

// Detach stops listening to the source.
func (s *Set) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Update refreshes every sensor from st. States older than the last applied one
// are ignored.
func (s *Set) Update(st coordinator.State) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	if st.Cycle < s.lastCycle {
		return
	}
	s.lastCycle = st.Cycle

	readings := normalize.Normalize(st.Snapshot)
	s.readings.Store(&readings)
	for _, sensor := range s.sensors {
		sensor.update(readings, st.LastSuccess, st.UpdatedAt)
	}
}

// Readings returns the normalized view of the last successful snapshot.
func (s *Set) Readings() normalize.Readings { return *s.readings.Load() }

// Sensors returns the latest reading of every sensor in spec order.
func (s *Set) Sensors() []Reading {
	out := make([]Reading, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		out = append(out, sensor.Reading())
	}
	return out
}

// Get returns the reading of the sensor with the given key.
func (s *Set) Get(key string) (Reading, bool) {
	for _, sensor := range s.sensors {
		if sensor.Key() == key {
			return sensor.Reading(), true
		}
	}
	return Reading{}, false
}
