// Package monitor manages the lifecycle of monitored accounts and evaluates alert
// rules against their readings.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/coordinator"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/sensor"
)

// ErrAccountNotFound is returned for an unknown account name.
var ErrAccountNotFound = errors.New("account not found")

// AccountConfig describes one monitored account.
type AccountConfig struct {
	Name              string
	OpenID            string
	Interval          time.Duration
	Timeout           time.Duration
	IndividualSensors bool
}

// Status summarizes an account's refresh state.
type Status struct {
	Account    string    `json:"account" yaml:"account"`
	Available  bool      `json:"available" yaml:"available"`
	LastError  string    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	SnapshotID string    `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	FetchedAt  time.Time `json:"fetched_at" yaml:"fetched_at"`
	Cycle      uint64    `json:"cycle" yaml:"cycle"`
	Interval   string    `json:"interval" yaml:"interval"`
}

// Account is a monitored account: its coordinator and its sensors.
type Account struct {
	cfg         AccountConfig
	coord       *coordinator.Coordinator
	sensors     *sensor.Set
	unsubscribe func()
	cancel      context.CancelFunc
}

// Name returns the account name.
func (a *Account) Name() string { return a.cfg.Name }

// Sensors returns the account's sensor set.
func (a *Account) Sensors() *sensor.Set { return a.sensors }

// Readings returns the normalized view of the last successful snapshot.
func (a *Account) Readings() normalize.Readings { return a.sensors.Readings() }

// Refresh runs a cycle now, joining one already in flight.
func (a *Account) Refresh(ctx context.Context) (*model.Snapshot, error) {
	return a.coord.Refresh(ctx)
}

// ForceRefresh runs a new cycle even if one is in flight.
func (a *Account) ForceRefresh(ctx context.Context) (*model.Snapshot, error) {
	return a.coord.ForceRefresh(ctx)
}

// Status returns the account's current refresh status.
func (a *Account) Status() Status {
	st := a.coord.State()
	s := Status{
		Account:   a.cfg.Name,
		Available: st.LastSuccess,
		UpdatedAt: st.UpdatedAt,
		Cycle:     st.Cycle,
		Interval:  a.coord.Interval().String(),
	}
	if st.LastError != nil {
		s.LastError = st.LastError.Error()
	}
	if st.Snapshot != nil {
		s.SnapshotID = st.Snapshot.ID()
		s.FetchedAt = st.Snapshot.FetchedAt()
	}
	return s
}

// forgetter is implemented by observers that keep per-account series.
type forgetter interface {
	Forget(account string)
}

// Manager is the main entry point for running monitored accounts.
type Manager struct {
	fetcher   coordinator.Fetcher
	rules     *dispatcher
	observer  coordinator.Observer
	clock     coordinator.Clock
	logger    *slog.Logger

	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewManager creates an account manager. evaluator and observer may be nil.
// Rules are evaluated on a background worker that Close stops.
func NewManager(fetcher coordinator.Fetcher, evaluator *RuleEvaluator, observer coordinator.Observer, logger *slog.Logger) *Manager {
	m := &Manager{
		fetcher:  fetcher,
		observer: observer,
		clock:    coordinator.SystemClock{},
		logger:   logger,
		accounts: make(map[string]*Account),
	}
	if evaluator != nil {
		m.rules = newDispatcher(evaluator, logger)
	}
	return m
}

// SetClock replaces the clock handed to new accounts.
func (m *Manager) SetClock(clk coordinator.Clock) { m.clock = clk }

// AddAccount sets up an account: it runs the first refresh synchronously and
// starts the schedule. A failing first refresh is logged, not returned; the
// account keeps retrying on its schedule.
func (m *Manager) AddAccount(ctx context.Context, cfg AccountConfig) (*Account, error) {
	m.mu.Lock()
	if _, exists := m.accounts[cfg.Name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("account %q already added", cfg.Name)
	}

	opts := []coordinator.Option{
		coordinator.WithClock(m.clock),
		coordinator.WithLogger(m.logger),
	}
	if m.observer != nil {
		opts = append(opts, coordinator.WithObserver(m.observer))
	}
	coord := coordinator.New(coordinator.Config{
		Account:  cfg.Name,
		OpenID:   cfg.OpenID,
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
	}, m.fetcher, opts...)

	acct := &Account{
		cfg:         cfg,
		coord:       coord,
		sensors:     sensor.NewSet(cfg.Name, sensor.Specs(cfg.IndividualSensors)),
		unsubscribe: func() {},
		cancel:      func() {},
	}
	acct.sensors.Attach(coord)
	if m.rules != nil {
		var acctCtx context.Context
		acctCtx, acct.cancel = context.WithCancel(m.rules.ctx)
		acct.unsubscribe = coord.Subscribe(func(st coordinator.State) {
			if st.LastSuccess {
				m.rules.submit(acctCtx, cfg.Name, st)
			}
		})
	}
	m.accounts[cfg.Name] = acct
	m.mu.Unlock()

	if err := coord.Start(ctx); err != nil {
		if errors.Is(err, coordinator.ErrStopped) {
			return nil, fmt.Errorf("account %q removed during setup", cfg.Name)
		}
		m.logger.Warn("initial refresh failed", "account", cfg.Name, "error", err)
	}

	m.logger.Info("account added",
		"account", cfg.Name,
		"interval", coord.Interval(),
		"individual_sensors", cfg.IndividualSensors,
	)
	return acct, nil
}

// RemoveAccount tears an account down: in-flight cycles and rule evaluations are
// cancelled and the schedule stops.
func (m *Manager) RemoveAccount(name string) error {
	m.mu.Lock()
	acct, ok := m.accounts[name]
	if ok {
		delete(m.accounts, name)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrAccountNotFound)
	}

	acct.unsubscribe()
	acct.cancel()
	if m.rules != nil {
		m.rules.drop(name)
	}
	acct.sensors.Detach()
	acct.coord.Stop()
	if f, ok := m.observer.(forgetter); ok {
		f.Forget(name)
	}

	m.logger.Info("account removed", "account", name)
	return nil
}

// Account returns the named account.
func (m *Manager) Account(name string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrAccountNotFound)
	}
	return acct, nil
}

// Accounts returns every account ordered by name.
func (m *Manager) Accounts() []*Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Close tears down every account and stops rule evaluation.
func (m *Manager) Close() {
	for _, a := range m.Accounts() {
		_ = m.RemoveAccount(a.Name())
	}
	if m.rules != nil {
		m.rules.stop()
	}
}
