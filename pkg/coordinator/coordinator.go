// Package coordinator schedules and deduplicates refresh cycles for one account and
// owns the account's RefreshState.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultInterval = 15 * time.Minute
	DefaultTimeout  = 10 * time.Second
	MinInterval     = time.Minute
	MaxInterval     = 60 * time.Minute
)

// Fetcher performs the two sub-fetches of a cycle.
type Fetcher interface {
	FetchUsage(ctx context.Context, openid string) ([]model.UsageRecord, error)
	FetchBalance(ctx context.Context, openid string) (model.BalanceRecord, error)
}

// Observer is told about every published or discarded cycle.
type Observer interface {
	ObserveCycle(account string, duration time.Duration, err error)
	ObserveDiscard(account string)
}

// Config identifies the account and its schedule.
type Config struct {
	Account  string
	OpenID   string
	Interval time.Duration
	Timeout  time.Duration
}

// State is the published result of the latest completed cycle. Snapshot is the
// last successful snapshot and survives failed cycles.
type State struct {
	Snapshot    *model.Snapshot
	LastSuccess bool
	LastError   error
	UpdatedAt   time.Time
	Cycle       uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for timestamps and the schedule.
func WithClock(clk Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithObserver registers a cycle observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

type listener struct {
	id uint64
	fn func(State)
}

// Coordinator runs refresh cycles for one account. Concurrent Refresh calls share
// a single in-flight cycle, and results are published in cycle start order.
type Coordinator struct {
	cfg      Config
	fetcher  Fetcher
	clock    Clock
	observer Observer
	logger   *slog.Logger

	group singleflight.Group
	state atomic.Pointer[State]
	seq   atomic.Uint64

	// publishMu serializes state replacement and listener notification.
	publishMu sync.Mutex
	published uint64

	listenersMu  sync.RWMutex
	listeners    []listener
	nextListener uint64

	mu      sync.Mutex
	started bool
	stopped atomic.Bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a coordinator. Zero Interval and Timeout select the defaults.
func New(cfg Config, fetcher Fetcher, opts ...Option) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:     cfg,
		fetcher: fetcher,
		clock:   SystemClock{},
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("account", cfg.Account)
	c.state.Store(&State{})
	return c
}

// Account returns the configured account name.
func (c *Coordinator) Account() string { return c.cfg.Account }

// Interval returns the schedule interval.
func (c *Coordinator) Interval() time.Duration { return c.cfg.Interval }

// State returns the latest published state.
func (c *Coordinator) State() State { return *c.state.Load() }

// Snapshot returns the last successful snapshot, or nil before the first success.
func (c *Coordinator) Snapshot() *model.Snapshot { return c.state.Load().Snapshot }

// LastSuccess reports whether the latest completed cycle succeeded.
func (c *Coordinator) LastSuccess() bool { return c.state.Load().LastSuccess }

// LastError returns the error of the latest completed cycle, if it failed.
func (c *Coordinator) LastError() error { return c.state.Load().LastError }

// Subscribe registers fn to be called with every published state, in publication
// order. fn runs on the publishing goroutine while the cycle is still completing,
// so it must return quickly and must not call Refresh, ForceRefresh, or Stop.
// Slow work belongs on another goroutine.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.listenersMu.Lock()
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			defer c.listenersMu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Refresh runs a cycle, or joins the one in flight, and returns the resulting
// snapshot. The cycle itself is bounded by the configured timeout and is only
// cancelled by Stop; ctx only bounds how long this caller waits.
func (c *Coordinator) Refresh(ctx context.Context) (*model.Snapshot, error) {
	return c.refresh(ctx, false)
}

// ForceRefresh starts a new cycle even if one is in flight. The older cycle keeps
// running, but its result is discarded if it completes after the new one.
func (c *Coordinator) ForceRefresh(ctx context.Context) (*model.Snapshot, error) {
	return c.refresh(ctx, true)
}

func (c *Coordinator) refresh(ctx context.Context, force bool) (*model.Snapshot, error) {
	if c.stopped.Load() {
		return nil, ErrStopped
	}
	if force {
		c.group.Forget(c.cfg.Account)
	}

	ch := c.group.DoChan(c.cfg.Account, func() (any, error) {
		return c.runCycle()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start runs the first cycle synchronously and then starts the schedule. The
// schedule runs even when the first cycle fails; its error is returned so the
// caller can report it.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped.Load() {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("coordinator %s already started", c.cfg.Account)
	}
	c.started = true
	c.wg.Add(1)
	c.mu.Unlock()

	_, err := c.Refresh(ctx)
	go c.loop()
	return err
}

// Stop cancels any in-flight cycle and the schedule, and waits for both to exit.
// Nothing is published after Stop returns.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped.Store(true)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) loop() {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C():
			// Failures are recorded in the state and logged by the cycle.
			_, _ = c.Refresh(c.ctx)
		}
	}
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeStale
	outcomeStopped
)

func (c *Coordinator) beginCycle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped.Load() {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *Coordinator) runCycle() (*model.Snapshot, error) {
	if !c.beginCycle() {
		return nil, ErrStopped
	}
	defer c.wg.Done()

	seq := c.seq.Add(1)
	start := c.clock.Now()
	log := c.logger.With("cycle", seq)

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Timeout)
	defer cancel()

	snap, err := c.fetch(ctx)
	duration := c.clock.Now().Sub(start)

	switch c.publish(seq, snap, err) {
	case outcomeStopped:
		log.Debug("cycle finished after stop, discarded")
		return nil, ErrStopped
	case outcomeStale:
		log.Info("stale cycle discarded")
		if c.observer != nil {
			c.observer.ObserveDiscard(c.cfg.Account)
		}
		// Report the newer cycle's result instead.
		cur := c.State()
		if !cur.LastSuccess {
			return nil, cur.LastError
		}
		return cur.Snapshot, nil
	}

	if c.observer != nil {
		c.observer.ObserveCycle(c.cfg.Account, duration, err)
	}
	if err != nil {
		log.Warn("refresh failed", "error", err, "duration", duration)
		return nil, err
	}
	log.Debug("refresh succeeded", "snapshot", snap.ID(), "duration", duration)
	return snap, nil
}

func (c *Coordinator) fetch(ctx context.Context) (*model.Snapshot, error) {
	usage, err := c.fetcher.FetchUsage(ctx, c.cfg.OpenID)
	if err != nil {
		return nil, &FetchError{Account: c.cfg.Account, Stage: StageUsage, Err: err}
	}

	balance, err := c.fetcher.FetchBalance(ctx, c.cfg.OpenID)
	if err != nil {
		return nil, &FetchError{Account: c.cfg.Account, Stage: StageBalance, Err: err}
	}

	return model.NewSnapshot(uuid.NewString(), c.cfg.Account, usage, balance, c.clock.Now()), nil
}

func (c *Coordinator) publish(seq uint64, snap *model.Snapshot, err error) outcome {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if c.stopped.Load() {
		return outcomeStopped
	}
	if seq < c.published {
		return outcomeStale
	}
	c.published = seq

	prev := c.state.Load()
	next := &State{
		Snapshot:    prev.Snapshot,
		LastSuccess: err == nil,
		LastError:   err,
		UpdatedAt:   c.clock.Now(),
		Cycle:       seq,
	}
	if err == nil {
		next.Snapshot = snap
	}
	c.state.Store(next)

	c.listenersMu.RLock()
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l.fn(*next)
	}
	return outcomePublished
}

// IsFetchError reports whether err failed a cycle at the provider.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
