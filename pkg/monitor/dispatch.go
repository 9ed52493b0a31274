package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/coordinator"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
)

// evaluateTimeout bounds rule evaluation, including notifier calls, per state.
const evaluateTimeout = 30 * time.Second

type evalJob struct {
	ctx   context.Context
	state coordinator.State
}

// dispatcher evaluates rules on its own goroutine so coordinator listeners never
// block on storage or notifiers. Pending states are coalesced per account: only
// the newest one is evaluated, which is enough because rule state is persisted.
type dispatcher struct {
	evaluator *RuleEvaluator
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	pending map[string]evalJob
}

func newDispatcher(evaluator *RuleEvaluator, logger *slog.Logger) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		evaluator: evaluator,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		pending:   make(map[string]evalJob),
	}
	go d.run()
	return d
}

// submit queues st for account without blocking. ctx scopes the evaluation to
// the account's lifetime.
func (d *dispatcher) submit(ctx context.Context, account string, st coordinator.State) {
	d.mu.Lock()
	if prev, ok := d.pending[account]; !ok || st.Cycle >= prev.state.Cycle {
		d.pending[account] = evalJob{ctx: ctx, state: st}
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// drop discards a pending state of a removed account.
func (d *dispatcher) drop(account string) {
	d.mu.Lock()
	delete(d.pending, account)
	d.mu.Unlock()
}

// stop cancels running evaluations and waits for the worker to exit.
func (d *dispatcher) stop() {
	d.once.Do(d.cancel)
	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.wake:
		}

		d.mu.Lock()
		jobs := d.pending
		d.pending = make(map[string]evalJob)
		d.mu.Unlock()

		accounts := make([]string, 0, len(jobs))
		for account := range jobs {
			accounts = append(accounts, account)
		}
		sort.Strings(accounts)

		for _, account := range accounts {
			d.evaluate(account, jobs[account])
		}
	}
}

func (d *dispatcher) evaluate(account string, job evalJob) {
	if job.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(job.ctx, evaluateTimeout)
	defer cancel()

	if _, err := d.evaluator.Evaluate(ctx, account, normalize.Normalize(job.state.Snapshot)); err != nil {
		d.logger.Error("evaluate rules", "account", account, "error", err)
	}
}
