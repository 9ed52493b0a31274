// Package metrics exports refresh-cycle metrics to Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config sets the constant labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// RefreshMetrics records refresh cycles. It satisfies coordinator.Observer.
type RefreshMetrics struct {
	cycles        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
	staleDiscards *prometheus.CounterVec
	now           func() time.Time
}

// New creates the refresh metrics and registers them on registerer. A nil
// registerer selects the default one.
func New(registerer prometheus.Registerer, cfg Config) *RefreshMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ubg"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &RefreshMetrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "ubg_refresh_cycles_total",
				Help:        "Refresh cycles published, by account and result.",
				ConstLabels: constLabels,
			},
			[]string{"account", "result"}, // success | failure
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "ubg_refresh_duration_seconds",
				Help:        "Duration of published refresh cycles.",
				Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
				ConstLabels: constLabels,
			},
			[]string{"account"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "ubg_refresh_last_success_timestamp",
				Help:        "Unix time of the last successful refresh.",
				ConstLabels: constLabels,
			},
			[]string{"account"},
		),
		staleDiscards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "ubg_refresh_stale_discards_total",
				Help:        "Cycles whose result was discarded because a newer cycle had already published.",
				ConstLabels: constLabels,
			},
			[]string{"account"},
		),
		now: time.Now,
	}

	registerer.MustRegister(m.cycles, m.duration, m.lastSuccess, m.staleDiscards)
	return m
}

// ObserveCycle records a published cycle.
func (m *RefreshMetrics) ObserveCycle(account string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.cycles.WithLabelValues(account, result).Inc()
	m.duration.WithLabelValues(account).Observe(duration.Seconds())
	if err == nil {
		m.lastSuccess.WithLabelValues(account).Set(float64(m.now().Unix()))
	}
}

// ObserveDiscard records a stale cycle.
func (m *RefreshMetrics) ObserveDiscard(account string) {
	m.staleDiscards.WithLabelValues(account).Inc()
}

// Forget drops the series of a removed account.
func (m *RefreshMetrics) Forget(account string) {
	for _, result := range []string{"success", "failure"} {
		m.cycles.DeleteLabelValues(account, result)
	}
	m.duration.DeleteLabelValues(account)
	m.lastSuccess.DeleteLabelValues(account)
	m.staleDiscards.DeleteLabelValues(account)
}
