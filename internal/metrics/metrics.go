// Package metrics wraps Prometheus collectors for the payout engine, deposit
// lifecycle, referral cascade and live feed. A nil *Collector is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector provides engine metrics collection.
type Collector struct {
	registry *prometheus.Registry

	// Ledger metrics
	transactionsRecorded *prometheus.CounterVec

	// Deposit metrics
	depositOperations *prometheus.CounterVec

	// Payout metrics
	sweepRuns         *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
	depositsProcessed *prometheus.CounterVec
	profitCredited    prometheus.Counter

	// Referral metrics
	commissionsPaid *prometheus.CounterVec

	// Feed metrics
	feedEvents *prometheus.CounterVec
}

// NewCollector creates a new metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "invest"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.transactionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Total number of ledger transactions recorded",
		},
		[]string{"type", "status"},
	)

	c.depositOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deposit",
			Name:      "operations_total",
			Help:      "Total number of deposit lifecycle operations",
		},
		[]string{"operation", "result"},
	)

	c.sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "sweeps_total",
			Help:      "Total number of payout sweeps",
		},
		[]string{"result"},
	)

	c.sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by a payout sweep",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	c.depositsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "deposits_total",
			Help:      "Deposits handled by payout sweeps (path=compound|accumulate|failed)",
		},
		[]string{"path"},
	)

	c.profitCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "profit_credited_total",
			Help:      "Sum of profit credited by payout sweeps",
		},
	)

	c.commissionsPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "commission_total",
			Help:      "Sum of referral commissions paid per level",
		},
		[]string{"level"},
	)

	c.feedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Live feed events by outcome (queued, dropped, fanout_error)",
		},
		[]string{"result"},
	)

	c.registry.MustRegister(
		c.transactionsRecorded,
		c.depositOperations,
		c.sweepRuns,
		c.sweepDuration,
		c.depositsProcessed,
		c.profitCredited,
		c.commissionsPaid,
		c.feedEvents,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordTransaction(txType, status string) {
	if c == nil {
		return
	}
	c.transactionsRecorded.WithLabelValues(txType, status).Inc()
}

func (c *Collector) RecordDepositOperation(operation string, err error) {
	if c == nil {
		return
	}
	c.depositOperations.WithLabelValues(operation, result(err)).Inc()
}

// RecordSweep records one sweep run and its duration.
func (c *Collector) RecordSweep(duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.sweepRuns.WithLabelValues(result(err)).Inc()
	c.sweepDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordPayout(path string, profit decimal.Decimal) {
	if c == nil {
		return
	}
	c.depositsProcessed.WithLabelValues(path).Inc()
	if profit.IsPositive() {
		c.profitCredited.Add(profit.InexactFloat64())
	}
}

func (c *Collector) RecordCommission(level string, amount decimal.Decimal) {
	if c == nil {
		return
	}
	c.commissionsPaid.WithLabelValues(level).Add(amount.InexactFloat64())
}

func (c *Collector) RecordFeedEvent(outcome string) {
	if c == nil {
		return
	}
	c.feedEvents.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
