package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cardloop/card-courier/internal/domain"
)

// Metrics groups all Prometheus instruments used across the service.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	CardsDelivered   prometheus.Counter
	DeliveriesFailed *prometheus.CounterVec
	DeliveryLatency  prometheus.Histogram
	TicksTotal       prometheus.Counter
	TickErrors       prometheus.Counter
	DueCards         prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CardsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "card_deliveries_total",
			Help: "Total number of (card, channel) pairs delivered successfully.",
		}),

		DeliveriesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "card_delivery_failures_total",
			Help: "Total number of (card, channel) deliveries aborted, by failing step.",
		}, []string{"step"}),

		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "card_delivery_seconds",
			Help:    "Per-channel delivery latency from dequeue to posted message.",
			Buckets: prometheus.DefBuckets,
		}),

		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total number of scheduler ticks that ran the due-window query.",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_tick_errors_total",
			Help: "Total number of ticks skipped because the due-window query failed.",
		}),
		DueCards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_due_cards_total",
			Help: "Total number of due cards discovered across all ticks.",
		}),
	}

	reg.MustRegister(
		m.CardsDelivered,
		m.DeliveriesFailed,
		m.DeliveryLatency,
		m.TicksTotal,
		m.TickErrors,
		m.DueCards,
	)

	return m
}

// RegisterQueueDepth exposes the live delivery queue depth as a gauge
// sampled at scrape time, so no component has to push depth updates.
func RegisterQueueDepth(reg prometheus.Registerer, depth func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "delivery_queue_depth",
		Help: "Current number of delivery jobs waiting in the queue.",
	}, func() float64 {
		return float64(depth())
	}))
}

// WorkerHooks returns the metric callback functions expected by
// worker.Hooks. Centralises the prometheus observation calls so the
// delivery worker stays metrics-agnostic.
func (m *Metrics) WorkerHooks() (
	onDelivered func(latency time.Duration),
	onFailed func(step domain.DeliveryStep),
) {
	onDelivered = func(latency time.Duration) {
		m.CardsDelivered.Inc()
		m.DeliveryLatency.Observe(latency.Seconds())
	}
	onFailed = func(step domain.DeliveryStep) {
		m.DeliveriesFailed.WithLabelValues(string(step)).Inc()
	}
	return
}

// SchedulerHooks returns the tick callbacks used by worker.SchedulerWorker.
func (m *Metrics) SchedulerHooks() (
	onTick func(dueCards int),
	onTickError func(),
) {
	onTick = func(dueCards int) {
		m.TicksTotal.Inc()
		m.DueCards.Add(float64(dueCards))
	}
	onTickError = func() {
		m.TicksTotal.Inc()
		m.TickErrors.Inc()
	}
	return
}
