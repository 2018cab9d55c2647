package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	EmailsIngested   *prometheus.CounterVec
	RecordsProcessed *prometheus.CounterVec
	CyclesCompleted  prometheus.Counter
	CycleDuration    prometheus.Histogram
	QuoteDuration    prometheus.Histogram
	ErrorsCount      *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them with reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EmailsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_ingested_total",
			Help:      "Inbound booking emails by extraction outcome",
		}, []string{"outcome"}),
		RecordsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_records_total",
			Help:      "Tracked bookings evaluated by reconciliation, by outcome",
		}, []string{"outcome"}),
		CyclesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_cycles_total",
			Help:      "The total number of completed reconciliation cycles",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_cycle_duration_seconds",
			Help:      "Time taken by one reconciliation cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		QuoteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fare_quote_duration_seconds",
			Help:      "Latency of fare quote provider requests",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
