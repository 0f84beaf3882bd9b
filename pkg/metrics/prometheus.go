package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	Calls            *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	QuorumReached    *prometheus.CounterVec
	PassengersPaid   prometheus.Counter
	PayoutVolume     prometheus.Counter
	Withdrawals      prometheus.Counter
	OpenRequests     prometheus.Gauge
	AdmittedAirlines prometheus.Gauge
	PublishFailures  prometheus.Counter
}

// NewMetrics creates new prometheus metrics registered on reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "The total number of ledger calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Time taken to execute ledger calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		QuorumReached: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_quorum_total",
			Help:      "The total number of status requests that reached quorum",
		}, []string{"status"}),
		PassengersPaid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passengers_credited_total",
			Help:      "The total number of passenger credits from delay payouts",
		}),
		PayoutVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_units_total",
			Help:      "The total payout credited to passengers, in units",
		}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "The total number of credit withdrawals",
		}),
		OpenRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_status_requests",
			Help:      "The number of oracle status requests still open and not yet resolved",
		}),
		AdmittedAirlines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "admitted_airlines",
			Help:      "The number of approved or funded airlines",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "The total number of notifications that failed to publish",
		}),
	}
}
