package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sync operation metrics
	SyncOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnssync_operations_total",
			Help: "Total number of sync operations by type, backend and outcome",
		},
		[]string{"operation", "backend", "outcome"},
	)

	SyncOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dnssync_operation_duration_seconds",
			Help:    "Sync operation duration in seconds by backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	SyncOperationsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dnssync_operations_pending",
			Help: "Number of sync operations currently pending or in flight",
		},
	)

	DegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnssync_degradations_total",
			Help: "Total number of fallbacks to the mock backend by reason",
		},
		[]string{"reason"},
	)

	// Rollout metrics
	RolloutDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnssync_rollout_decisions_total",
			Help: "Total number of feature flag evaluations by result",
		},
		[]string{"enabled"},
	)

	// Circuit breaker metrics
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dnssync_breaker_state",
			Help: "Circuit breaker state per dependency (1 for the active state)",
		},
		[]string{"dependency", "state"},
	)

	BreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnssync_breaker_transitions_total",
			Help: "Total number of circuit breaker transitions by dependency and target state",
		},
		[]string{"dependency", "to"},
	)

	// Connection pool metrics
	PoolConnectionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dnssync_pool_connections_in_use",
			Help: "Connections currently checked out of the pool",
		},
	)

	PoolConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dnssync_pool_connections_idle",
			Help: "Idle connections held by the pool",
		},
	)

	PoolAcquireTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dnssync_pool_acquire_timeouts_total",
			Help: "Total number of pool acquisitions that timed out",
		},
	)

	// DNS API client metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnssync_api_requests_total",
			Help: "Total number of control-plane API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dnssync_api_request_duration_seconds",
			Help:    "Control-plane API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Reconciler metrics
	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dnssync_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dnssync_reconciliation_duration_seconds",
			Help:    "Reconciliation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationDrift = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnssync_reconciliation_drift_total",
			Help: "Total number of divergences detected by kind",
		},
		[]string{"kind"},
	)
)

var breakerStates = []string{"closed", "open", "half-open"}

func init() {
	// Register all metrics
	prometheus.MustRegister(SyncOperationsTotal)
	prometheus.MustRegister(SyncOperationDuration)
	prometheus.MustRegister(SyncOperationsPending)
	prometheus.MustRegister(DegradationsTotal)
	prometheus.MustRegister(RolloutDecisionsTotal)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(BreakerTransitionsTotal)
	prometheus.MustRegister(PoolConnectionsInUse)
	prometheus.MustRegister(PoolConnectionsIdle)
	prometheus.MustRegister(PoolAcquireTimeouts)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationDrift)
}

// SetBreakerState marks the active breaker state for a dependency,
// clearing the other state labels
func SetBreakerState(dependency, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		BreakerState.WithLabelValues(dependency, s).Set(v)
	}
	BreakerTransitionsTotal.WithLabelValues(dependency, state).Inc()
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
