/*
Package metrics provides Prometheus metrics and health reporting for dnssync.

Collectors cover the whole sync pipeline: operation counts and durations by
backend, degradation events, rollout decisions, circuit breaker state and
transitions, connection pool occupancy, raw control-plane API requests, and
reconciliation cycles.

Metrics are registered globally in init() and exposed via Handler(). The
component health registry backs /healthz; a breaker-open backend reports
"degraded" rather than "unhealthy" because registrations keep succeeding
through the mock fallback.

# Usage

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.SyncOperationDuration, "upsert", "real")

	metrics.SyncOperationsTotal.WithLabelValues("upsert", "real", "success").Inc()
*/
package metrics
