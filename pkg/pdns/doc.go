/*
Package pdns is the resilient client for the DNS control-plane HTTP API.

The client exposes four typed operations (ZoneExists, CreateZone,
UpsertRecord, DeleteRecord) plus GetZone for the reconciler's diff pass.
Record mutations use RRset REPLACE/DELETE changetypes so repeated calls
are idempotent and never produce duplicate RRsets.

# Call path

	operation
	  ↓ operation deadline applied
	retry policy (exponential backoff, transient errors only)
	  ↓ per attempt
	circuit breaker Allow() gate
	  ↓
	pool.Acquire (bounded, own timeout)
	  ↓
	HTTP call with per-call timeout and X-API-Key header
	  ↓
	release/discard connection, feed breaker, record metrics

Failures carry a Kind from {not_found, conflict, unauthorized,
unavailable, invalid}. Unavailable failures (timeouts, resets, pool
exhaustion, 5xx) are retryable and feed the breaker; everything else is
terminal. Authentication failures are never retried.
*/
package pdns
