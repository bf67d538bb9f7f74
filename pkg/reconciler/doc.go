/*
Package reconciler detects and corrects drift between the host registry
and DNS.

Each pass lists registered hosts, reads the managed zone, and compares the
two. Three divergence kinds are corrected: records missing for registered
hosts, records with a stale IP, and orphaned records for hosts that no
longer exist. Corrections flow through the same adapter path as live
lifecycle events, so they respect the rollout flag, circuit breaker, and
audit trail like any other operation.

Passes are idempotent and keep no partial-pass state; an interrupted run
simply re-diffs from scratch on the next tick.
*/
package reconciler
