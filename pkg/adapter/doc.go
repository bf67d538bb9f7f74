/*
Package adapter routes host lifecycle events to DNS backends.

This is the public surface consumed by the registration/heartbeat
pipeline: OnHostCreated, OnHostUpdated, OnHostDeleted. Calls block at most
CallerWait and never return an error: a registration must not fail
because DNS sync failed. Operations that outlive the wait continue in the
background and their outcome lands in the audit store.

# Decision flow

	lifecycle event
	  ↓
	SyncOperation enqueued on the per-host queue
	(stale pending ops for the same record are superseded)
	  ↓
	rollout flag for the hostname
	  ├─ disabled → mock backend
	  └─ enabled
	       ├─ breaker open + fallback_to_mock → mock (degradation)
	       └─ real client (pooled, retried, breaker-gated)
	            └─ failure + fallback_to_mock → mock retry (degradation)
	  ↓
	operation committed/failed, decision recorded, event published

Per-host queues serialize writes for one hostname so REPLACE operations
cannot interleave; different hosts sync concurrently. Every decision
(flag result, breaker state, which backend executed, and why) is
persisted, so operators can trace exactly how any host's DNS was synced.
*/
package adapter
