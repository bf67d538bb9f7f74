/*
Package audit retains sync operations and backend decisions, and fans out
per-operation outcome events.

The BoltDB-backed Store keeps every SyncOperation through its lifecycle:
committed and superseded operations are pruned after a retention window,
failed operations stay visible for the operator and for reconciliation.
Backend decisions (flag result, breaker state, chosen backend, reason) are
recorded per operation so rollout behavior is fully traceable, including
hosts flapping between real and mock.

The Broker is an in-memory pub/sub bus delivering OperationResult events
to any interested consumer without blocking the sync pipeline.
*/
package audit
