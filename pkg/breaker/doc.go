/*
Package breaker implements a per-dependency circuit breaker.

The breaker gates calls to an unhealthy backend so the sync pipeline stops
hammering a failing DNS control plane and gives it room to recover.

# States

	closed ──(failures >= threshold)──> open
	open ──(cooldown elapsed)──> half-open
	half-open ──(trial success)──> closed
	half-open ──(trial failure)──> open

While half-open exactly one trial call is admitted; concurrent callers are
rejected as if the breaker were still open. Transitions are atomic under
concurrent callers and every transition is logged with old state, new
state, and reason.

Breakers are constructed explicitly and passed into the adapter, with no
ambient singleton, so tests can run isolated instances with fake clocks. State is never persisted; a process restart starts closed.
*/
package breaker
