/*
Package pool provides a bounded connection pool for the DNS control plane.

The pool holds between MinSize and MaxSize reusable sessions, each backed
by its own http.Client and Transport. Acquire blocks up to the configured
timeout and then fails with ErrExhausted, which is transient under the
retry policy but bounded, so load cannot queue indefinitely.

A background reaper closes connections idle past IdleTimeout and retires
connections older than RecycleAge even when healthy, bounding staleness
against upstream DNS or load-balancer changes. Recycle() retires the whole
set at once.
*/
package pool
