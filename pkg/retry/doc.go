/*
Package retry executes operations with exponential backoff.

Delays follow min(max_delay, initial_delay * 2^attempt) with ±25% jitter by
default. Terminal errors (authentication failures, malformed requests)
abort immediately without consuming retries; transient errors (timeouts,
connection resets, pool exhaustion, 5xx responses) consume an attempt.
Classification is driven by errors implementing Temporary() bool, with
unclassified errors treated as terminal.
*/
package retry
