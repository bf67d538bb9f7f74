/*
Package log provides structured logging for dnssync using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

Every consequential decision in the sync pipeline is logged through this
package: circuit breaker transitions, backend routing decisions (real vs
mock), degradation events, and reconciliation drift. Operators answering
"was this host's DNS synced via PowerDNS or mock, and why" start here.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("adapter")
	logger.Info().
		Str("hostname", "web-01").
		Str("backend", "mock").
		Str("reason", "breaker_open").
		Msg("degraded to mock backend")

Console output (JSONOutput: false) is intended for interactive use of the
CLI; production deployments should log JSON.
*/
package log
