/*
Package config loads and validates the dnssync configuration.

Configuration is a single immutable struct enumerating every recognized
option: sync enablement, rollout percentage, control-plane endpoint and
credentials, the three timeout layers (per-call, per-operation, pool
acquire), retry and breaker tuning, pool bounds, and reconciler cadence.

Files are YAML and overlay onto Default(); Validate() runs once at load so
invalid combinations fail at startup rather than on the first host event.
*/
package config
