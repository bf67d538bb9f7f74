/*
Package types defines the core data structures used throughout dnssync.

This package contains the fundamental types that represent the sync layer's
domain model: registered hosts, DNS zones and RRSets in the control plane's
wire shape, sync operations with their lifecycle states, and the backend
decisions recorded for audit.

# Core Types

  - HostRecord: a host as reported by the heartbeat pipeline (read-only here)
  - Zone / RRSet / Record: control-plane wire shapes, JSON-tagged to match
    the PowerDNS-style API payloads
  - SyncOperation: the intent record for one DNS change, a small state
    machine (pending -> in-flight -> committed/failed/superseded)
  - Decision: which backend handled an operation and why

All types are JSON-serializable so the audit store can persist them verbatim.
*/
package types
