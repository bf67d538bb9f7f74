/*
Package registry defines the read-only host registry view consumed by the
reconciler.

The actual registry lives with the heartbeat/registration server; this
package only specifies the Source interface and provides an in-memory
implementation for tests and local development.
*/
package registry
