package types

import (
	"time"
)

// HostRecord represents a registered host as reported by the heartbeat
// pipeline. The host registry owns these records; the sync layer only
// reads them.
type HostRecord struct {
	Hostname string     // Unique key
	IP       string     // Current IPv4 or IPv6 address
	Status   HostStatus
	LastSeen time.Time
}

// HostStatus represents the liveness of a registered host
type HostStatus string

const (
	HostStatusOnline  HostStatus = "online"
	HostStatusOffline HostStatus = "offline"
)

// Zone represents a DNS zone on the control plane
type Zone struct {
	Name        string   `json:"name"` // Fully qualified, trailing dot
	Kind        string   `json:"kind"` // "Native"
	Serial      int64    `json:"serial,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
	RRSets      []RRSet  `json:"rrsets,omitempty"`
}

// RRSet represents a set of resource records sharing a name and type,
// replaced atomically on update
type RRSet struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	TTL        int      `json:"ttl"`
	ChangeType string   `json:"changetype,omitempty"` // "REPLACE" or "DELETE"
	Records    []Record `json:"records"`
}

// Record represents a single record within an RRSet
type Record struct {
	Content  string `json:"content"`
	Disabled bool   `json:"disabled"`
}

// Record types supported by the sync layer
const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// Change types for RRSet mutations
const (
	ChangeTypeReplace = "REPLACE"
	ChangeTypeDelete  = "DELETE"
)

// RecordTypeFor returns the record type matching an IP address literal.
// Addresses containing a colon are treated as IPv6.
func RecordTypeFor(ip string) string {
	for i := 0; i < len(ip); i++ {
		if ip[i] == ':' {
			return RecordTypeAAAA
		}
	}
	return RecordTypeA
}

// OpType identifies the kind of sync operation
type OpType string

const (
	OpTypeUpsert OpType = "upsert"
	OpTypeDelete OpType = "delete"
)

// OpState tracks a sync operation through its lifecycle.
// Valid transitions: pending -> in-flight -> committed | failed,
// and pending -> superseded when a newer operation for the same
// hostname is enqueued.
type OpState string

const (
	OpStatePending    OpState = "pending"
	OpStateInFlight   OpState = "in-flight"
	OpStateCommitted  OpState = "committed"
	OpStateFailed     OpState = "failed"
	OpStateSuperseded OpState = "superseded"
)

// SyncOperation is the intent record for one DNS change. It is created by
// the adapter on every host lifecycle event and retained by the audit
// store once terminal.
type SyncOperation struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	Type      OpType    `json:"type"`
	Zone      string    `json:"zone"`
	Name      string    `json:"name"`        // FQDN of the record
	RecordTyp string    `json:"record_type"` // A or AAAA
	TTL       int       `json:"ttl"`
	Content   string    `json:"content,omitempty"` // Empty for deletes
	State     OpState   `json:"state"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the operation has reached a final state
func (op *SyncOperation) Terminal() bool {
	switch op.State {
	case OpStateCommitted, OpStateFailed, OpStateSuperseded:
		return true
	}
	return false
}

// Backend identifies which DNS backend executed an operation
type Backend string

const (
	BackendReal Backend = "real"
	BackendMock Backend = "mock"
)

// Decision records why a backend was chosen for one operation. Computed
// per evaluation and retained for audit; it is the answer to "was this
// host synced via PowerDNS or mock, and why".
type Decision struct {
	Hostname     string    `json:"hostname"`
	OperationID  string    `json:"operation_id"`
	FlagEnabled  bool      `json:"flag_enabled"`
	Bucket       int       `json:"bucket"`     // 0-99
	Percentage   int       `json:"percentage"` // Rollout threshold at evaluation time
	BreakerState string    `json:"breaker_state"`
	Backend      Backend   `json:"backend"`
	Reason       string    `json:"reason"`
	DecidedAt    time.Time `json:"decided_at"`
}

// Decision reasons
const (
	ReasonFlagDisabled = "flag_disabled"
	ReasonFlagEnabled  = "flag_enabled"
	ReasonBreakerOpen  = "breaker_open_fallback"
	ReasonRealFailed   = "real_failed_fallback"
	ReasonSyncDisabled = "sync_disabled"
)
