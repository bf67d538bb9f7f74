package adapter

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hostbeacon/dnssync/pkg/log"
)

// Backend performs record-level DNS mutations. The real implementation is
// the pdns client; Mock records intent without external calls.
type Backend interface {
	UpsertRecord(ctx context.Context, zone, name, recordType string, ttl int, content string) error
	DeleteRecord(ctx context.Context, zone, name, recordType string) error
}

// mockRecord is one intent captured by the mock backend
type mockRecord struct {
	TTL     int
	Content string
}

// Mock is the no-op DNS backend. It records every intent in memory so the
// audit trail and tests can inspect what would have been synced, and it
// never fails. Hosts outside the rollout percentage, and all hosts during
// a degradation, land here.
type Mock struct {
	mu      sync.RWMutex
	records map[string]mockRecord // key: zone|name|type
	logger  zerolog.Logger
}

// NewMock creates an empty mock backend
func NewMock() *Mock {
	return &Mock{
		records: make(map[string]mockRecord),
		logger:  log.WithComponent("mock-backend"),
	}
}

// UpsertRecord records the intent to replace a record
func (m *Mock) UpsertRecord(ctx context.Context, zone, name, recordType string, ttl int, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[mockKey(zone, name, recordType)] = mockRecord{TTL: ttl, Content: content}

	m.logger.Debug().
		Str("zone", zone).
		Str("name", name).
		Str("type", recordType).
		Str("content", content).
		Msg("mock upsert")
	return nil
}

// DeleteRecord records the intent to delete a record. Deleting an unknown
// record succeeds silently, matching the real backend's idempotence.
func (m *Mock) DeleteRecord(ctx context.Context, zone, name, recordType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, mockKey(zone, name, recordType))

	m.logger.Debug().
		Str("zone", zone).
		Str("name", name).
		Str("type", recordType).
		Msg("mock delete")
	return nil
}

// Lookup returns the recorded content for (zone, name, type), if any
func (m *Mock) Lookup(zone, name, recordType string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[mockKey(zone, name, recordType)]
	return r.Content, ok
}

// Len returns the number of recorded intents
func (m *Mock) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func mockKey(zone, name, recordType string) string {
	return zone + "|" + name + "|" + recordType
}
