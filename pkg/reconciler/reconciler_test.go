package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbeacon/dnssync/pkg/adapter"
	"github.com/hostbeacon/dnssync/pkg/audit"
	"github.com/hostbeacon/dnssync/pkg/breaker"
	"github.com/hostbeacon/dnssync/pkg/registry"
	"github.com/hostbeacon/dnssync/pkg/types"
)

const testZone = "managed.example.com."

// fakeZoneReader serves a canned zone snapshot
type fakeZoneReader struct {
	zone *types.Zone
	err  error
}

func (f *fakeZoneReader) GetZone(ctx context.Context, zone string) (*types.Zone, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.zone, nil
}

func rrset(name, typ, content string) types.RRSet {
	return types.RRSet{
		Name:    name,
		Type:    typ,
		TTL:     300,
		Records: []types.Record{{Content: content}},
	}
}

// newTestReconciler wires a reconciler whose corrective operations land
// in the adapter's mock backend
func newTestReconciler(t *testing.T, source registry.Source, reader ZoneReader) (*Reconciler, *adapter.Adapter) {
	t.Helper()

	store, err := audit.NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broker := audit.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	a := adapter.New(adapter.Config{
		Enabled:           true,
		Zone:              testZone,
		DefaultTTL:        300,
		RolloutPercentage: 0, // Corrections land in mock, easy to inspect
		CallerWait:        time.Second,
	}, nil, breaker.New("test", 5, time.Minute), store, broker)
	t.Cleanup(func() { a.Close(time.Second) })

	return New(testZone, time.Hour, source, reader, a), a
}

// TestReconcileEmitsMissingRecord tests that a registered host with no
// record gets a corrective upsert
func TestReconcileEmitsMissingRecord(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "192.168.1.10", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{zone: &types.Zone{Name: testZone}}
	r, a := newTestReconciler(t, source, reader)

	require.NoError(t, r.Reconcile(context.Background()))

	content, ok := a.Mock().Lookup(testZone, "web-01."+testZone, types.RecordTypeA)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.10", content)
}

// TestReconcileCorrectsStaleRecord tests that a record whose content no
// longer matches the registry is replaced
func TestReconcileCorrectsStaleRecord(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "192.168.1.20", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{zone: &types.Zone{
		Name:   testZone,
		RRSets: []types.RRSet{rrset("web-01."+testZone, types.RecordTypeA, "192.168.1.10")},
	}}
	r, a := newTestReconciler(t, source, reader)

	require.NoError(t, r.Reconcile(context.Background()))

	content, ok := a.Mock().Lookup(testZone, "web-01."+testZone, types.RecordTypeA)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.20", content)
}

// TestReconcileDeletesOrphanedRecord tests that a record for a
// deregistered host is removed
func TestReconcileDeletesOrphanedRecord(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "192.168.1.10", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{zone: &types.Zone{
		Name: testZone,
		RRSets: []types.RRSet{
			rrset("web-01."+testZone, types.RecordTypeA, "192.168.1.10"),
			rrset("gone-01."+testZone, types.RecordTypeA, "192.168.1.99"),
		},
	}}
	r, a := newTestReconciler(t, source, reader)

	// Seed the mock with the orphan so the delete is observable
	require.NoError(t, a.Mock().UpsertRecord(context.Background(), testZone, "gone-01."+testZone, types.RecordTypeA, 300, "192.168.1.99"))

	require.NoError(t, r.Reconcile(context.Background()))

	_, ok := a.Mock().Lookup(testZone, "gone-01."+testZone, types.RecordTypeA)
	assert.False(t, ok)
	assert.Equal(t, 0, a.Mock().Len(), "registered host's record untouched")
}

// TestReconcileIgnoresForeignRecords tests that records outside the
// hostname naming scheme are left alone
func TestReconcileIgnoresForeignRecords(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "192.168.1.10", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{zone: &types.Zone{
		Name: testZone,
		RRSets: []types.RRSet{
			rrset("web-01."+testZone, types.RecordTypeA, "192.168.1.10"),
			rrset(testZone, types.RecordTypeA, "203.0.113.1"),                // Zone apex
			rrset("static.other.example.org.", types.RecordTypeA, "1.2.3.4"), // Foreign name
		},
	}}
	r, a := newTestReconciler(t, source, reader)

	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, 0, a.Mock().Len(), "no corrective operations expected")
}

// TestReconcileEmptyRegistrySkipsPass tests that an empty registry never
// turns into mass deletion of the managed zone
func TestReconcileEmptyRegistrySkipsPass(t *testing.T) {
	source := registry.NewMemory() // No hosts registered

	reader := &fakeZoneReader{zone: &types.Zone{
		Name:   testZone,
		RRSets: []types.RRSet{rrset("web-01."+testZone, types.RecordTypeA, "192.168.1.10")},
	}}
	r, a := newTestReconciler(t, source, reader)

	require.NoError(t, a.Mock().UpsertRecord(context.Background(), testZone, "web-01."+testZone, types.RecordTypeA, 300, "192.168.1.10"))

	require.NoError(t, r.Reconcile(context.Background()))

	_, ok := a.Mock().Lookup(testZone, "web-01."+testZone, types.RecordTypeA)
	assert.True(t, ok, "records survive an empty-registry pass")
}

// TestReconcileConvergedZoneIsNoOp tests that a zone matching the
// registry produces no operations
func TestReconcileConvergedZoneIsNoOp(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "192.168.1.10", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{zone: &types.Zone{
		Name:   testZone,
		RRSets: []types.RRSet{rrset("web-01."+testZone, types.RecordTypeA, "192.168.1.10")},
	}}
	r, a := newTestReconciler(t, source, reader)

	require.NoError(t, r.Reconcile(context.Background()))
	assert.Equal(t, 0, a.Mock().Len())
}

// TestReconcileZoneReadFailureAborts tests that an unreadable zone
// aborts the pass without emitting operations
func TestReconcileZoneReadFailureAborts(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "192.168.1.10", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{err: errors.New("zone fetch failed")}
	r, a := newTestReconciler(t, source, reader)

	err := r.Reconcile(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, a.Mock().Len(), "no operations on an aborted pass")
}

// TestReconcileAddressFamilyChange tests drift where the registry moved
// a host from v4 to v6 while the zone still holds the old A record
func TestReconcileAddressFamilyChange(t *testing.T) {
	source := registry.NewMemory()
	source.Put(&types.HostRecord{Hostname: "web-01", IP: "2001:db8::10", Status: types.HostStatusOnline})

	reader := &fakeZoneReader{zone: &types.Zone{
		Name:   testZone,
		RRSets: []types.RRSet{rrset("web-01."+testZone, types.RecordTypeA, "192.168.1.10")},
	}}
	r, a := newTestReconciler(t, source, reader)

	// Seed the stale A record in the mock
	require.NoError(t, a.Mock().UpsertRecord(context.Background(), testZone, "web-01."+testZone, types.RecordTypeA, 300, "192.168.1.10"))

	require.NoError(t, r.Reconcile(context.Background()))

	content, ok := a.Mock().Lookup(testZone, "web-01."+testZone, types.RecordTypeAAAA)
	assert.True(t, ok)
	assert.Equal(t, "2001:db8::10", content)

	_, ok = a.Mock().Lookup(testZone, "web-01."+testZone, types.RecordTypeA)
	assert.False(t, ok, "stale A record deleted as orphan")
}

// TestStartStop tests clean shutdown of the loop
func TestStartStop(t *testing.T) {
	source := registry.NewMemory()
	reader := &fakeZoneReader{zone: &types.Zone{Name: testZone}}
	r, _ := newTestReconciler(t, source, reader)

	r.Start()
	r.Stop()
}
