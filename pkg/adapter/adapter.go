package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hostbeacon/dnssync/pkg/audit"
	"github.com/hostbeacon/dnssync/pkg/breaker"
	"github.com/hostbeacon/dnssync/pkg/log"
	"github.com/hostbeacon/dnssync/pkg/metrics"
	"github.com/hostbeacon/dnssync/pkg/rollout"
	"github.com/hostbeacon/dnssync/pkg/types"
)

// Config tunes the adapter
type Config struct {
	// Enabled gates all real syncing; when false everything goes to mock
	Enabled bool

	// Zone is the managed zone, fully qualified
	Zone string

	// DefaultTTL applied to upserted records
	DefaultTTL int

	// RolloutPercentage gates the real backend per hostname
	RolloutPercentage int

	// FallbackToMock permits degradation when the real backend is
	// unhealthy
	FallbackToMock bool

	// CallerWait bounds how long a lifecycle call blocks waiting for its
	// operation to complete before returning a deferred result
	CallerWait time.Duration
}

// Result is what the registration pipeline sees for one lifecycle event.
// It never carries an error: DNS sync failure must not fail a
// registration.
type Result struct {
	OperationID string
	Backend     types.Backend
	Completed   bool // Operation finished within CallerWait
	Degraded    bool // Mock fallback, deferred completion, or failure
}

// queuedOp pairs an operation with its caller's completion channel
type queuedOp struct {
	op   *types.SyncOperation
	done chan Result
}

// hostQueue serializes operations for one hostname
type hostQueue struct {
	pending []*queuedOp
	active  bool
}

// Adapter routes host lifecycle events to the real or mock DNS backend.
// Per-host operations run concurrently, but operations for the same
// hostname+record are serialized through a per-host queue so REPLACE
// writes cannot interleave out of order.
type Adapter struct {
	cfg     Config
	real    Backend
	mock    *Mock
	breaker *breaker.Breaker
	store   *audit.Store
	broker  *audit.Broker
	logger  zerolog.Logger

	mu     sync.Mutex
	queues map[string]*hostQueue
	closed bool

	wg sync.WaitGroup
}

// New creates an adapter. All dependencies are injected; there are no
// ambient singletons.
func New(cfg Config, real Backend, b *breaker.Breaker, store *audit.Store, broker *audit.Broker) *Adapter {
	if cfg.CallerWait <= 0 {
		cfg.CallerWait = 2 * time.Second
	}
	return &Adapter{
		cfg:     cfg,
		real:    real,
		mock:    NewMock(),
		breaker: b,
		store:   store,
		broker:  broker,
		logger:  log.WithComponent("adapter"),
		queues:  make(map[string]*hostQueue),
	}
}

// Mock exposes the mock backend for inspection
func (a *Adapter) Mock() *Mock {
	return a.mock
}

// OnHostCreated syncs a DNS record for a newly registered host
func (a *Adapter) OnHostCreated(host *types.HostRecord) Result {
	op := a.newOp(host.Hostname, types.OpTypeUpsert, types.RecordTypeFor(host.IP), host.IP)
	return a.submit(op)
}

// OnHostUpdated syncs the record for a host whose IP changed. When the
// address family changed the stale record of the old type is deleted
// first, serialized on the same per-host queue.
func (a *Adapter) OnHostUpdated(host *types.HostRecord, oldIP string) Result {
	newType := types.RecordTypeFor(host.IP)
	oldType := types.RecordTypeFor(oldIP)

	if oldIP != "" && oldType != newType {
		cleanup := a.newOp(host.Hostname, types.OpTypeDelete, oldType, "")
		a.enqueue(cleanup)
	}

	op := a.newOp(host.Hostname, types.OpTypeUpsert, newType, host.IP)
	return a.submit(op)
}

// OnHostDeleted removes the DNS record for a deregistered host
func (a *Adapter) OnHostDeleted(host *types.HostRecord) Result {
	op := a.newOp(host.Hostname, types.OpTypeDelete, types.RecordTypeFor(host.IP), "")
	return a.submit(op)
}

// PendingFor reports queued-but-unstarted operations for a hostname
func (a *Adapter) PendingFor(hostname string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if q, ok := a.queues[hostname]; ok {
		return len(q.pending)
	}
	return 0
}

// Close drains in-flight operations, waiting up to the given timeout
func (a *Adapter) Close(timeout time.Duration) {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		a.logger.Warn().Msg("close timed out with operations in flight")
	}
}

func (a *Adapter) newOp(hostname string, opType types.OpType, recordType, content string) *types.SyncOperation {
	now := time.Now()
	return &types.SyncOperation{
		ID:        uuid.New().String(),
		Hostname:  hostname,
		Type:      opType,
		Zone:      a.cfg.Zone,
		Name:      hostname + "." + a.cfg.Zone,
		RecordTyp: recordType,
		TTL:       a.cfg.DefaultTTL,
		Content:   content,
		State:     types.OpStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// submit enqueues an operation and waits up to CallerWait for it to
// finish. A caller whose operation is still running gets a deferred,
// degraded-success result; the operation keeps going in the background.
func (a *Adapter) submit(op *types.SyncOperation) Result {
	done := a.enqueue(op)
	if done == nil {
		// Adapter closing; record the op as failed but never fail the caller
		op.State = types.OpStateFailed
		op.LastError = "adapter closed"
		op.UpdatedAt = time.Now()
		a.saveOp(op)
		return Result{OperationID: op.ID, Degraded: true}
	}

	select {
	case res := <-done:
		return res
	case <-time.After(a.cfg.CallerWait):
		return Result{OperationID: op.ID, Degraded: true}
	}
}

// enqueue adds the operation to its host's queue, superseding stale
// pending operations for the same record, and starts a drain goroutine
// if none is running
func (a *Adapter) enqueue(op *types.SyncOperation) chan Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	q, ok := a.queues[op.Hostname]
	if !ok {
		q = &hostQueue{}
		a.queues[op.Hostname] = q
	}

	// A newer operation for the same record makes queued ones stale;
	// executing them would only reorder writes
	kept := q.pending[:0]
	for _, qop := range q.pending {
		if qop.op.Name == op.Name && qop.op.RecordTyp == op.RecordTyp {
			a.supersede(qop)
			continue
		}
		kept = append(kept, qop)
	}
	q.pending = kept

	qop := &queuedOp{op: op, done: make(chan Result, 1)}
	q.pending = append(q.pending, qop)
	a.saveOp(op)
	metrics.SyncOperationsPending.Inc()

	if !q.active {
		q.active = true
		a.wg.Add(1)
		go a.drain(op.Hostname, q)
	}
	return qop.done
}

// supersede marks a queued operation as replaced by a newer one.
// Caller holds a.mu.
func (a *Adapter) supersede(qop *queuedOp) {
	qop.op.State = types.OpStateSuperseded
	qop.op.UpdatedAt = time.Now()
	a.saveOp(qop.op)
	metrics.SyncOperationsPending.Dec()

	a.logger.Debug().
		Str("hostname", qop.op.Hostname).
		Str("operation_id", qop.op.ID).
		Msg("operation superseded by newer event")

	qop.done <- Result{OperationID: qop.op.ID, Degraded: true}
	close(qop.done)
}

// drain executes queued operations for one hostname serially
func (a *Adapter) drain(hostname string, q *hostQueue) {
	defer a.wg.Done()

	for {
		a.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			a.mu.Unlock()
			return
		}
		qop := q.pending[0]
		q.pending = q.pending[1:]
		a.mu.Unlock()

		res := a.execute(qop.op)
		metrics.SyncOperationsPending.Dec()
		qop.done <- res
		close(qop.done)
	}
}

// execute runs the backend decision logic for one operation
func (a *Adapter) execute(op *types.SyncOperation) Result {
	op.State = types.OpStateInFlight
	op.UpdatedAt = time.Now()
	a.saveOp(op)

	timer := metrics.NewTimer()

	backend, reason, flagEnabled := a.decide(op)

	var err error
	degraded := false

	switch backend {
	case types.BackendReal:
		err = a.run(a.real, op)
		if err != nil && a.cfg.FallbackToMock {
			// Best-effort mock retry keeps the outcome deterministic
			// for the registration pipeline
			a.logDegradation(op, types.ReasonRealFailed, err)
			backend = types.BackendMock
			reason = types.ReasonRealFailed
			degraded = true
			err = a.run(a.mock, op)
		}
	case types.BackendMock:
		err = a.run(a.mock, op)
		degraded = reason == types.ReasonBreakerOpen
	}

	op.Attempts++
	op.UpdatedAt = time.Now()
	if err != nil {
		op.State = types.OpStateFailed
		op.LastError = err.Error()
	} else {
		op.State = types.OpStateCommitted
		op.LastError = ""
	}
	a.saveOp(op)
	a.record(op, backend, reason, flagEnabled)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.SyncOperationsTotal.WithLabelValues(string(op.Type), string(backend), outcome).Inc()
	timer.ObserveDurationVec(metrics.SyncOperationDuration, string(op.Type), string(backend))

	breakerState := string(a.breaker.State())
	a.broker.Publish(&audit.OperationResult{
		OperationID:  op.ID,
		Hostname:     op.Hostname,
		Operation:    op.Type,
		Backend:      backend,
		Duration:     timer.Duration(),
		Success:      err == nil,
		BreakerState: breakerState,
		Error:        op.LastError,
	})

	return Result{
		OperationID: op.ID,
		Backend:     backend,
		Completed:   true,
		Degraded:    degraded || err != nil,
	}
}

// decide picks the backend for one operation. The decision is
// re-evaluated per operation rather than made sticky per host; flapping
// between backends during a partial outage is observable through the
// recorded decisions.
func (a *Adapter) decide(op *types.SyncOperation) (types.Backend, string, bool) {
	if !a.cfg.Enabled {
		return types.BackendMock, types.ReasonSyncDisabled, false
	}

	flagEnabled := rollout.IsEnabled(op.Hostname, a.cfg.RolloutPercentage)
	if !flagEnabled {
		return types.BackendMock, types.ReasonFlagDisabled, false
	}

	if a.breaker.State() == breaker.StateOpen && a.cfg.FallbackToMock {
		a.logDegradation(op, types.ReasonBreakerOpen, nil)
		return types.BackendMock, types.ReasonBreakerOpen, true
	}

	return types.BackendReal, types.ReasonFlagEnabled, true
}

// run dispatches the operation to a backend
func (a *Adapter) run(b Backend, op *types.SyncOperation) error {
	ctx := context.Background()
	switch op.Type {
	case types.OpTypeDelete:
		return b.DeleteRecord(ctx, op.Zone, op.Name, op.RecordTyp)
	default:
		return b.UpsertRecord(ctx, op.Zone, op.Name, op.RecordTyp, op.TTL, op.Content)
	}
}

// record persists the backend decision for audit
func (a *Adapter) record(op *types.SyncOperation, backend types.Backend, reason string, flagEnabled bool) {
	d := &types.Decision{
		Hostname:     op.Hostname,
		OperationID:  op.ID,
		FlagEnabled:  flagEnabled,
		Bucket:       rollout.Bucket(op.Hostname),
		Percentage:   a.cfg.RolloutPercentage,
		BreakerState: string(a.breaker.State()),
		Backend:      backend,
		Reason:       reason,
		DecidedAt:    time.Now(),
	}
	if err := a.store.SaveDecision(d); err != nil {
		a.logger.Error().Err(err).Str("hostname", op.Hostname).Msg("failed to record decision")
	}

	a.logger.Info().
		Str("hostname", op.Hostname).
		Str("operation_id", op.ID).
		Str("operation", string(op.Type)).
		Str("backend", string(backend)).
		Str("reason", reason).
		Str("breaker_state", d.BreakerState).
		Str("state", string(op.State)).
		Msg("sync operation finished")
}

func (a *Adapter) logDegradation(op *types.SyncOperation, reason string, err error) {
	metrics.DegradationsTotal.WithLabelValues(reason).Inc()

	evt := a.logger.Warn().
		Str("hostname", op.Hostname).
		Str("operation_id", op.ID).
		Str("reason", reason)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("degraded to mock backend")
}

func (a *Adapter) saveOp(op *types.SyncOperation) {
	if err := a.store.SaveOperation(op); err != nil {
		a.logger.Error().Err(err).Str("operation_id", op.ID).Msg("failed to persist operation")
	}
}
