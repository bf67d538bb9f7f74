package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbeacon/dnssync/pkg/adapter"
	"github.com/hostbeacon/dnssync/pkg/log"
	"github.com/hostbeacon/dnssync/pkg/metrics"
	"github.com/hostbeacon/dnssync/pkg/registry"
	"github.com/hostbeacon/dnssync/pkg/types"
)

// ZoneReader fetches the current zone contents. Implemented by the pdns
// client.
type ZoneReader interface {
	GetZone(ctx context.Context, zone string) (*types.Zone, error)
}

// Reconciler ensures DNS state converges to the host registry. It
// periodically re-diffs the registry against the zone and emits
// corrective operations through the same adapter path as live events, so
// a run interrupted mid-pass simply re-diffs from scratch next time.
type Reconciler struct {
	zone     string
	interval time.Duration
	source   registry.Source
	reader   ZoneReader
	adapter  *adapter.Adapter
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// New creates a reconciler
func New(zone string, interval time.Duration, source registry.Source, reader ZoneReader, a *adapter.Adapter) *Reconciler {
	return &Reconciler{
		zone:     zone,
		interval: interval,
		source:   source,
		reader:   reader,
		adapter:  a,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// run is the main reconciliation loop
func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Reconcile(context.Background()); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation cycle failed")
			}
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one diff pass. Exported so the CLI and tests can
// trigger a pass directly.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	hosts, err := r.source.ListHosts()
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}
	if len(hosts) == 0 {
		// An empty registry would classify every managed record as
		// orphaned; treat it as no signal, not a mass deregistration
		r.logger.Warn().Msg("registry returned no hosts, skipping pass")
		return nil
	}

	zone, err := r.reader.GetZone(ctx, r.zone)
	if err != nil {
		// Backend unreachable or breaker open; live events keep their
		// fallback behavior, this pass just waits for the next tick
		return fmt.Errorf("failed to read zone %s: %w", r.zone, err)
	}

	desired := make(map[string]*types.HostRecord, len(hosts))
	for _, h := range hosts {
		name := h.Hostname + "." + r.zone
		desired[name+"|"+types.RecordTypeFor(h.IP)] = h
	}

	actual := make(map[string]string)
	for _, rrset := range zone.RRSets {
		if rrset.Type != types.RecordTypeA && rrset.Type != types.RecordTypeAAAA {
			continue
		}
		if len(rrset.Records) == 0 {
			continue
		}
		actual[rrset.Name+"|"+rrset.Type] = rrset.Records[0].Content
	}

	var fixed int

	// Missing or stale records
	for key, host := range desired {
		content, ok := actual[key]
		if !ok {
			r.logger.Info().Str("hostname", host.Hostname).Str("ip", host.IP).
				Msg("record missing, emitting corrective upsert")
			metrics.ReconciliationDrift.WithLabelValues("missing").Inc()
			r.adapter.OnHostCreated(host)
			fixed++
			continue
		}
		if content != host.IP {
			r.logger.Info().Str("hostname", host.Hostname).
				Str("expected", host.IP).Str("actual", content).
				Msg("record stale, emitting corrective upsert")
			metrics.ReconciliationDrift.WithLabelValues("stale").Inc()
			r.adapter.OnHostUpdated(host, content)
			fixed++
		}
	}

	// Orphaned records for hosts no longer registered
	for key, content := range actual {
		if _, ok := desired[key]; ok {
			continue
		}
		name, _, _ := strings.Cut(key, "|")
		hostname := strings.TrimSuffix(name, "."+r.zone)
		if hostname == name || hostname == "" {
			// Not a record we manage (apex or foreign name)
			continue
		}

		r.logger.Info().Str("hostname", hostname).Str("content", content).
			Msg("orphaned record, emitting corrective delete")
		metrics.ReconciliationDrift.WithLabelValues("orphaned").Inc()
		r.adapter.OnHostDeleted(&types.HostRecord{Hostname: hostname, IP: content})
		fixed++
	}

	if fixed > 0 {
		r.logger.Info().Int("corrections", fixed).Msg("reconciliation pass complete")
	}
	return nil
}
