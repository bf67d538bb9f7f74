package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostbeacon/dnssync/pkg/adapter"
	"github.com/hostbeacon/dnssync/pkg/audit"
	"github.com/hostbeacon/dnssync/pkg/breaker"
	"github.com/hostbeacon/dnssync/pkg/config"
	"github.com/hostbeacon/dnssync/pkg/log"
	"github.com/hostbeacon/dnssync/pkg/metrics"
	"github.com/hostbeacon/dnssync/pkg/pdns"
	"github.com/hostbeacon/dnssync/pkg/pool"
	"github.com/hostbeacon/dnssync/pkg/reconciler"
	"github.com/hostbeacon/dnssync/pkg/registry"
	"github.com/hostbeacon/dnssync/pkg/retry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DNS sync layer",
	Long: `Run the sync layer: bootstrap the managed zone, start the adapter,
the reconciler, and the observability endpoint (/metrics, /healthz).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "/etc/dnssync/config.yaml", "Config file path")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSONOutput,
	})
	metrics.SetVersion(Version)

	fmt.Println("Starting dnssync...")
	fmt.Printf("  Zone: %s\n", cfg.Zone)
	fmt.Printf("  Rollout: %d%%\n", cfg.RolloutPercentage)
	fmt.Printf("  Fallback to mock: %v\n", cfg.FallbackToMock)
	fmt.Println()

	if err := os.MkdirAll(cfg.Audit.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}

	store, err := audit.NewStore(cfg.Audit.DataDir, cfg.Audit.Retention)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %v", err)
	}
	defer store.Close()

	broker := audit.NewBroker()
	broker.Start()
	defer broker.Stop()

	// Resilience stack for the real backend
	brk := breaker.New("powerdns", cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown)
	connPool := pool.New(pool.Config{
		MinSize:        cfg.Pool.MinSize,
		MaxSize:        cfg.Pool.MaxSize,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
		IdleTimeout:    cfg.Pool.IdleTimeout,
		RecycleAge:     cfg.Pool.RecycleAge,
	})
	defer connPool.Close()

	policy := retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, cfg.Retry.MaxDelay)
	client := pdns.New(pdns.Config{
		URL:               cfg.API.URL,
		APIKey:            cfg.API.APIKey,
		CallTimeout:       cfg.API.CallTimeout,
		OperationDeadline: cfg.API.OperationDeadline,
	}, connPool, brk, policy)

	// Zone bootstrap: create the managed zone when it does not exist yet
	if cfg.Enabled && cfg.RolloutPercentage > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.OperationDeadline)
		err := client.CreateZone(ctx, cfg.Zone, cfg.Nameservers)
		cancel()
		if err != nil {
			// Not fatal: the breaker and reconciler take over from here
			log.Errorf("zone bootstrap failed", err)
		} else {
			fmt.Printf("✓ Zone %s ready\n", cfg.Zone)
		}
	}

	adp := adapter.New(adapter.Config{
		Enabled:           cfg.Enabled,
		Zone:              cfg.Zone,
		DefaultTTL:        cfg.DefaultTTL,
		RolloutPercentage: cfg.RolloutPercentage,
		FallbackToMock:    cfg.FallbackToMock,
	}, client, brk, store, broker)
	fmt.Println("✓ Adapter started")

	metrics.RegisterComponent("adapter", true, "")
	metrics.RegisterComponent("backend", true, "")

	// Keep the backend health component in step with breaker state
	go watchBreaker(brk)

	var recon *reconciler.Reconciler
	if cfg.Reconciler.Enabled {
		// The in-memory registry is the integration point for the external
		// host source; while it holds no hosts, reconcile passes are no-ops
		recon = reconciler.New(cfg.Zone, cfg.Reconciler.Interval, registry.NewMemory(), client, adp)
		recon.Start()
		defer recon.Stop()
		fmt.Println("✓ Reconciler started")
	}

	// Periodic audit pruning
	pruneStop := make(chan struct{})
	go prune(store, pruneStop)
	defer close(pruneStop)

	// Observability endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/livez", metrics.LivenessHandler())

	srv := &http.Server{Addr: cfg.Listen.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("observability listener failed", err)
		}
	}()
	fmt.Printf("✓ Metrics on http://%s/metrics\n", cfg.Listen.Addr)

	fmt.Println()
	fmt.Println("dnssync is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	adp.Close(10 * time.Second)

	return nil
}

// watchBreaker mirrors breaker state into the health registry
func watchBreaker(brk *breaker.Breaker) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		state := brk.State()
		healthy := state == breaker.StateClosed
		msg := ""
		if !healthy {
			msg = "circuit breaker " + string(state)
		}
		metrics.UpdateComponent("backend", healthy, msg)
	}
}

// prune periodically trims aged-out audit entries
func prune(store *audit.Store, stopCh chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := store.Prune(); err != nil {
				log.Errorf("audit prune failed", err)
			}
		case <-stopCh:
			return
		}
	}
}
