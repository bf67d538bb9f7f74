package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dnssync",
	Short: "dnssync - keeps authoritative DNS in step with the host registry",
	Long: `dnssync turns host lifecycle events (create, IP change, delete) into
idempotent DNS record operations against a PowerDNS-style control-plane
API, with connection pooling, retries, a circuit breaker, deterministic
percentage rollout, and automatic degradation to a mock backend.

Registrations never fail because DNS sync failed: degradations are
recorded in the audit trail instead.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"dnssync version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rolloutCmd)
	rootCmd.AddCommand(opsCmd)
}
