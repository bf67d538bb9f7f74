package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostbeacon/dnssync/pkg/audit"
	"github.com/hostbeacon/dnssync/pkg/types"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Inspect retained sync operations",
}

var opsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained sync operations from the audit store",
	Long: `List sync operations retained in the audit store. Committed
operations are kept for the retention window; failed operations stay
until pruned.

Examples:
  # Everything currently retained
  dnssync ops list --data-dir /var/lib/dnssync

  # Only operations that exhausted their retries
  dnssync ops list --failed`,
	RunE: runOpsList,
}

func init() {
	opsListCmd.Flags().String("data-dir", "/var/lib/dnssync", "Audit store directory")
	opsListCmd.Flags().Bool("failed", false, "Show only failed operations")
	opsCmd.AddCommand(opsListCmd)
}

func runOpsList(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	failedOnly, _ := cmd.Flags().GetBool("failed")

	store, err := audit.NewStore(dataDir, 0)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %v", err)
	}
	defer store.Close()

	var ops []*types.SyncOperation
	if failedOnly {
		ops, err = store.FailedOperations()
	} else {
		ops, err = store.ListOperations()
	}
	if err != nil {
		return fmt.Errorf("failed to list operations: %v", err)
	}

	if len(ops) == 0 {
		fmt.Println("No operations retained.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-8s %-12s %-9s %s\n",
		"ID", "HOSTNAME", "TYPE", "STATE", "ATTEMPTS", "UPDATED")
	for _, op := range ops {
		fmt.Printf("%-36s %-20s %-8s %-12s %-9d %s\n",
			op.ID, op.Hostname, op.Type, op.State, op.Attempts,
			op.UpdatedAt.Format(time.RFC3339))
		if op.LastError != "" {
			fmt.Printf("    last error: %s\n", op.LastError)
		}
	}
	return nil
}
