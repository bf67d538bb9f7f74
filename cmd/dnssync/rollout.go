package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostbeacon/dnssync/pkg/rollout"
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Inspect feature flag rollout decisions",
}

var rolloutCheckCmd = &cobra.Command{
	Use:   "check <hostname>",
	Short: "Show the rollout decision for a hostname",
	Long: `Show which bucket a hostname hashes to and whether it falls inside
the given rollout percentage. Decisions are deterministic, so this
reproduces exactly what the adapter decides in production.

Examples:
  # Is web-01 in a 25% rollout?
  dnssync rollout check web-01 --percentage 25`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hostname := args[0]
		percentage, _ := cmd.Flags().GetInt("percentage")
		if percentage < 0 || percentage > 100 {
			return fmt.Errorf("percentage must be in 0..100, got %d", percentage)
		}

		bucket := rollout.Bucket(hostname)
		enabled := rollout.IsEnabled(hostname, percentage)

		fmt.Printf("Hostname:   %s\n", hostname)
		fmt.Printf("Bucket:     %d\n", bucket)
		fmt.Printf("Percentage: %d\n", percentage)
		fmt.Printf("Enabled:    %v\n", enabled)
		return nil
	},
}

func init() {
	rolloutCheckCmd.Flags().IntP("percentage", "p", 100, "Rollout percentage to evaluate against")
	rolloutCmd.AddCommand(rolloutCheckCmd)
}
