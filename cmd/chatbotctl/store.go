package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	statsTenantID  string
	deleteTenantID string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics for a tenant's store",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var deleteTenantCmd = &cobra.Command{
	Use:   "delete-tenant",
	Short: "Delete a tenant's store and its snapshot",
	Long: `Delete removes a tenant's in-memory index and its on-disk snapshot.
This is the recovery path for a corrupted store: delete, then re-ingest
the tenant's documents.`,
	Args: cobra.NoArgs,
	RunE: runDeleteTenant,
}

func init() {
	statsCmd.Flags().StringVar(&statsTenantID, "tenant-id", "", "Tenant identifier (required)")
	_ = statsCmd.MarkFlagRequired("tenant-id")

	deleteTenantCmd.Flags().StringVar(&deleteTenantID, "tenant-id", "", "Tenant identifier (required)")
	_ = deleteTenantCmd.MarkFlagRequired("tenant-id")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.manager.Stats(cmd.Context(), statsTenantID)
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"tenant_id":    statsTenantID,
			"vector_count": stats.VectorCount,
		})
	}
	fmt.Printf("Tenant %s: %d vectors\n", statsTenantID, stats.VectorCount)
	return nil
}

func runDeleteTenant(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.DeleteTenantStore(cmd.Context(), deleteTenantID); err != nil {
		return err
	}
	fmt.Printf("Deleted store for tenant %s\n", deleteTenantID)
	return nil
}
