package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engine statistics",
	Long:  `Display statistics about rules, scans and flagged candidates.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Println("Plexsweep Statistics:")
		fmt.Printf("Rules: %d (%d enabled)\n", stats.TotalRules, stats.EnabledRules)
		fmt.Printf("Scans: %d (%d failed)\n", stats.TotalScans, stats.FailedScans)
		for _, status := range []database.ReviewStatus{
			database.ReviewStatusPending,
			database.ReviewStatusApproved,
			database.ReviewStatusRejected,
			database.ReviewStatusDeleted,
		} {
			fmt.Printf("Candidates %s: %d\n", status, stats.CandidatesByStatus[status])
		}
		fmt.Printf("Flagged size: %s\n", humanize.IBytes(uint64(max(stats.BytesFlagged, 0))))
		fmt.Printf("Reclaimed size: %s\n", humanize.IBytes(uint64(max(stats.BytesDeleted, 0))))
		if stats.LastCompletedScanAt != nil {
			fmt.Printf("Last completed scan: %s\n", stats.LastCompletedScanAt.Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
