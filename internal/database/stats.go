package database

import (
	"context"

	"github.com/charmbracelet/log"
)

// GetStats aggregates library-wide counters for the dashboard.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		CandidatesByStatus: make(map[ReviewStatus]int64),
	}

	tx := c.db.WithContext(ctx)
	if err := tx.Model(&Rule{}).Count(&stats.TotalRules).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Rule{}).Where("enabled = ?", true).Count(&stats.EnabledRules).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Scan{}).Count(&stats.TotalScans).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Scan{}).Where("status = ?", ScanStatusFailed).Count(&stats.FailedScans).Error; err != nil {
		return nil, err
	}

	var byStatus []struct {
		ReviewStatus ReviewStatus
		Count        int64
	}
	if err := tx.Model(&Candidate{}).
		Select("review_status, COUNT(*) AS count").
		Group("review_status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.CandidatesByStatus[row.ReviewStatus] = row.Count
	}

	var flagged struct{ Total int64 }
	if err := tx.Model(&Candidate{}).
		Select("COALESCE(SUM(file_size), 0) AS total").
		Where("review_status IN ?", []ReviewStatus{ReviewStatusPending, ReviewStatusApproved}).
		Scan(&flagged).Error; err != nil {
		return nil, err
	}
	stats.BytesFlagged = flagged.Total

	var deleted struct{ Total int64 }
	if err := tx.Model(&Candidate{}).
		Select("COALESCE(SUM(file_size), 0) AS total").
		Where("review_status = ?", ReviewStatusDeleted).
		Scan(&deleted).Error; err != nil {
		return nil, err
	}
	stats.BytesDeleted = deleted.Total

	var lastScan Scan
	result := tx.Model(&Scan{}).
		Where("status = ?", ScanStatusCompleted).
		Order("completed_at DESC").
		First(&lastScan)
	if result.Error == nil {
		stats.LastCompletedScanAt = lastScan.CompletedAt
	}

	log.Debug("collected stats", "rules", stats.TotalRules, "scans", stats.TotalScans)
	return stats, nil
}
