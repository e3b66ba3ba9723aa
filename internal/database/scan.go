package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// CreateScan stores a new scan in pending state.
func (c *Client) CreateScan(ctx context.Context, scan *Scan) error {
	if scan.Status == "" {
		scan.Status = ScanStatusPending
	}
	result := c.db.WithContext(ctx).Create(scan)
	if result.Error != nil {
		log.Error("failed to create scan", "rule_id", scan.RuleID, "error", result.Error)
	}
	return result.Error
}

// StartScan moves a pending scan to running. The guard on the current
// status keeps two workers from starting the same scan.
func (c *Client) StartScan(ctx context.Context, id uint) error {
	now := time.Now()
	result := c.db.WithContext(ctx).Model(&Scan{}).
		Where("id = ? AND status = ?", id, ScanStatusPending).
		Updates(map[string]any{
			"status":     ScanStatusRunning,
			"started_at": now,
		})
	if result.Error != nil {
		log.Error("failed to start scan", "scan_id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CompleteScan finalizes a running scan as completed or failed.
func (c *Client) CompleteScan(ctx context.Context, id uint, status ScanStatus, itemsScanned, itemsFlagged int, errMsg *string) error {
	if status != ScanStatusCompleted && status != ScanStatusFailed {
		return errors.New("scan can only complete as completed or failed")
	}
	result := c.db.WithContext(ctx).Model(&Scan{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"completed_at":  time.Now(),
			"items_scanned": itemsScanned,
			"items_flagged": itemsFlagged,
			"error":         errMsg,
		})
	if result.Error != nil {
		log.Error("failed to complete scan", "scan_id", id, "error", result.Error)
	}
	return result.Error
}

// GetScan retrieves a scan by id.
func (c *Client) GetScan(ctx context.Context, id uint) (*Scan, error) {
	var scan Scan
	result := c.db.WithContext(ctx).First(&scan, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to get scan", "scan_id", id, "error", result.Error)
		return nil, result.Error
	}
	return &scan, nil
}

// ListScansByRule returns the most recent scans of a rule.
func (c *Client) ListScansByRule(ctx context.Context, ruleID uint, limit int) ([]Scan, error) {
	tx := c.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var scans []Scan
	if result := tx.Find(&scans); result.Error != nil {
		log.Error("failed to list scans", "rule_id", ruleID, "error", result.Error)
		return nil, result.Error
	}
	return scans, nil
}

// GetRunningScan returns the pending or running scan of a rule, if any.
func (c *Client) GetRunningScan(ctx context.Context, ruleID uint) (*Scan, error) {
	var scan Scan
	result := c.db.WithContext(ctx).
		Where("rule_id = ? AND status IN ?", ruleID, []ScanStatus{ScanStatusPending, ScanStatusRunning}).
		First(&scan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to get running scan", "rule_id", ruleID, "error", result.Error)
		return nil, result.Error
	}
	return &scan, nil
}
