package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// CreateRule stores a new rule. The criteria must already be validated.
func (c *Client) CreateRule(ctx context.Context, rule *Rule) error {
	result := c.db.WithContext(ctx).Create(rule)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateName
		}
		log.Error("failed to create rule", "error", result.Error)
		return result.Error
	}
	return nil
}

// UpdateRule saves all fields of an existing rule.
func (c *Client) UpdateRule(ctx context.Context, rule *Rule) error {
	result := c.db.WithContext(ctx).Save(rule)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateName
		}
		log.Error("failed to update rule", "error", result.Error)
		return result.Error
	}
	return nil
}

// GetRule retrieves a rule by id.
func (c *Client) GetRule(ctx context.Context, id uint) (*Rule, error) {
	var rule Rule
	result := c.db.WithContext(ctx).First(&rule, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to get rule", "id", id, "error", result.Error)
		return nil, result.Error
	}
	return &rule, nil
}

// ListRules returns all rules with their scan count and most recent scan.
func (c *Client) ListRules(ctx context.Context) ([]RuleSummary, error) {
	var ruleList []Rule
	if result := c.db.WithContext(ctx).Order("name").Find(&ruleList); result.Error != nil {
		log.Error("failed to list rules", "error", result.Error)
		return nil, result.Error
	}

	summaries := make([]RuleSummary, 0, len(ruleList))
	for _, rule := range ruleList {
		summary := RuleSummary{Rule: rule}

		if err := c.db.WithContext(ctx).Model(&Scan{}).
			Where("rule_id = ?", rule.ID).
			Count(&summary.ScanCount).Error; err != nil {
			log.Error("failed to count scans for rule", "rule_id", rule.ID, "error", err)
			return nil, err
		}

		var latest Scan
		err := c.db.WithContext(ctx).
			Where("rule_id = ?", rule.ID).
			Order("created_at DESC").
			First(&latest).Error
		switch {
		case err == nil:
			summary.LatestScan = &latest
		case errors.Is(err, gorm.ErrRecordNotFound):
			// rule has never been run
		default:
			log.Error("failed to get latest scan for rule", "rule_id", rule.ID, "error", err)
			return nil, err
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListScheduledRules returns all enabled rules carrying a cron schedule.
func (c *Client) ListScheduledRules(ctx context.Context) ([]Rule, error) {
	var ruleList []Rule
	result := c.db.WithContext(ctx).
		Where("enabled = ? AND schedule <> ''", true).
		Find(&ruleList)
	if result.Error != nil {
		log.Error("failed to list scheduled rules", "error", result.Error)
		return nil, result.Error
	}
	return ruleList, nil
}

// DeleteRule removes a rule together with its scans and candidates. The
// delete order (candidates, scans, rule) stands in for the cascading
// foreign keys sqlite does not enforce by default.
func (c *Client) DeleteRule(ctx context.Context, id uint) error {
	if _, err := c.GetRule(ctx, id); err != nil {
		return err
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("rule_id = ?", id).Delete(&Candidate{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("rule_id = ?", id).Delete(&Scan{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&Rule{}, id).Error
	})
}

// SetRuleRunTimes updates the bookkeeping timestamps after a scan run.
func (c *Client) SetRuleRunTimes(ctx context.Context, id uint, lastRun time.Time, nextRun *time.Time) error {
	updates := map[string]any{
		"last_run_at": lastRun,
		"next_run_at": nextRun,
	}
	result := c.db.WithContext(ctx).Model(&Rule{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		log.Error("failed to set rule run times", "rule_id", id, "error", result.Error)
		return result.Error
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
