package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/scheduler"
)

// validateRule checks everything about a rule that can be checked
// without touching the catalog.
func validateRule(rule *database.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if !rule.MediaType.Valid() {
		return fmt.Errorf("invalid media type %q", rule.MediaType)
	}
	if !rule.ActionType.Valid() {
		return fmt.Errorf("invalid action type %q", rule.ActionType)
	}
	if err := rule.Criteria.Validate(); err != nil {
		return err
	}
	if rule.Schedule != "" {
		if err := scheduler.ValidateSchedule(rule.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// CreateRule validates and stores a new rule, registering its schedule.
func (e *Engine) CreateRule(ctx context.Context, rule *database.Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.Schedule != "" {
		rule.NextRunAt = scheduler.NextOccurrence(rule.Schedule, time.Now())
	}
	if err := e.db.CreateRule(ctx, rule); err != nil {
		return err
	}
	if rule.Enabled && rule.Schedule != "" {
		if err := e.scheduleRule(rule); err != nil {
			log.Error("Failed to schedule new rule", "rule", rule.Name, "error", err)
		}
	}
	log.Info("Created rule", "rule", rule.Name, "media_type", rule.MediaType, "action", rule.ActionType)
	return nil
}

// UpdateRule validates and stores rule changes, keeping the schedule in
// sync.
func (e *Engine) UpdateRule(ctx context.Context, rule *database.Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.Schedule != "" {
		rule.NextRunAt = scheduler.NextOccurrence(rule.Schedule, time.Now())
	} else {
		rule.NextRunAt = nil
	}
	if err := e.db.UpdateRule(ctx, rule); err != nil {
		return err
	}
	if rule.Enabled && rule.Schedule != "" {
		if err := e.scheduleRule(rule); err != nil {
			log.Error("Failed to reschedule rule", "rule", rule.Name, "error", err)
		}
	} else {
		e.scheduler.RemoveRuleJob(rule.ID)
	}
	log.Info("Updated rule", "rule", rule.Name)
	return nil
}

// DeleteRule removes a rule with its scans and candidates and
// unschedules it.
func (e *Engine) DeleteRule(ctx context.Context, id uint) error {
	if err := e.db.DeleteRule(ctx, id); err != nil {
		return err
	}
	e.scheduler.RemoveRuleJob(id)
	log.Info("Deleted rule", "rule_id", id)
	return nil
}

// GetRule retrieves a rule by id.
func (e *Engine) GetRule(ctx context.Context, id uint) (*database.Rule, error) {
	return e.db.GetRule(ctx, id)
}

// ListRules lists all rules with their scan statistics.
func (e *Engine) ListRules(ctx context.Context) ([]database.RuleSummary, error) {
	return e.db.ListRules(ctx)
}
