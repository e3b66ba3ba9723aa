// Package scheduler runs maintenance rules on their cron schedules. Each
// scheduled rule owns one singleton gocron job so a slow scan can never
// stack on top of itself.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

// Scheduler manages the per-rule cron jobs.
type Scheduler struct {
	mu     sync.Mutex
	gocron gocron.Scheduler
	jobs   map[uint]uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler.
func New() (*Scheduler, error) {
	gocronScheduler, err := gocron.NewScheduler(gocron.WithLogger(newLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		gocron: gocronScheduler,
		jobs:   make(map[uint]uuid.UUID),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.gocron.Start()
	log.Info("Rule scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() error {
	log.Info("Stopping rule scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// UpsertRuleJob schedules a rule, replacing any existing job for it.
func (s *Scheduler) UpsertRuleJob(ruleID uint, ruleName, schedule string, jobFunc JobFunc) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, ok := s.jobs[ruleID]; ok {
		if err := s.gocron.RemoveJob(jobID); err != nil {
			log.Warn("Failed to remove previous job for rule", "rule_id", ruleID, "error", err)
		}
		delete(s.jobs, ruleID)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(func() {
			log.Info("Starting scheduled rule run", "rule_id", ruleID, "rule", ruleName)
			if err := jobFunc(s.ctx); err != nil {
				log.Error("Scheduled rule run failed", "rule_id", ruleID, "rule", ruleName, "error", err)
				return
			}
			log.Info("Scheduled rule run finished", "rule_id", ruleID, "rule", ruleName)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(ruleName),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule rule %d: %w", ruleID, err)
	}

	s.jobs[ruleID] = job.ID()
	log.Info("Scheduled rule", "rule_id", ruleID, "rule", ruleName, "schedule", schedule)
	return nil
}

// RemoveRuleJob unschedules a rule. Unknown rules are a no-op.
func (s *Scheduler) RemoveRuleJob(ruleID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobID, ok := s.jobs[ruleID]
	if !ok {
		return
	}
	if err := s.gocron.RemoveJob(jobID); err != nil {
		log.Warn("Failed to remove job for rule", "rule_id", ruleID, "error", err)
	}
	delete(s.jobs, ruleID)
	log.Info("Unscheduled rule", "rule_id", ruleID)
}

// JobCount returns the number of scheduled rules.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
