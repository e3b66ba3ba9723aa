// Package engine implements the maintenance rule engine: it scans the
// media catalog against admin-defined rules, manages the review queue
// of flagged candidates, and executes approved deletions through
// Radarr and Sonarr.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	radarrAPI "github.com/devopsarr/radarr-go/radarr"
	sonarrAPI "github.com/devopsarr/sonarr-go/sonarr"
	"github.com/plexsweep/plexsweep/internal/cache"
	"github.com/plexsweep/plexsweep/internal/catalog"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/engine/arr"
	radarrImpl "github.com/plexsweep/plexsweep/internal/engine/arr/radarr"
	sonarrImpl "github.com/plexsweep/plexsweep/internal/engine/arr/sonarr"
	"github.com/plexsweep/plexsweep/internal/notify/email"
	"github.com/plexsweep/plexsweep/internal/rules"
	"github.com/plexsweep/plexsweep/internal/scheduler"
)

var (
	// ErrScanRunning indicates a scan for the rule is already in flight.
	ErrScanRunning = errors.New("a scan for this rule is already running")
	// ErrRuleDisabled indicates a scheduled run hit a disabled rule.
	ErrRuleDisabled = errors.New("rule is disabled")
	// ErrNoDeleter indicates no media manager is configured for the
	// candidate's media type.
	ErrNoDeleter = errors.New("no media manager configured for this media type")
)

// Engine is the maintenance rule engine. It owns rule scheduling, scan
// execution, candidate review and deletion.
type Engine struct {
	cfg       *config.Config
	db        database.DB
	catalog   catalog.Catalog
	radarr    arr.Arrer
	sonarr    arr.Arrer
	email     *email.NotificationService
	scheduler *scheduler.Scheduler

	// runningScans guards against concurrent scans per rule within this
	// process; the database state covers restarts and other processes.
	mu           sync.Mutex
	runningScans map[uint]struct{}
}

// New creates a new Engine instance.
func New(cfg *config.Config, db database.DB, cat catalog.Catalog) (*Engine, error) {
	sched, err := scheduler.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	bytesCache := cache.NewBytes(cfg.Cache)

	var radarrClient arr.Arrer
	if cfg.Radarr != nil {
		radarrClient = radarrImpl.New(
			radarrImpl.NewClient(cfg.Radarr),
			cfg.Radarr,
			cfg.DryRun,
			cache.NewPrefixedCache[[]radarrAPI.MovieResource](bytesCache, "radarr:movies:"),
		)
	} else {
		log.Warn("Radarr configuration is missing, movie deletion is disabled")
	}

	var sonarrClient arr.Arrer
	if cfg.Sonarr != nil {
		sonarrClient = sonarrImpl.New(
			sonarrImpl.NewClient(cfg.Sonarr),
			cfg.Sonarr,
			cfg.DryRun,
			cache.NewPrefixedCache[[]sonarrAPI.SeriesResource](bytesCache, "sonarr:series:"),
		)
	} else {
		log.Warn("Sonarr configuration is missing, series deletion is disabled")
	}

	var emailService *email.NotificationService
	if cfg.Email != nil {
		emailService = email.New(cfg.Email)
	}

	engine := &Engine{
		cfg:          cfg,
		db:           db,
		catalog:      cat,
		radarr:       radarrClient,
		sonarr:       sonarrClient,
		email:        emailService,
		scheduler:    sched,
		runningScans: make(map[uint]struct{}),
	}

	if err := engine.setupJobs(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup jobs: %w", err)
	}

	return engine, nil
}

// Run starts the engine and blocks until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.scheduler.Start()
	<-ctx.Done()
	return nil
}

// Close stops the engine and cleans up resources.
func (e *Engine) Close() error {
	return e.scheduler.Stop()
}

// setupJobs schedules all enabled rules that carry a cron expression.
func (e *Engine) setupJobs(ctx context.Context) error {
	scheduled, err := e.db.ListScheduledRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled rules: %w", err)
	}

	for _, rule := range scheduled {
		if err := e.scheduleRule(&rule); err != nil {
			log.Error("Failed to schedule rule", "rule", rule.Name, "error", err)
		}
	}

	log.Info("Scheduled jobs configured", "rules", len(scheduled))
	return nil
}

// scheduleRule registers one scheduler job running the rule's scan.
func (e *Engine) scheduleRule(rule *database.Rule) error {
	ruleID := rule.ID
	return e.scheduler.UpsertRuleJob(rule.ID, rule.Name, rule.Schedule, func(ctx context.Context) error {
		scan, err := e.TriggerScan(ctx, ruleID)
		if err != nil {
			if errors.Is(err, ErrScanRunning) {
				log.Warn("Skipping scheduled run, previous scan still in flight", "rule_id", ruleID)
				return nil
			}
			if errors.Is(err, ErrRuleDisabled) {
				log.Warn("Skipping scheduled run, rule was disabled", "rule_id", ruleID)
				return nil
			}
			return err
		}
		log.Info("Scheduled scan started", "rule_id", ruleID, "scan_id", scan.ID)
		return nil
	})
}

// deleterFor returns the media manager owning a candidate's files.
func (e *Engine) deleterFor(cand *database.Candidate) (arr.Arrer, error) {
	switch cand.MediaType {
	case rules.MediaTypeMovie:
		if e.radarr == nil {
			return nil, ErrNoDeleter
		}
		return e.radarr, nil
	case rules.MediaTypeTV, rules.MediaTypeEpisode:
		if e.sonarr == nil {
			return nil, ErrNoDeleter
		}
		return e.sonarr, nil
	}
	return nil, ErrNoDeleter
}
