package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/metrics"
	"github.com/plexsweep/plexsweep/internal/notify/email"
	"github.com/plexsweep/plexsweep/internal/rules"
	"github.com/plexsweep/plexsweep/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// TriggerScan starts a scan for a rule and returns its record
// immediately; evaluation continues in the background. A rule can have
// at most one scan in flight.
func (e *Engine) TriggerScan(ctx context.Context, ruleID uint) (*database.Scan, error) {
	rule, err := e.db.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if !rule.Enabled {
		return nil, ErrRuleDisabled
	}

	e.mu.Lock()
	if _, running := e.runningScans[ruleID]; running {
		e.mu.Unlock()
		return nil, ErrScanRunning
	}
	// The database check covers scans left behind by other processes or
	// a previous crash that are still within their deadline.
	if _, err := e.db.GetRunningScan(ctx, ruleID); err == nil {
		e.mu.Unlock()
		return nil, ErrScanRunning
	} else if !errors.Is(err, database.ErrNotFound) {
		e.mu.Unlock()
		return nil, err
	}
	e.runningScans[ruleID] = struct{}{}
	e.mu.Unlock()

	scan := &database.Scan{
		RuleID: ruleID,
		Status: database.ScanStatusPending,
	}
	if err := e.db.CreateScan(ctx, scan); err != nil {
		e.releaseScan(ruleID)
		return nil, err
	}

	go e.runScan(rule, scan.ID)

	log.Info("Scan triggered", "rule", rule.Name, "scan_id", scan.ID)
	return scan, nil
}

func (e *Engine) releaseScan(ruleID uint) {
	e.mu.Lock()
	delete(e.runningScans, ruleID)
	e.mu.Unlock()
}

// scanResult accumulates per-scan state shared by the evaluation
// workers.
type scanResult struct {
	mu           sync.Mutex
	itemsScanned int
	itemsFlagged int
	candidateIDs []uint
	emailLines   []email.CandidateLine
	bytesFlagged int64
	upsertErrs   int
}

// runScan executes one scan to completion. It runs detached from the
// triggering request, bounded only by the configured deadline.
func (e *Engine) runScan(rule *database.Rule, scanID uint) {
	deadline := time.Duration(e.cfg.Scan.DeadlineMinutes) * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	e.executeScan(ctx, rule, scanID)
}

// executeScan evaluates the rule within ctx's deadline. The terminal
// bookkeeping writes run on their own context: an expired deadline must
// mark the scan failed, never leave its row running and the rule
// blocked.
func (e *Engine) executeScan(ctx context.Context, rule *database.Rule, scanID uint) {
	defer e.releaseScan(rule.ID)

	start := time.Now()
	if err := e.db.StartScan(ctx, scanID); err != nil {
		log.Error("Failed to start scan", "scan_id", scanID, "error", err)
		return
	}

	res := &scanResult{}
	err := e.evaluateRule(ctx, rule, scanID, res)

	duration := time.Since(start)
	metrics.ScanDuration.Observe(duration.Seconds())

	status := database.ScanStatusCompleted
	var errMsg *string
	if err != nil {
		status = database.ScanStatusFailed
		msg := err.Error()
		errMsg = &msg
		log.Error("Scan failed", "rule", rule.Name, "scan_id", scanID, "error", err)
	}
	metrics.ScansTotal.WithLabelValues(string(status)).Inc()

	finCtx := context.WithoutCancel(ctx)
	writeCtx, cancelWrite := context.WithTimeout(finCtx, 30*time.Second)
	defer cancelWrite()

	if err := e.db.CompleteScan(writeCtx, scanID, status, res.itemsScanned, res.itemsFlagged, errMsg); err != nil {
		log.Error("Failed to complete scan", "scan_id", scanID, "error", err)
	}

	nextRun := (*time.Time)(nil)
	if rule.Schedule != "" {
		nextRun = scheduler.NextOccurrence(rule.Schedule, time.Now())
	}
	if err := e.db.SetRuleRunTimes(writeCtx, rule.ID, start, nextRun); err != nil {
		log.Warn("Failed to record rule run times", "rule", rule.Name, "error", err)
	}

	log.Info("Scan finished",
		"rule", rule.Name,
		"scan_id", scanID,
		"status", status,
		"scanned", res.itemsScanned,
		"flagged", res.itemsFlagged,
		"duration", duration)

	if status == database.ScanStatusCompleted && rule.ActionType == rules.ActionAutoDelete {
		e.autoDelete(finCtx, rule, res.candidateIDs)
	}

	e.sendScanSummary(rule, start, duration, res)
}

// evaluateRule pages through the catalog and evaluates every item
// against the rule's compiled criteria.
func (e *Engine) evaluateRule(ctx context.Context, rule *database.Rule, scanID uint, res *scanResult) error {
	compiled, err := rule.Criteria.Compile()
	if err != nil {
		return fmt.Errorf("invalid criteria: %w", err)
	}

	// The evaluation clock is fixed once so every item of the scan sees
	// the same cutoffs.
	now := time.Now()
	pageSize := e.cfg.Scan.PageSize

	for offset := 0; ; offset += pageSize {
		page, err := e.catalog.ListMediaItems(ctx, rule.MediaType, offset, pageSize)
		if err != nil {
			return fmt.Errorf("failed to list catalog items at offset %d: %w", offset, err)
		}
		if len(page.Items) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Scan.Parallelism)
		for i := range page.Items {
			item := page.Items[i]
			g.Go(func() error {
				e.evaluateItem(gctx, rule, scanID, compiled, &item, now, res)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	metrics.ItemsScanned.Add(float64(res.itemsScanned))
	metrics.CandidatesFlagged.Add(float64(res.itemsFlagged))

	if res.upsertErrs > 0 {
		return fmt.Errorf("failed to store %d of %d flagged candidates", res.upsertErrs, res.itemsFlagged+res.upsertErrs)
	}
	return nil
}

// evaluateItem evaluates one media item. A panic while evaluating a
// single item skips that item instead of killing the scan.
func (e *Engine) evaluateItem(ctx context.Context, rule *database.Rule, scanID uint, compiled *rules.Compiled, item *rules.MediaItem, now time.Time, res *scanResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while evaluating item, skipping", "rating_key", item.RatingKey, "title", item.Title, "panic", r)
		}
	}()

	result := compiled.Evaluate(item, now)

	res.mu.Lock()
	res.itemsScanned++
	res.mu.Unlock()

	if !result.Matches {
		return
	}

	cand := e.buildCandidate(rule, scanID, item, result)
	applied, err := e.db.UpsertCandidate(ctx, cand)
	if err != nil {
		log.Error("Failed to store candidate", "rule", rule.Name, "title", item.Title, "error", err)
		res.mu.Lock()
		res.upsertErrs++
		res.mu.Unlock()
		return
	}
	if !applied {
		// The candidate was already reviewed, the item is not re-flagged.
		log.Debug("Skipping reviewed candidate", "rule", rule.Name, "title", item.Title)
		return
	}

	res.mu.Lock()
	res.itemsFlagged++
	res.candidateIDs = append(res.candidateIDs, cand.ID)
	res.bytesFlagged += cand.FileSize
	res.emailLines = append(res.emailLines, email.CandidateLine{
		Title:       cand.Title,
		Year:        cand.Year,
		Size:        email.FormatSize(cand.FileSize),
		LastWatched: email.FormatLastWatched(cand.LastWatchedAt),
	})
	res.mu.Unlock()
}

// buildCandidate turns a matched media item into a candidate row.
func (e *Engine) buildCandidate(rule *database.Rule, scanID uint, item *rules.MediaItem, result rules.Result) *database.Candidate {
	var fileSize int64
	if item.FileSize != nil {
		fileSize = *item.FileSize
	}

	passed := 0
	for _, c := range result.Conditions {
		if c.Passed {
			passed++
		}
	}

	return &database.Candidate{
		ScanID:        scanID,
		RuleID:        rule.ID,
		MediaType:     item.MediaType,
		PlexRatingKey: item.RatingKey,
		TmdbID:        item.TmdbID,
		TvdbID:        item.TvdbID,
		Title:         item.Title,
		Year:          item.Year,
		PosterURL:     item.PosterURL,
		FilePath:      item.FilePath,
		FileSize:      fileSize,
		PlayCount:     item.PlayCount,
		LastWatchedAt: item.LastWatchedAt,
		AddedAt:       item.AddedAt,
		MatchedRules: []rules.Match{{
			RuleName:   rule.Name,
			Summary:    fmt.Sprintf("matched %d of %d conditions (%s)", passed, len(result.Conditions), rule.Criteria.Operator),
			Conditions: result.Conditions,
		}},
		FlaggedAt:    time.Now(),
		ReviewStatus: database.ReviewStatusPending,
	}
}

// autoDelete approves and deletes the candidates flagged by an
// auto-delete rule.
func (e *Engine) autoDelete(ctx context.Context, rule *database.Rule, candidateIDs []uint) {
	if len(candidateIDs) == 0 {
		return
	}

	var approved []uint
	for _, id := range candidateIDs {
		if _, err := e.db.TransitionCandidate(ctx, id, database.ReviewStatusPending, database.ReviewStatusApproved, "auto", "auto-approved by rule action"); err != nil {
			// Already reviewed candidates keep their state.
			if !errors.Is(err, database.ErrConflict) {
				log.Error("Failed to auto-approve candidate", "candidate_id", id, "error", err)
			}
			continue
		}
		approved = append(approved, id)
	}

	if len(approved) == 0 {
		return
	}

	log.Info("Auto-deleting candidates", "rule", rule.Name, "count", len(approved))
	result, err := e.DeleteCandidates(ctx, approved)
	if err != nil {
		log.Error("Auto-delete run failed", "rule", rule.Name, "error", err)
		return
	}
	log.Info("Auto-delete finished", "rule", rule.Name, "succeeded", result.Succeeded, "failed", result.Failed)
}

// sendScanSummary emails the scan outcome to the configured recipients.
func (e *Engine) sendScanSummary(rule *database.Rule, start time.Time, duration time.Duration, res *scanResult) {
	if e.email == nil {
		return
	}

	summary := email.ScanSummary{
		RuleName:     rule.Name,
		Action:       string(rule.ActionType),
		StartedAt:    start,
		Duration:     duration.Round(time.Second),
		ItemsScanned: res.itemsScanned,
		ItemsFlagged: res.itemsFlagged,
		TotalSize:    email.FormatSize(res.bytesFlagged),
		Candidates:   res.emailLines,
		DryRun:       e.cfg.DryRun,
	}
	if err := e.email.SendScanSummary(summary); err != nil {
		log.Warn("Failed to send scan summary", "rule", rule.Name, "error", err)
	}
}

// GetScan retrieves a scan by id.
func (e *Engine) GetScan(ctx context.Context, id uint) (*database.Scan, error) {
	return e.db.GetScan(ctx, id)
}

// ListScansByRule lists the most recent scans of a rule.
func (e *Engine) ListScansByRule(ctx context.Context, ruleID uint, limit int) ([]database.Scan, error) {
	return e.db.ListScansByRule(ctx, ruleID, limit)
}
