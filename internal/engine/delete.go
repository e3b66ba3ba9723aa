package engine

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/engine/arr"
	"github.com/plexsweep/plexsweep/internal/metrics"
	"github.com/plexsweep/plexsweep/internal/rules"
	"golang.org/x/sync/errgroup"
)

// DeletionResult is the outcome of a deletion run. Every requested
// candidate is accounted for exactly once.
type DeletionResult struct {
	Requested int           `json:"requested"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []BulkOutcome `json:"outcomes"`
}

// deletionTarget is a candidate resolved to its media manager id.
type deletionTarget struct {
	cand    *database.Candidate
	deleter arr.Arrer
	arrID   int32
}

// DeleteCandidates deletes the media files of approved candidates
// through their media managers. Candidates already deleted are counted
// as successes without touching the manager; candidates in any other
// state fail without affecting the rest of the batch. Failed deletions
// keep the candidate approved with the error recorded, so the run can
// be retried.
func (e *Engine) DeleteCandidates(ctx context.Context, ids []uint) (*DeletionResult, error) {
	result := &DeletionResult{Requested: len(ids)}

	var targets []*deletionTarget
	for _, id := range ids {
		target, outcome := e.resolveCandidate(ctx, id)
		if outcome != nil {
			result.Outcomes = append(result.Outcomes, *outcome)
			continue
		}
		targets = append(targets, target)
	}

	if e.cfg.DryRun {
		for _, t := range targets {
			log.Infof("Dry run: Would delete %s (candidate %d)", t.cand.Title, t.cand.ID)
			result.Outcomes = append(result.Outcomes, BulkOutcome{CandidateID: t.cand.ID, OK: true})
		}
	} else {
		// Group by manager so movies and series each get one bulk call.
		groups := make(map[arr.Arrer][]*deletionTarget)
		for _, t := range targets {
			groups[t.deleter] = append(groups[t.deleter], t)
		}
		for deleter, group := range groups {
			result.Outcomes = append(result.Outcomes, e.deleteGroup(ctx, deleter, group)...)
		}
	}

	for _, o := range result.Outcomes {
		if o.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	log.Info("Deletion run finished", "requested", result.Requested, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// resolveCandidate loads a candidate and resolves its manager id. It
// returns either a deletion target or a final outcome for candidates
// that need no manager call.
func (e *Engine) resolveCandidate(ctx context.Context, id uint) (*deletionTarget, *BulkOutcome) {
	cand, err := e.db.GetCandidate(ctx, id)
	if err != nil {
		return nil, &BulkOutcome{CandidateID: id, Error: err.Error()}
	}

	// Deleting an already deleted candidate is a no-op success.
	if cand.ReviewStatus == database.ReviewStatusDeleted {
		return nil, &BulkOutcome{CandidateID: id, OK: true}
	}
	if cand.ReviewStatus != database.ReviewStatusApproved {
		return nil, &BulkOutcome{CandidateID: id, Error: database.ErrConflict.Error()}
	}

	deleter, err := e.deleterFor(cand)
	if err != nil {
		e.recordDeletionFailure(ctx, cand, err)
		return nil, &BulkOutcome{CandidateID: id, Error: err.Error()}
	}

	arrID, err := e.resolveArrID(ctx, cand, deleter)
	if err != nil {
		// An item the manager does not track has nothing left to delete.
		if errors.Is(err, arr.ErrNotManaged) {
			log.Warn("Candidate not managed, treating as already deleted", "candidate_id", id, "title", cand.Title)
			return nil, e.finishDeletion(ctx, cand)
		}
		e.recordDeletionFailure(ctx, cand, err)
		return nil, &BulkOutcome{CandidateID: id, Error: err.Error()}
	}

	return &deletionTarget{cand: cand, deleter: deleter, arrID: arrID}, nil
}

// resolveArrID returns the manager's id for a candidate, using the
// stored id when a previous run resolved it already.
func (e *Engine) resolveArrID(ctx context.Context, cand *database.Candidate, deleter arr.Arrer) (int32, error) {
	if cand.RadarrID != nil {
		return *cand.RadarrID, nil
	}
	if cand.SonarrID != nil {
		return *cand.SonarrID, nil
	}

	id, err := deleter.ResolveID(ctx, arr.MediaRef{
		Title:  cand.Title,
		Year:   cand.Year,
		TmdbID: cand.TmdbID,
		TvdbID: cand.TvdbID,
	})
	if err != nil {
		return 0, err
	}

	var radarrID, sonarrID *int32
	if cand.MediaType == rules.MediaTypeMovie {
		radarrID = &id
	} else {
		sonarrID = &id
	}
	if err := e.db.SetCandidateArrIDs(ctx, cand.ID, radarrID, sonarrID); err != nil {
		log.Warn("Failed to store resolved manager id", "candidate_id", cand.ID, "error", err)
	}
	return id, nil
}

// deleteGroup deletes one manager's batch, preferring a single bulk
// call and falling back to per-item deletion when the bulk call fails
// so every candidate gets an individual verdict.
func (e *Engine) deleteGroup(ctx context.Context, deleter arr.Arrer, group []*deletionTarget) []BulkOutcome {
	if len(group) > 1 {
		ids := make([]int32, len(group))
		for i, t := range group {
			ids[i] = t.arrID
		}

		callCtx, cancel := e.deletionContext(ctx)
		err := deleter.BulkDelete(callCtx, ids)
		cancel()
		if err == nil {
			outcomes := make([]BulkOutcome, 0, len(group))
			for _, t := range group {
				outcomes = append(outcomes, *e.finishDeletion(ctx, t.cand))
			}
			return outcomes
		}
		log.Warn("Bulk delete failed, falling back to per-item deletion", "count", len(group), "error", err)
	}

	outcomes := make([]BulkOutcome, len(group))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Scan.DeleteParallelism)
	for i, t := range group {
		g.Go(func() error {
			callCtx, cancel := e.deletionContext(gctx)
			defer cancel()

			if err := t.deleter.DeleteMedia(callCtx, t.arrID, t.cand.Title); err != nil {
				e.recordDeletionFailure(ctx, t.cand, err)
				outcomes[i] = BulkOutcome{CandidateID: t.cand.ID, Error: err.Error()}
				return nil
			}
			outcomes[i] = *e.finishDeletion(ctx, t.cand)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Engine) deletionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(e.cfg.Scan.DeleteTimeoutSeconds) * time.Second
	return context.WithTimeout(ctx, timeout)
}

// finishDeletion marks a candidate deleted and records the metric.
func (e *Engine) finishDeletion(ctx context.Context, cand *database.Candidate) *BulkOutcome {
	if err := e.db.MarkCandidateDeleted(ctx, cand.ID, time.Now()); err != nil {
		// The files are gone; a bookkeeping failure still counts against
		// the run so the operator notices.
		log.Error("Failed to mark candidate deleted", "candidate_id", cand.ID, "error", err)
		metrics.DeletionsTotal.WithLabelValues("failed").Inc()
		return &BulkOutcome{CandidateID: cand.ID, Error: err.Error()}
	}
	metrics.DeletionsTotal.WithLabelValues("success").Inc()
	log.Info("Candidate deleted", "candidate_id", cand.ID, "title", cand.Title)
	return &BulkOutcome{CandidateID: cand.ID, OK: true}
}

// recordDeletionFailure stores the error on the candidate, leaving it
// approved for a retry.
func (e *Engine) recordDeletionFailure(ctx context.Context, cand *database.Candidate, failure error) {
	metrics.DeletionsTotal.WithLabelValues("failed").Inc()
	log.Error("Failed to delete candidate", "candidate_id", cand.ID, "title", cand.Title, "error", failure)
	if err := e.db.SetCandidateDeletionError(ctx, cand.ID, failure.Error()); err != nil {
		log.Warn("Failed to record deletion error", "candidate_id", cand.ID, "error", err)
	}
}
