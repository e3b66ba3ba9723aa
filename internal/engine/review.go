package engine

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/rules"
)

// BulkOutcome is the per-candidate result of a bulk review or deletion.
type BulkOutcome struct {
	CandidateID uint   `json:"candidateId"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
}

// ApproveCandidate moves a pending candidate to approved. When the
// owning rule auto-deletes, the approval hands the candidate straight
// to the deletion executor.
func (e *Engine) ApproveCandidate(ctx context.Context, id uint, reviewedBy, note string) (*database.Candidate, error) {
	cand, err := e.db.TransitionCandidate(ctx, id, database.ReviewStatusPending, database.ReviewStatusApproved, reviewedBy, note)
	if err != nil {
		return nil, err
	}
	log.Info("Candidate approved", "candidate_id", id, "title", cand.Title, "reviewed_by", reviewedBy)

	if e.ruleAutoDeletes(ctx, cand.RuleID) {
		if _, err := e.DeleteCandidates(ctx, []uint{cand.ID}); err != nil {
			log.Error("Failed to delete approved candidate", "candidate_id", cand.ID, "error", err)
		} else if refreshed, err := e.db.GetCandidate(ctx, cand.ID); err == nil {
			cand = refreshed
		}
	}
	return cand, nil
}

// ruleAutoDeletes reports whether the candidate's owning rule deletes
// approved candidates immediately.
func (e *Engine) ruleAutoDeletes(ctx context.Context, ruleID uint) bool {
	rule, err := e.db.GetRule(ctx, ruleID)
	if err != nil {
		log.Warn("Failed to load rule of approved candidate", "rule_id", ruleID, "error", err)
		return false
	}
	return rule.ActionType == rules.ActionAutoDelete
}

// RejectCandidate moves a pending candidate to rejected. A rejected
// candidate is never deleted and will not be re-flagged by later scans.
func (e *Engine) RejectCandidate(ctx context.Context, id uint, reviewedBy, note string) (*database.Candidate, error) {
	cand, err := e.db.TransitionCandidate(ctx, id, database.ReviewStatusPending, database.ReviewStatusRejected, reviewedBy, note)
	if err != nil {
		return nil, err
	}
	log.Info("Candidate rejected", "candidate_id", id, "title", cand.Title, "reviewed_by", reviewedBy)
	return cand, nil
}

// BulkReview applies one review decision to many candidates. Each
// candidate succeeds or fails on its own; a candidate in the wrong
// state never blocks the rest of the batch.
func (e *Engine) BulkReview(ctx context.Context, ids []uint, approve bool, reviewedBy, note string) []BulkOutcome {
	to := database.ReviewStatusRejected
	if approve {
		to = database.ReviewStatusApproved
	}

	outcomes := make([]BulkOutcome, 0, len(ids))
	var autoDelete []uint
	for _, id := range ids {
		cand, err := e.db.TransitionCandidate(ctx, id, database.ReviewStatusPending, to, reviewedBy, note)
		outcome := BulkOutcome{CandidateID: id, OK: err == nil}
		if err != nil {
			outcome.Error = err.Error()
		} else if approve && e.ruleAutoDeletes(ctx, cand.RuleID) {
			autoDelete = append(autoDelete, cand.ID)
		}
		outcomes = append(outcomes, outcome)
	}

	if len(autoDelete) > 0 {
		if _, err := e.DeleteCandidates(ctx, autoDelete); err != nil {
			log.Error("Failed to delete approved candidates", "count", len(autoDelete), "error", err)
		}
	}

	log.Info("Bulk review finished", "count", len(ids), "to", to, "reviewed_by", reviewedBy)
	return outcomes
}

// GetCandidate retrieves a candidate by id.
func (e *Engine) GetCandidate(ctx context.Context, id uint) (*database.Candidate, error) {
	return e.db.GetCandidate(ctx, id)
}

// ListCandidates lists candidates matching the filter.
func (e *Engine) ListCandidates(ctx context.Context, filter database.CandidateFilter) ([]database.Candidate, error) {
	return e.db.ListCandidates(ctx, filter)
}

// GetStats aggregates engine activity counters.
func (e *Engine) GetStats(ctx context.Context) (*database.Stats, error) {
	return e.db.GetStats(ctx)
}
