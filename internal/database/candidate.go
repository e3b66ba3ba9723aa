package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertCandidate inserts a candidate or refreshes an existing one for
// the same rule and media item. Only pending candidates are refreshed;
// reviewed candidates keep their recorded state untouched, reported
// as applied == false so callers do not count them as flagged again.
func (c *Client) UpsertCandidate(ctx context.Context, cand *Candidate) (bool, error) {
	if cand.ReviewStatus == "" {
		cand.ReviewStatus = ReviewStatusPending
	}
	result := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "rule_id"}, {Name: "plex_rating_key"}},
		Where:   clause.Where{Exprs: []clause.Expression{clause.Eq{Column: "review_status", Value: ReviewStatusPending}}},
		DoUpdates: clause.AssignmentColumns([]string{
			"scan_id", "matched_rules", "flagged_at",
			"title", "year", "poster_url", "file_path", "file_size",
			"play_count", "last_watched_at", "added_at", "updated_at",
		}),
	}).Create(cand)
	if result.Error != nil {
		log.Error("failed to upsert candidate", "rule_id", cand.RuleID, "rating_key", cand.PlexRatingKey, "error", result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetCandidate retrieves a candidate by id.
func (c *Client) GetCandidate(ctx context.Context, id uint) (*Candidate, error) {
	var cand Candidate
	result := c.db.WithContext(ctx).First(&cand, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to get candidate", "candidate_id", id, "error", result.Error)
		return nil, result.Error
	}
	return &cand, nil
}

// ListCandidates returns candidates matching the filter, newest first.
func (c *Client) ListCandidates(ctx context.Context, filter CandidateFilter) ([]Candidate, error) {
	tx := c.db.WithContext(ctx).Model(&Candidate{})
	if filter.RuleID != nil {
		tx = tx.Where("rule_id = ?", *filter.RuleID)
	}
	if filter.ScanID != nil {
		tx = tx.Where("scan_id = ?", *filter.ScanID)
	}
	if filter.ReviewStatus != nil {
		tx = tx.Where("review_status = ?", *filter.ReviewStatus)
	}
	if filter.MediaType != nil {
		tx = tx.Where("media_type = ?", *filter.MediaType)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}

	var cands []Candidate
	if result := tx.Order("flagged_at DESC, id DESC").Find(&cands); result.Error != nil {
		log.Error("failed to list candidates", "error", result.Error)
		return nil, result.Error
	}
	return cands, nil
}

// TransitionCandidate moves a candidate from one review status to
// another. The WHERE guard makes concurrent reviews race safely: the
// first transition wins and the loser gets ErrConflict.
func (c *Client) TransitionCandidate(ctx context.Context, id uint, from, to ReviewStatus, reviewedBy, note string) (*Candidate, error) {
	now := time.Now()
	result := c.db.WithContext(ctx).Model(&Candidate{}).
		Where("id = ? AND review_status = ?", id, from).
		Updates(map[string]any{
			"review_status": to,
			"reviewed_at":   now,
			"reviewed_by":   reviewedBy,
			"review_note":   note,
		})
	if result.Error != nil {
		log.Error("failed to transition candidate", "candidate_id", id, "from", from, "to", to, "error", result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing candidate from one in the wrong state.
		if _, err := c.GetCandidate(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return c.GetCandidate(ctx, id)
}

// MarkCandidateDeleted records a successful upstream deletion. Only
// approved candidates can move to deleted.
func (c *Client) MarkCandidateDeleted(ctx context.Context, id uint, deletedAt time.Time) error {
	result := c.db.WithContext(ctx).Model(&Candidate{}).
		Where("id = ? AND review_status = ?", id, ReviewStatusApproved).
		Updates(map[string]any{
			"review_status":  ReviewStatusDeleted,
			"deleted_at":     deletedAt,
			"deletion_error": nil,
		})
	if result.Error != nil {
		log.Error("failed to mark candidate deleted", "candidate_id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := c.GetCandidate(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// SetCandidateDeletionError records a failed deletion attempt. The
// candidate stays approved so the deletion can be retried.
func (c *Client) SetCandidateDeletionError(ctx context.Context, id uint, msg string) error {
	result := c.db.WithContext(ctx).Model(&Candidate{}).
		Where("id = ?", id).
		Update("deletion_error", msg)
	if result.Error != nil {
		log.Error("failed to set candidate deletion error", "candidate_id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCandidateArrIDs stores the resolved Radarr or Sonarr ids so later
// deletion runs skip the lookup.
func (c *Client) SetCandidateArrIDs(ctx context.Context, id uint, radarrID, sonarrID *int32) error {
	updates := map[string]any{}
	if radarrID != nil {
		updates["radarr_id"] = *radarrID
	}
	if sonarrID != nil {
		updates["sonarr_id"] = *sonarrID
	}
	if len(updates) == 0 {
		return nil
	}
	result := c.db.WithContext(ctx).Model(&Candidate{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		log.Error("failed to set candidate arr ids", "candidate_id", id, "error", result.Error)
	}
	return result.Error
}
