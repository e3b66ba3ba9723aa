package engine

import (
	"context"
	"time"

	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/rules"
)

func (s *EngineTestSuite) pendingCandidate(rule *database.Rule, ratingKey, title string) *database.Candidate {
	cand := &database.Candidate{
		ScanID:        1,
		RuleID:        rule.ID,
		MediaType:     rule.MediaType,
		PlexRatingKey: ratingKey,
		Title:         title,
		Year:          2020,
		FlaggedAt:     time.Now(),
		ReviewStatus:  database.ReviewStatusPending,
	}
	_, err := s.db.UpsertCandidate(context.Background(), cand)
	s.Require().NoError(err)
	return cand
}

func (s *EngineTestSuite) TestApproveCandidate() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.pendingCandidate(rule, "501", "Reviewed Movie")

	approved, err := s.engine.ApproveCandidate(context.Background(), cand.ID, "admin", "nobody watches this")
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusApproved, approved.ReviewStatus)
	s.Equal("admin", approved.ReviewedBy)
	s.Equal("nobody watches this", approved.ReviewNote)
	s.NotNil(approved.ReviewedAt)
}

func (s *EngineTestSuite) TestRejectCandidate() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.pendingCandidate(rule, "502", "Kept Movie")

	rejected, err := s.engine.RejectCandidate(context.Background(), cand.ID, "admin", "keep it")
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusRejected, rejected.ReviewStatus)
}

func (s *EngineTestSuite) TestReviewUnknownCandidate() {
	_, err := s.engine.ApproveCandidate(context.Background(), 999, "admin", "")
	s.ErrorIs(err, database.ErrNotFound)
}

func (s *EngineTestSuite) TestConcurrentReviewersGetOneWinner() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.pendingCandidate(rule, "503", "Contested Movie")

	_, err := s.engine.ApproveCandidate(context.Background(), cand.ID, "alice", "")
	s.Require().NoError(err)

	// The second reviewer loses with a conflict, not a silent overwrite.
	_, err = s.engine.RejectCandidate(context.Background(), cand.ID, "bob", "")
	s.ErrorIs(err, database.ErrConflict)

	final, err := s.db.GetCandidate(context.Background(), cand.ID)
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusApproved, final.ReviewStatus)
	s.Equal("alice", final.ReviewedBy)
}

func (s *EngineTestSuite) TestRejectedCandidateNotReflagged() {
	rule := s.createRule(rules.ActionFlagForReview)
	s.catalog.SetItems(rules.MediaTypeMovie, []rules.MediaItem{
		movieItem("504", "Rejected Movie", 0),
	})

	scan, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.Require().NoError(err)
	s.waitForScan(scan.ID)

	cands, err := s.db.ListCandidates(context.Background(), database.CandidateFilter{RuleID: &rule.ID})
	s.Require().NoError(err)
	s.Require().Len(cands, 1)

	_, err = s.engine.RejectCandidate(context.Background(), cands[0].ID, "admin", "keep")
	s.Require().NoError(err)

	scan2, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.Require().NoError(err)
	done := s.waitForScan(scan2.ID)

	// The matching item is still scanned but no longer counts as flagged.
	s.Equal(1, done.ItemsScanned)
	s.Equal(0, done.ItemsFlagged)

	cands, err = s.db.ListCandidates(context.Background(), database.CandidateFilter{RuleID: &rule.ID})
	s.Require().NoError(err)
	s.Require().Len(cands, 1)
	s.Equal(database.ReviewStatusRejected, cands[0].ReviewStatus)
}

func (s *EngineTestSuite) TestApproveUnderAutoDeleteRuleDeletes() {
	rule := s.createRule(rules.ActionAutoDelete)
	cand := s.pendingCandidate(rule, "507", "Hand Approved Movie")
	s.radarr.SetID("Hand Approved Movie", 66)

	approved, err := s.engine.ApproveCandidate(context.Background(), cand.ID, "admin", "")
	s.Require().NoError(err)

	// The manual approval runs the deletion executor right away.
	s.Equal(database.ReviewStatusDeleted, approved.ReviewStatus)
	s.Equal([]int32{66}, s.radarr.Deleted())
}

func (s *EngineTestSuite) TestBulkApproveUnderAutoDeleteRuleDeletes() {
	rule := s.createRule(rules.ActionAutoDelete)
	a := s.pendingCandidate(rule, "508", "Batch Doomed A")
	b := s.pendingCandidate(rule, "509", "Batch Doomed B")
	s.radarr.SetID("Batch Doomed A", 71)
	s.radarr.SetID("Batch Doomed B", 72)

	outcomes := s.engine.BulkReview(context.Background(), []uint{a.ID, b.ID}, true, "admin", "")
	s.Require().Len(outcomes, 2)
	s.True(outcomes[0].OK)
	s.True(outcomes[1].OK)

	s.ElementsMatch([]int32{71, 72}, s.radarr.Deleted())
	for _, id := range []uint{a.ID, b.ID} {
		cand, err := s.db.GetCandidate(context.Background(), id)
		s.Require().NoError(err)
		s.Equal(database.ReviewStatusDeleted, cand.ReviewStatus)
	}
}

func (s *EngineTestSuite) TestBulkReviewMixedStates() {
	rule := s.createRule(rules.ActionFlagForReview)
	pending := s.pendingCandidate(rule, "505", "Pending Movie")
	approved := s.approvedCandidate(rule, "506", "Approved Movie")

	outcomes := s.engine.BulkReview(context.Background(), []uint{pending.ID, approved.ID, 999}, true, "admin", "")
	s.Require().Len(outcomes, 3)

	s.True(outcomes[0].OK)
	s.False(outcomes[1].OK) // already approved
	s.False(outcomes[2].OK) // does not exist
}
