package engine

import (
	"context"
	"errors"

	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/rules"
)

func (s *EngineTestSuite) TestDeleteCandidatesPerItemAccounting() {
	rule := s.createRule(rules.ActionFlagForReview)
	good1 := s.approvedCandidate(rule, "601", "Movie One")
	bad := s.approvedCandidate(rule, "602", "Movie Two")
	good2 := s.approvedCandidate(rule, "603", "Movie Three")

	s.radarr.SetID("Movie One", 1)
	s.radarr.SetID("Movie Two", 2)
	s.radarr.SetID("Movie Three", 3)
	s.radarr.DeleteErrors[2] = errors.New("radarr exploded")

	result, err := s.engine.DeleteCandidates(context.Background(), []uint{good1.ID, bad.ID, good2.ID})
	s.Require().NoError(err)

	// The scripted failure forces the bulk call down the per-item path,
	// so the two healthy candidates still succeed.
	s.Equal(3, result.Requested)
	s.Equal(2, result.Succeeded)
	s.Equal(1, result.Failed)

	one, err := s.db.GetCandidate(context.Background(), good1.ID)
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusDeleted, one.ReviewStatus)
	s.NotNil(one.DeletedAt)

	// The failed candidate stays approved with the error recorded.
	two, err := s.db.GetCandidate(context.Background(), bad.ID)
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusApproved, two.ReviewStatus)
	s.Require().NotNil(two.DeletionError)
	s.Contains(*two.DeletionError, "radarr exploded")
}

func (s *EngineTestSuite) TestDeleteCandidatesUsesBulkEndpoint() {
	rule := s.createRule(rules.ActionFlagForReview)
	c1 := s.approvedCandidate(rule, "611", "Bulk One")
	c2 := s.approvedCandidate(rule, "612", "Bulk Two")
	s.radarr.SetID("Bulk One", 11)
	s.radarr.SetID("Bulk Two", 12)

	result, err := s.engine.DeleteCandidates(context.Background(), []uint{c1.ID, c2.ID})
	s.Require().NoError(err)
	s.Equal(2, result.Succeeded)
	s.Require().Len(s.radarr.BulkDeleted(), 1)
	s.ElementsMatch([]int32{11, 12}, s.radarr.BulkDeleted()[0])
}

func (s *EngineTestSuite) TestDeleteIsIdempotent() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.approvedCandidate(rule, "621", "Once Movie")
	s.radarr.SetID("Once Movie", 21)

	first, err := s.engine.DeleteCandidates(context.Background(), []uint{cand.ID})
	s.Require().NoError(err)
	s.Equal(1, first.Succeeded)

	// A second run is a success without another manager call.
	second, err := s.engine.DeleteCandidates(context.Background(), []uint{cand.ID})
	s.Require().NoError(err)
	s.Equal(1, second.Succeeded)
	s.Equal(0, second.Failed)
	s.Len(s.radarr.Deleted(), 1)
}

func (s *EngineTestSuite) TestDeletePendingCandidateFails() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.pendingCandidate(rule, "631", "Unreviewed Movie")

	result, err := s.engine.DeleteCandidates(context.Background(), []uint{cand.ID})
	s.Require().NoError(err)
	s.Equal(1, result.Failed)
	s.Empty(s.radarr.Deleted())
}

func (s *EngineTestSuite) TestDeleteUnmanagedCandidateCountsAsGone() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.approvedCandidate(rule, "641", "Vanished Movie")
	// No SetID: the mock reports the movie as not managed.

	result, err := s.engine.DeleteCandidates(context.Background(), []uint{cand.ID})
	s.Require().NoError(err)
	s.Equal(1, result.Succeeded)

	final, err := s.db.GetCandidate(context.Background(), cand.ID)
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusDeleted, final.ReviewStatus)
}

func (s *EngineTestSuite) TestDeleteDryRunLeavesCandidatesUntouched() {
	rule := s.createRule(rules.ActionFlagForReview)
	cand := s.approvedCandidate(rule, "651", "Spared Movie")
	s.radarr.SetID("Spared Movie", 51)
	s.engine.cfg.DryRun = true

	result, err := s.engine.DeleteCandidates(context.Background(), []uint{cand.ID})
	s.Require().NoError(err)
	s.Equal(1, result.Succeeded)

	final, err := s.db.GetCandidate(context.Background(), cand.ID)
	s.Require().NoError(err)
	s.Equal(database.ReviewStatusApproved, final.ReviewStatus)
	s.Empty(s.radarr.Deleted())
}
