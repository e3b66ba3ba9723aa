package engine

import (
	"context"
	"errors"
	"time"

	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/rules"
	"github.com/samber/lo"
)

func (s *EngineTestSuite) TestTriggerScanUnknownRule() {
	_, err := s.engine.TriggerScan(context.Background(), 999)
	s.ErrorIs(err, database.ErrNotFound)
}

func (s *EngineTestSuite) TestTriggerScanDisabledRule() {
	rule := s.createRule(rules.ActionFlagForReview)
	rule.Enabled = false
	s.Require().NoError(s.db.UpdateRule(context.Background(), rule))

	_, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.ErrorIs(err, ErrRuleDisabled)
}

func (s *EngineTestSuite) TestTriggerScanConflictsWithRunningScan() {
	rule := s.createRule(rules.ActionFlagForReview)

	// A pending scan left by another process blocks new triggers.
	scan := &database.Scan{RuleID: rule.ID, Status: database.ScanStatusPending}
	s.Require().NoError(s.db.CreateScan(context.Background(), scan))

	_, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.ErrorIs(err, ErrScanRunning)
}

func (s *EngineTestSuite) TestScanFlagsMatchingItems() {
	rule := s.createRule(rules.ActionFlagForReview)
	s.catalog.SetItems(rules.MediaTypeMovie, []rules.MediaItem{
		movieItem("101", "Never Watched A", 0),
		movieItem("102", "Watched", 3),
		movieItem("103", "Never Watched B", 0),
		movieItem("104", "Also Watched", 1),
		movieItem("105", "Never Watched C", 0),
	})

	scan, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.Require().NoError(err)

	done := s.waitForScan(scan.ID)
	s.Equal(database.ScanStatusCompleted, done.Status)
	s.Equal(5, done.ItemsScanned)
	s.Equal(3, done.ItemsFlagged)
	s.NotNil(done.StartedAt)
	s.NotNil(done.CompletedAt)

	cands, err := s.db.ListCandidates(context.Background(), database.CandidateFilter{RuleID: &rule.ID})
	s.Require().NoError(err)
	s.Len(cands, 3)
	for _, cand := range cands {
		s.Equal(database.ReviewStatusPending, cand.ReviewStatus)
		s.Equal(rule.ID, cand.RuleID)
		s.Require().Len(cand.MatchedRules, 1)
		s.Equal(rule.Name, cand.MatchedRules[0].RuleName)
	}
}

func (s *EngineTestSuite) TestScanIsIdempotentAcrossRuns() {
	rule := s.createRule(rules.ActionFlagForReview)
	s.catalog.SetItems(rules.MediaTypeMovie, []rules.MediaItem{
		movieItem("201", "Stale Movie", 0),
	})

	for range 2 {
		scan, err := s.engine.TriggerScan(context.Background(), rule.ID)
		s.Require().NoError(err)
		s.waitForScan(scan.ID)
	}

	// The same item flagged twice stays a single pending candidate.
	cands, err := s.db.ListCandidates(context.Background(), database.CandidateFilter{RuleID: &rule.ID})
	s.Require().NoError(err)
	s.Len(cands, 1)
}

func (s *EngineTestSuite) TestScanFailsWhenCatalogUnavailable() {
	rule := s.createRule(rules.ActionFlagForReview)
	s.catalog.SetItems(rules.MediaTypeMovie, []rules.MediaItem{
		movieItem("301", "First Page", 0),
		movieItem("302", "First Page Too", 0),
		movieItem("303", "Unreachable", 0),
	})
	s.catalog.Err = errors.New("tautulli is down")
	s.catalog.FailAtOffset = 2

	scan, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.Require().NoError(err)

	done := s.waitForScan(scan.ID)
	s.Equal(database.ScanStatusFailed, done.Status)
	s.Require().NotNil(done.Error)
	s.Contains(*done.Error, "tautulli is down")
}

func (s *EngineTestSuite) TestScanRecordsRuleRunTimes() {
	rule := s.createRule(rules.ActionFlagForReview)

	scan, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.Require().NoError(err)
	s.waitForScan(scan.ID)

	s.Require().Eventually(func() bool {
		updated, err := s.db.GetRule(context.Background(), rule.ID)
		return err == nil && updated.LastRunAt != nil
	}, time.Second, 10*time.Millisecond)
}

func (s *EngineTestSuite) TestAutoDeleteRuleDeletesFlaggedItems() {
	rule := s.createRule(rules.ActionAutoDelete)
	s.catalog.SetItems(rules.MediaTypeMovie, []rules.MediaItem{
		movieItem("401", "Doomed Movie", 0),
		movieItem("402", "Safe Movie", 5),
	})
	s.radarr.SetID("Doomed Movie", 42)

	scan, err := s.engine.TriggerScan(context.Background(), rule.ID)
	s.Require().NoError(err)
	s.waitForScan(scan.ID)

	s.Require().Eventually(func() bool {
		cands, err := s.db.ListCandidates(context.Background(), database.CandidateFilter{RuleID: &rule.ID})
		if err != nil || len(cands) != 1 {
			return false
		}
		return cands[0].ReviewStatus == database.ReviewStatusDeleted
	}, 5*time.Second, 10*time.Millisecond)

	cands, err := s.db.ListCandidates(context.Background(), database.CandidateFilter{RuleID: &rule.ID})
	s.Require().NoError(err)
	s.Equal("auto", cands[0].ReviewedBy)
	s.Equal([]int32{42}, s.radarr.Deleted())
}

func (s *EngineTestSuite) TestRuleValidation() {
	ctx := context.Background()

	err := s.engine.CreateRule(ctx, &database.Rule{
		Name:       "bad media type",
		MediaType:  "album",
		ActionType: rules.ActionFlagForReview,
	})
	s.Error(err)

	err = s.engine.CreateRule(ctx, &database.Rule{
		Name:       "bad schedule",
		MediaType:  rules.MediaTypeMovie,
		ActionType: rules.ActionFlagForReview,
		Schedule:   "every tuesday",
	})
	s.Error(err)

	err = s.engine.CreateRule(ctx, &database.Rule{
		Name:       "bad criteria",
		MediaType:  rules.MediaTypeMovie,
		ActionType: rules.ActionFlagForReview,
		Criteria: rules.Criteria{
			MaxQuality: lo.ToPtr("8K"),
		},
	})
	s.ErrorIs(err, rules.ErrInvalidCriteria)
}
