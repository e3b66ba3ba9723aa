package engine

import (
	"context"
	"testing"
	"time"

	catalogmock "github.com/plexsweep/plexsweep/internal/catalog/mock"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/database"
	dbmock "github.com/plexsweep/plexsweep/internal/database/mock"
	arrmock "github.com/plexsweep/plexsweep/internal/engine/arr/mock"
	"github.com/plexsweep/plexsweep/internal/rules"
	"github.com/plexsweep/plexsweep/internal/scheduler"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// EngineTestSuite covers scan execution, candidate review and deletion
// against in-memory mocks.
type EngineTestSuite struct {
	suite.Suite
	engine  *Engine
	db      *dbmock.MockDB
	catalog *catalogmock.MockCatalog
	radarr  *arrmock.MockArrer
	sonarr  *arrmock.MockArrer
}

func (s *EngineTestSuite) SetupSuite() {
	sched, err := scheduler.New()
	s.Require().NoError(err)

	s.db = dbmock.NewMockDB()
	s.catalog = catalogmock.NewMockCatalog()
	s.radarr = arrmock.NewMockArrer()
	s.sonarr = arrmock.NewMockArrer()

	s.engine = &Engine{
		cfg: &config.Config{
			Scan: config.ScanConfig{
				PageSize:             2,
				Parallelism:          2,
				DeadlineMinutes:      1,
				DeleteParallelism:    2,
				DeleteTimeoutSeconds: 5,
			},
		},
		db:           s.db,
		catalog:      s.catalog,
		radarr:       s.radarr,
		sonarr:       s.sonarr,
		scheduler:    sched,
		runningScans: make(map[uint]struct{}),
	}
}

func (s *EngineTestSuite) TearDownSuite() {
	_ = s.engine.Close()
}

func (s *EngineTestSuite) SetupTest() {
	s.db.Reset()
	s.catalog = catalogmock.NewMockCatalog()
	s.engine.catalog = s.catalog
	s.radarr.Reset()
	s.sonarr.Reset()
	s.engine.cfg.DryRun = false
	s.engine.runningScans = make(map[uint]struct{})
}

// createRule stores a rule flagging never watched movies.
func (s *EngineTestSuite) createRule(action rules.ActionType) *database.Rule {
	rule := &database.Rule{
		Name:      "unwatched movies " + string(action),
		Enabled:   true,
		MediaType: rules.MediaTypeMovie,
		Criteria: rules.Criteria{
			NeverWatched: lo.ToPtr(true),
		},
		ActionType: action,
	}
	s.Require().NoError(s.db.CreateRule(context.Background(), rule))
	return rule
}

// movieItem builds a catalog movie with the given play count.
func movieItem(ratingKey, title string, playCount int) rules.MediaItem {
	added := time.Now().AddDate(0, -6, 0)
	return rules.MediaItem{
		RatingKey: ratingKey,
		MediaType: rules.MediaTypeMovie,
		Title:     title,
		Year:      2020,
		LibraryID: "1",
		PlayCount: playCount,
		AddedAt:   &added,
		FileSize:  lo.ToPtr(int64(4 << 30)),
	}
}

// waitForScan blocks until the scan reaches a terminal state.
func (s *EngineTestSuite) waitForScan(scanID uint) *database.Scan {
	var scan *database.Scan
	s.Require().Eventually(func() bool {
		var err error
		scan, err = s.db.GetScan(context.Background(), scanID)
		if err != nil {
			return false
		}
		return scan.Status == database.ScanStatusCompleted || scan.Status == database.ScanStatusFailed
	}, 5*time.Second, 10*time.Millisecond)
	return scan
}

// approvedCandidate stores a candidate already approved for deletion.
func (s *EngineTestSuite) approvedCandidate(rule *database.Rule, ratingKey, title string) *database.Candidate {
	ctx := context.Background()
	cand := &database.Candidate{
		ScanID:        1,
		RuleID:        rule.ID,
		MediaType:     rule.MediaType,
		PlexRatingKey: ratingKey,
		Title:         title,
		Year:          2020,
		FileSize:      4 << 30,
		FlaggedAt:     time.Now(),
		ReviewStatus:  database.ReviewStatusPending,
	}
	_, err := s.db.UpsertCandidate(ctx, cand)
	s.Require().NoError(err)
	_, err = s.db.TransitionCandidate(ctx, cand.ID, database.ReviewStatusPending, database.ReviewStatusApproved, "admin", "")
	s.Require().NoError(err)
	return cand
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
