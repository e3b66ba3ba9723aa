// Package mock provides an in-memory database.DB implementation for tests.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/plexsweep/plexsweep/internal/database"
)

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	rules      map[uint]*database.Rule
	nextRuleID uint

	scans      map[uint]*database.Scan
	nextScanID uint

	candidates      map[uint]*database.Candidate
	nextCandidateID uint

	// Error simulation
	CreateRuleError      error
	GetRuleError         error
	ListRulesError       error
	CreateScanError      error
	CompleteScanError    error
	UpsertCandidateError error
	ListCandidatesError  error
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	return &MockDB{
		rules:           make(map[uint]*database.Rule),
		nextRuleID:      1,
		scans:           make(map[uint]*database.Scan),
		nextScanID:      1,
		candidates:      make(map[uint]*database.Candidate),
		nextCandidateID: 1,
	}
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = make(map[uint]*database.Rule)
	m.nextRuleID = 1
	m.scans = make(map[uint]*database.Scan)
	m.nextScanID = 1
	m.candidates = make(map[uint]*database.Candidate)
	m.nextCandidateID = 1

	m.CreateRuleError = nil
	m.GetRuleError = nil
	m.ListRulesError = nil
	m.CreateScanError = nil
	m.CompleteScanError = nil
	m.UpsertCandidateError = nil
	m.ListCandidatesError = nil
}

func (m *MockDB) CreateRule(_ context.Context, rule *database.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateRuleError != nil {
		return m.CreateRuleError
	}
	for _, r := range m.rules {
		if r.Name == rule.Name {
			return database.ErrDuplicateName
		}
	}
	rule.ID = m.nextRuleID
	m.nextRuleID++
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *MockDB) UpdateRule(_ context.Context, rule *database.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; !ok {
		return database.ErrNotFound
	}
	for _, r := range m.rules {
		if r.ID != rule.ID && r.Name == rule.Name {
			return database.ErrDuplicateName
		}
	}
	rule.UpdatedAt = time.Now()
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *MockDB) GetRule(_ context.Context, id uint) (*database.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetRuleError != nil {
		return nil, m.GetRuleError
	}
	rule, ok := m.rules[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *rule
	return &cp, nil
}

func (m *MockDB) ListRules(_ context.Context) ([]database.RuleSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListRulesError != nil {
		return nil, m.ListRulesError
	}
	summaries := make([]database.RuleSummary, 0, len(m.rules))
	for _, rule := range m.rules {
		summary := database.RuleSummary{Rule: *rule}
		for _, scan := range m.scans {
			if scan.RuleID != rule.ID {
				continue
			}
			summary.ScanCount++
			if summary.LatestScan == nil || scan.CreatedAt.After(summary.LatestScan.CreatedAt) {
				cp := *scan
				summary.LatestScan = &cp
			}
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func (m *MockDB) ListScheduledRules(_ context.Context) ([]database.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Rule
	for _, rule := range m.rules {
		if rule.Enabled && rule.Schedule != "" {
			out = append(out, *rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockDB) DeleteRule(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return database.ErrNotFound
	}
	for cid, cand := range m.candidates {
		if cand.RuleID == id {
			delete(m.candidates, cid)
		}
	}
	for sid, scan := range m.scans {
		if scan.RuleID == id {
			delete(m.scans, sid)
		}
	}
	delete(m.rules, id)
	return nil
}

func (m *MockDB) SetRuleRunTimes(_ context.Context, id uint, lastRun time.Time, nextRun *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return database.ErrNotFound
	}
	rule.LastRunAt = &lastRun
	rule.NextRunAt = nextRun
	return nil
}

func (m *MockDB) CreateScan(_ context.Context, scan *database.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateScanError != nil {
		return m.CreateScanError
	}
	if scan.Status == "" {
		scan.Status = database.ScanStatusPending
	}
	scan.ID = m.nextScanID
	m.nextScanID++
	scan.CreatedAt = time.Now()
	scan.UpdatedAt = scan.CreatedAt
	cp := *scan
	m.scans[scan.ID] = &cp
	return nil
}

func (m *MockDB) StartScan(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[id]
	if !ok {
		return database.ErrNotFound
	}
	if scan.Status != database.ScanStatusPending {
		return database.ErrConflict
	}
	now := time.Now()
	scan.Status = database.ScanStatusRunning
	scan.StartedAt = &now
	return nil
}

func (m *MockDB) CompleteScan(_ context.Context, id uint, status database.ScanStatus, itemsScanned, itemsFlagged int, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompleteScanError != nil {
		return m.CompleteScanError
	}
	scan, ok := m.scans[id]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now()
	scan.Status = status
	scan.CompletedAt = &now
	scan.ItemsScanned = itemsScanned
	scan.ItemsFlagged = itemsFlagged
	scan.Error = errMsg
	return nil
}

func (m *MockDB) GetScan(_ context.Context, id uint) (*database.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scan, ok := m.scans[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *scan
	return &cp, nil
}

func (m *MockDB) ListScansByRule(_ context.Context, ruleID uint, limit int) ([]database.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Scan
	for _, scan := range m.scans {
		if scan.RuleID == ruleID {
			out = append(out, *scan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockDB) GetRunningScan(_ context.Context, ruleID uint) (*database.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, scan := range m.scans {
		if scan.RuleID == ruleID &&
			(scan.Status == database.ScanStatusPending || scan.Status == database.ScanStatusRunning) {
			cp := *scan
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockDB) UpsertCandidate(_ context.Context, candidate *database.Candidate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertCandidateError != nil {
		return false, m.UpsertCandidateError
	}
	if candidate.ReviewStatus == "" {
		candidate.ReviewStatus = database.ReviewStatusPending
	}
	for _, existing := range m.candidates {
		if existing.RuleID == candidate.RuleID && existing.PlexRatingKey == candidate.PlexRatingKey {
			// A reviewed candidate skips the conditional update, so the
			// insert id never reaches the caller.
			if existing.ReviewStatus != database.ReviewStatusPending {
				return false, nil
			}
			existing.ScanID = candidate.ScanID
			existing.MatchedRules = candidate.MatchedRules
			existing.FlaggedAt = candidate.FlaggedAt
			existing.Title = candidate.Title
			existing.Year = candidate.Year
			existing.PosterURL = candidate.PosterURL
			existing.FilePath = candidate.FilePath
			existing.FileSize = candidate.FileSize
			existing.PlayCount = candidate.PlayCount
			existing.LastWatchedAt = candidate.LastWatchedAt
			existing.AddedAt = candidate.AddedAt
			existing.UpdatedAt = time.Now()
			candidate.ID = existing.ID
			return true, nil
		}
	}
	candidate.ID = m.nextCandidateID
	m.nextCandidateID++
	candidate.CreatedAt = time.Now()
	candidate.UpdatedAt = candidate.CreatedAt
	cp := *candidate
	m.candidates[candidate.ID] = &cp
	return true, nil
}

func (m *MockDB) GetCandidate(_ context.Context, id uint) (*database.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cand, ok := m.candidates[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *cand
	return &cp, nil
}

func (m *MockDB) ListCandidates(_ context.Context, filter database.CandidateFilter) ([]database.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListCandidatesError != nil {
		return nil, m.ListCandidatesError
	}
	var out []database.Candidate
	for _, cand := range m.candidates {
		if filter.RuleID != nil && cand.RuleID != *filter.RuleID {
			continue
		}
		if filter.ScanID != nil && cand.ScanID != *filter.ScanID {
			continue
		}
		if filter.ReviewStatus != nil && cand.ReviewStatus != *filter.ReviewStatus {
			continue
		}
		if filter.MediaType != nil && cand.MediaType != *filter.MediaType {
			continue
		}
		out = append(out, *cand)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FlaggedAt.Equal(out[j].FlaggedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].FlaggedAt.After(out[j].FlaggedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockDB) TransitionCandidate(_ context.Context, id uint, from, to database.ReviewStatus, reviewedBy, note string) (*database.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cand, ok := m.candidates[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if cand.ReviewStatus != from {
		return nil, database.ErrConflict
	}
	now := time.Now()
	cand.ReviewStatus = to
	cand.ReviewedAt = &now
	cand.ReviewedBy = reviewedBy
	cand.ReviewNote = note
	cand.UpdatedAt = now
	cp := *cand
	return &cp, nil
}

func (m *MockDB) MarkCandidateDeleted(_ context.Context, id uint, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cand, ok := m.candidates[id]
	if !ok {
		return database.ErrNotFound
	}
	if cand.ReviewStatus != database.ReviewStatusApproved {
		return database.ErrConflict
	}
	cand.ReviewStatus = database.ReviewStatusDeleted
	cand.DeletedAt = &deletedAt
	cand.DeletionError = nil
	return nil
}

func (m *MockDB) SetCandidateDeletionError(_ context.Context, id uint, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cand, ok := m.candidates[id]
	if !ok {
		return database.ErrNotFound
	}
	cand.DeletionError = &msg
	return nil
}

func (m *MockDB) SetCandidateArrIDs(_ context.Context, id uint, radarrID, sonarrID *int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cand, ok := m.candidates[id]
	if !ok {
		return database.ErrNotFound
	}
	if radarrID != nil {
		cand.RadarrID = radarrID
	}
	if sonarrID != nil {
		cand.SonarrID = sonarrID
	}
	return nil
}

func (m *MockDB) GetStats(_ context.Context) (*database.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &database.Stats{
		CandidatesByStatus: make(map[database.ReviewStatus]int64),
	}
	for _, rule := range m.rules {
		stats.TotalRules++
		if rule.Enabled {
			stats.EnabledRules++
		}
	}
	for _, scan := range m.scans {
		stats.TotalScans++
		if scan.Status == database.ScanStatusFailed {
			stats.FailedScans++
		}
		if scan.Status == database.ScanStatusCompleted && scan.CompletedAt != nil {
			if stats.LastCompletedScanAt == nil || scan.CompletedAt.After(*stats.LastCompletedScanAt) {
				stats.LastCompletedScanAt = scan.CompletedAt
			}
		}
	}
	for _, cand := range m.candidates {
		stats.CandidatesByStatus[cand.ReviewStatus]++
		switch cand.ReviewStatus {
		case database.ReviewStatusPending, database.ReviewStatusApproved:
			stats.BytesFlagged += cand.FileSize
		case database.ReviewStatusDeleted:
			stats.BytesDeleted += cand.FileSize
		}
	}
	return stats, nil
}

func (m *MockDB) Close() error { return nil }

var _ database.DB = (*MockDB)(nil)
