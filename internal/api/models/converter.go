package models

import (
	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/samber/lo"
)

// ToRuleResponse converts a rule summary to its API shape.
func ToRuleResponse(summary database.RuleSummary) RuleResponse {
	resp := RuleResponse{
		ID:          summary.ID,
		Name:        summary.Name,
		Description: summary.Description,
		Enabled:     summary.Enabled,
		MediaType:   summary.MediaType,
		Criteria:    summary.Criteria,
		ActionType:  summary.ActionType,
		Schedule:    summary.Schedule,
		LastRunAt:   summary.LastRunAt,
		NextRunAt:   summary.NextRunAt,
		ScanCount:   summary.ScanCount,
		CreatedAt:   summary.CreatedAt,
		UpdatedAt:   summary.UpdatedAt,
	}
	if summary.LatestScan != nil {
		resp.LatestScan = lo.ToPtr(ToScanResponse(*summary.LatestScan))
	}
	return resp
}

// ToRuleResponses converts a slice of rule summaries.
func ToRuleResponses(summaries []database.RuleSummary) []RuleResponse {
	return lo.Map(summaries, func(s database.RuleSummary, _ int) RuleResponse {
		return ToRuleResponse(s)
	})
}

// ToScanResponse converts a scan to its API shape.
func ToScanResponse(scan database.Scan) ScanResponse {
	return ScanResponse{
		ID:           scan.ID,
		RuleID:       scan.RuleID,
		Status:       string(scan.Status),
		StartedAt:    scan.StartedAt,
		CompletedAt:  scan.CompletedAt,
		ItemsScanned: scan.ItemsScanned,
		ItemsFlagged: scan.ItemsFlagged,
		Error:        scan.Error,
	}
}

// ToScanResponses converts a slice of scans.
func ToScanResponses(scans []database.Scan) []ScanResponse {
	return lo.Map(scans, func(s database.Scan, _ int) ScanResponse {
		return ToScanResponse(s)
	})
}

// ToCandidateResponse converts a candidate to its API shape, adding the
// human readable size and watch recency the review UI shows.
func ToCandidateResponse(c database.Candidate) CandidateResponse {
	humanSize := "unknown"
	if c.FileSize > 0 {
		humanSize = humanize.IBytes(uint64(c.FileSize))
	}
	lastWatched := "never"
	if c.LastWatchedAt != nil {
		lastWatched = timediff.TimeDiff(*c.LastWatchedAt)
	}

	return CandidateResponse{
		ID:            c.ID,
		ScanID:        c.ScanID,
		RuleID:        c.RuleID,
		MediaType:     c.MediaType,
		PlexRatingKey: c.PlexRatingKey,
		Title:         c.Title,
		Year:          c.Year,
		PosterURL:     c.PosterURL,
		FilePath:      c.FilePath,
		FileSize:      c.FileSize,
		HumanSize:     humanSize,
		PlayCount:     c.PlayCount,
		LastWatchedAt: c.LastWatchedAt,
		LastWatched:   lastWatched,
		AddedAt:       c.AddedAt,
		MatchedRules:  c.MatchedRules,
		FlaggedAt:     c.FlaggedAt,
		ReviewStatus:  string(c.ReviewStatus),
		ReviewedAt:    c.ReviewedAt,
		ReviewedBy:    c.ReviewedBy,
		ReviewNote:    c.ReviewNote,
		DeletedAt:     c.DeletedAt,
		DeletionError: c.DeletionError,
	}
}

// ToCandidateResponses converts a slice of candidates.
func ToCandidateResponses(cands []database.Candidate) []CandidateResponse {
	return lo.Map(cands, func(c database.Candidate, _ int) CandidateResponse {
		return ToCandidateResponse(c)
	})
}

// ToStatsResponse converts the aggregated stats to their API shape.
func ToStatsResponse(stats *database.Stats) StatsResponse {
	byStatus := make(map[string]int64, len(stats.CandidatesByStatus))
	for status, count := range stats.CandidatesByStatus {
		byStatus[string(status)] = count
	}

	humanFlagged := "0 B"
	if stats.BytesFlagged > 0 {
		humanFlagged = humanize.IBytes(uint64(stats.BytesFlagged))
	}
	humanDeleted := "0 B"
	if stats.BytesDeleted > 0 {
		humanDeleted = humanize.IBytes(uint64(stats.BytesDeleted))
	}

	return StatsResponse{
		TotalRules:          stats.TotalRules,
		EnabledRules:        stats.EnabledRules,
		TotalScans:          stats.TotalScans,
		FailedScans:         stats.FailedScans,
		CandidatesByStatus:  byStatus,
		BytesFlagged:        stats.BytesFlagged,
		HumanBytesFlagged:   humanFlagged,
		BytesDeleted:        stats.BytesDeleted,
		HumanBytesDeleted:   humanDeleted,
		LastCompletedScanAt: stats.LastCompletedScanAt,
	}
}
