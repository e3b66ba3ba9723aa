// Package models defines the JSON shapes of the admin API.
package models

import (
	"time"

	"github.com/plexsweep/plexsweep/internal/rules"
)

// RuleRequest is the payload for creating or updating a rule.
type RuleRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Enabled     bool             `json:"enabled"`
	MediaType   rules.MediaType  `json:"mediaType" binding:"required"`
	Criteria    rules.Criteria   `json:"criteria"`
	ActionType  rules.ActionType `json:"actionType" binding:"required"`
	Schedule    string           `json:"schedule"`
}

// RuleResponse is a rule with its scan statistics.
type RuleResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Enabled     bool             `json:"enabled"`
	MediaType   rules.MediaType  `json:"mediaType"`
	Criteria    rules.Criteria   `json:"criteria"`
	ActionType  rules.ActionType `json:"actionType"`
	Schedule    string           `json:"schedule,omitempty"`
	LastRunAt   *time.Time       `json:"lastRunAt,omitempty"`
	NextRunAt   *time.Time       `json:"nextRunAt,omitempty"`
	ScanCount   int64            `json:"scanCount"`
	LatestScan  *ScanResponse    `json:"latestScan,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ScanResponse is one scan execution.
type ScanResponse struct {
	ID           uint       `json:"id"`
	RuleID       uint       `json:"ruleId"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ItemsScanned int        `json:"itemsScanned"`
	ItemsFlagged int        `json:"itemsFlagged"`
	Error        *string    `json:"error,omitempty"`
}

// CandidateResponse is one flagged media item in the review queue.
type CandidateResponse struct {
	ID            uint            `json:"id"`
	ScanID        uint            `json:"scanId"`
	RuleID        uint            `json:"ruleId"`
	MediaType     rules.MediaType `json:"mediaType"`
	PlexRatingKey string          `json:"plexRatingKey"`
	Title         string          `json:"title"`
	Year          int             `json:"year,omitempty"`
	PosterURL     string          `json:"posterUrl,omitempty"`
	FilePath      string          `json:"filePath,omitempty"`
	FileSize      int64           `json:"fileSize"`
	HumanSize     string          `json:"humanSize"`
	PlayCount     int             `json:"playCount"`
	LastWatchedAt *time.Time      `json:"lastWatchedAt,omitempty"`
	LastWatched   string          `json:"lastWatched"`
	AddedAt       *time.Time      `json:"addedAt,omitempty"`
	MatchedRules  []rules.Match   `json:"matchedRules"`
	FlaggedAt     time.Time       `json:"flaggedAt"`
	ReviewStatus  string          `json:"reviewStatus"`
	ReviewedAt    *time.Time      `json:"reviewedAt,omitempty"`
	ReviewedBy    string          `json:"reviewedBy,omitempty"`
	ReviewNote    string          `json:"reviewNote,omitempty"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty"`
	DeletionError *string         `json:"deletionError,omitempty"`
}

// ReviewRequest is the payload for a single review decision.
type ReviewRequest struct {
	ReviewedBy string `json:"reviewedBy" binding:"required"`
	Note       string `json:"note"`
}

// BulkReviewRequest is the payload for a batch review decision.
type BulkReviewRequest struct {
	CandidateIDs []uint `json:"candidateIds" binding:"required"`
	ReviewedBy   string `json:"reviewedBy" binding:"required"`
	Note         string `json:"note"`
}

// DeleteRequest is the payload for a deletion run.
type DeleteRequest struct {
	CandidateIDs []uint `json:"candidateIds" binding:"required"`
}

// StatsResponse aggregates engine activity.
type StatsResponse struct {
	TotalRules          int64            `json:"totalRules"`
	EnabledRules        int64            `json:"enabledRules"`
	TotalScans          int64            `json:"totalScans"`
	FailedScans         int64            `json:"failedScans"`
	CandidatesByStatus  map[string]int64 `json:"candidatesByStatus"`
	BytesFlagged        int64            `json:"bytesFlagged"`
	HumanBytesFlagged   string           `json:"humanBytesFlagged"`
	BytesDeleted        int64            `json:"bytesDeleted"`
	HumanBytesDeleted   string           `json:"humanBytesDeleted"`
	LastCompletedScanAt *time.Time       `json:"lastCompletedScanAt,omitempty"`
}
