package database

import (
	"time"

	"github.com/plexsweep/plexsweep/internal/rules"
	"gorm.io/gorm"
)

// ScanStatus represents the status of a maintenance scan.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ReviewStatus represents the review state of a maintenance candidate.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusDeleted  ReviewStatus = "deleted"
)

// Valid reports whether the review status is one of the known values.
func (r ReviewStatus) Valid() bool {
	switch r {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected, ReviewStatusDeleted:
		return true
	}
	return false
}

// Rule is an admin-configured maintenance rule. Deleting a rule cascades to
// its scans and candidates.
type Rule struct {
	gorm.Model
	Name        string           `gorm:"not null;uniqueIndex"`
	Description string
	Enabled     bool             `gorm:"not null"`
	MediaType   rules.MediaType  `gorm:"not null"`
	Criteria    rules.Criteria   `gorm:"serializer:json"`
	ActionType  rules.ActionType `gorm:"not null"`
	// Schedule is an optional cron expression for automatic runs.
	Schedule  string
	LastRunAt *time.Time
	NextRunAt *time.Time
}

// Scan is one execution of a rule against the catalog.
type Scan struct {
	gorm.Model
	RuleID       uint       `gorm:"not null;index"`
	Status       ScanStatus `gorm:"not null;index"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ItemsScanned int
	ItemsFlagged int
	Error        *string
}

// Candidate is a media item flagged by a rule as a review/deletion target.
// The (rule, plex rating key) pair is unique so parallel evaluation cannot
// produce duplicate rows; re-flagging is an upsert against that key.
//
// Candidate deliberately does not embed gorm.Model: DeletedAt here is the
// moment the media files were removed upstream, not a soft-delete marker.
type Candidate struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ScanID uint `gorm:"not null;index"`
	RuleID uint `gorm:"not null;uniqueIndex:idx_candidate_rule_item"`

	MediaType     rules.MediaType `gorm:"not null;index"`
	PlexRatingKey string          `gorm:"not null;uniqueIndex:idx_candidate_rule_item"`
	RadarrID      *int32
	SonarrID      *int32
	TmdbID        *int32
	TvdbID        *int32

	Title         string
	Year          int
	PosterURL     string
	FilePath      string
	FileSize      int64
	PlayCount     int
	LastWatchedAt *time.Time
	AddedAt       *time.Time

	// MatchedRules records why the item was flagged.
	MatchedRules []rules.Match `gorm:"serializer:json"`
	FlaggedAt    time.Time     `gorm:"not null"`

	ReviewStatus ReviewStatus `gorm:"not null;index"`
	ReviewedAt   *time.Time
	ReviewedBy   string
	ReviewNote   string

	DeletedAt     *time.Time
	DeletionError *string
}
