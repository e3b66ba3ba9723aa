package database

import (
	"context"
	"errors"
	"time"

	"github.com/plexsweep/plexsweep/internal/rules"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a guarded state transition found the record in
	// a different state than expected.
	ErrConflict = errors.New("record is not in the expected state")
	// ErrDuplicateName indicates a rule with the same name already exists.
	ErrDuplicateName = errors.New("rule name already exists")
)

// RuleSummary is a rule together with its scan statistics for listings.
type RuleSummary struct {
	Rule
	ScanCount  int64
	LatestScan *Scan
}

// CandidateFilter narrows candidate listings.
type CandidateFilter struct {
	RuleID       *uint
	ScanID       *uint
	ReviewStatus *ReviewStatus
	MediaType    *rules.MediaType
	Limit        int
	Offset       int
}

// Stats aggregates engine activity for the stats command and API.
type Stats struct {
	TotalRules          int64
	EnabledRules        int64
	TotalScans          int64
	FailedScans         int64
	CandidatesByStatus  map[ReviewStatus]int64
	BytesFlagged        int64
	BytesDeleted        int64
	LastCompletedScanAt *time.Time
}

// DB defines the persistence operations of the rule engine.
type DB interface {
	// Rule management
	CreateRule(ctx context.Context, rule *Rule) error
	UpdateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id uint) (*Rule, error)
	ListRules(ctx context.Context) ([]RuleSummary, error)
	ListScheduledRules(ctx context.Context) ([]Rule, error)
	// DeleteRule removes the rule with its scans and candidates, in that
	// dependency order: candidates, scans, rule.
	DeleteRule(ctx context.Context, id uint) error
	SetRuleRunTimes(ctx context.Context, id uint, lastRun time.Time, nextRun *time.Time) error

	// Scan lifecycle
	CreateScan(ctx context.Context, scan *Scan) error
	StartScan(ctx context.Context, id uint) error
	CompleteScan(ctx context.Context, id uint, status ScanStatus, itemsScanned, itemsFlagged int, errMsg *string) error
	GetScan(ctx context.Context, id uint) (*Scan, error)
	ListScansByRule(ctx context.Context, ruleID uint, limit int) ([]Scan, error)
	// GetRunningScan returns the currently running or pending scan of a
	// rule, or ErrNotFound.
	GetRunningScan(ctx context.Context, ruleID uint) (*Scan, error)

	// Candidate lifecycle
	// UpsertCandidate inserts or refreshes a pending candidate. It
	// reports false when the existing candidate was already reviewed
	// and the conflicting write was skipped.
	UpsertCandidate(ctx context.Context, candidate *Candidate) (bool, error)
	GetCandidate(ctx context.Context, id uint) (*Candidate, error)
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]Candidate, error)
	// TransitionCandidate moves a candidate from one review status to
	// another. It returns ErrConflict when the candidate is not in the
	// expected source state, ErrNotFound when it does not exist.
	TransitionCandidate(ctx context.Context, id uint, from, to ReviewStatus, reviewedBy, note string) (*Candidate, error)
	// MarkCandidateDeleted records a successful upstream deletion. Only
	// approved candidates can be marked; the deletion error is cleared.
	MarkCandidateDeleted(ctx context.Context, id uint, deletedAt time.Time) error
	SetCandidateDeletionError(ctx context.Context, id uint, msg string) error
	SetCandidateArrIDs(ctx context.Context, id uint, radarrID, sonarrID *int32) error

	// Statistics
	GetStats(ctx context.Context) (*Stats, error)

	Close() error
}
