// Package rules implements the declarative maintenance criteria DSL: a
// validated set of conditions that a media item is matched against, and a
// pure evaluator that reports per-condition diagnostics.
package rules

import "time"

// MediaType represents the type of media a rule applies to.
type MediaType string

const (
	// MediaTypeMovie represents movies.
	MediaTypeMovie MediaType = "movie"
	// MediaTypeTV represents TV series.
	MediaTypeTV MediaType = "tv"
	// MediaTypeEpisode represents single episodes.
	MediaTypeEpisode MediaType = "episode"
)

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeMovie, MediaTypeTV, MediaTypeEpisode:
		return true
	}
	return false
}

// ActionType determines what happens with items a rule matches.
type ActionType string

const (
	// ActionFlagForReview flags matches as candidates awaiting admin review.
	ActionFlagForReview ActionType = "flag_for_review"
	// ActionAutoDelete routes matches directly into the deletion pipeline.
	ActionAutoDelete ActionType = "auto_delete"
)

// Valid reports whether the action type is one of the known values.
func (a ActionType) Valid() bool {
	return a == ActionFlagForReview || a == ActionAutoDelete
}

// Operator combines the results of all defined conditions.
type Operator string

const (
	// OperatorAnd requires every defined condition to pass.
	OperatorAnd Operator = "and"
	// OperatorOr requires at least one defined condition to pass.
	OperatorOr Operator = "or"
)

// MediaItem is the read-only catalog snapshot a rule is evaluated against.
// It is produced by the catalog collaborator (Plex/Tautulli) and never
// mutated by the rule engine.
type MediaItem struct {
	RatingKey     string     `json:"ratingKey"`
	MediaType     MediaType  `json:"mediaType"`
	Title         string     `json:"title"`
	Year          int        `json:"year"`
	LibraryID     string     `json:"libraryId"`
	PlayCount     int        `json:"playCount"`
	LastWatchedAt *time.Time `json:"lastWatchedAt,omitempty"`
	AddedAt       *time.Time `json:"addedAt,omitempty"`
	FileSize      *int64     `json:"fileSize,omitempty"`
	FilePath      string     `json:"filePath,omitempty"`
	PosterURL     string     `json:"posterUrl,omitempty"`
	Quality       string     `json:"quality,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	TmdbID        *int32     `json:"tmdbId,omitempty"`
	TvdbID        *int32     `json:"tvdbId,omitempty"`
}

// Match records why a rule flagged an item. It is persisted on the candidate
// as rationale for the admin review UI.
type Match struct {
	RuleName   string            `json:"ruleName"`
	Summary    string            `json:"summary"`
	Conditions []ConditionResult `json:"conditions"`
}
