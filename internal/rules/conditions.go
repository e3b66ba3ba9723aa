package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
)

// ErrInvalidCriteria is returned by Compile for criteria that must never
// reach the evaluator: unknown units, non-positive thresholds, unknown
// quality names, bad operators.
var ErrInvalidCriteria = errors.New("invalid criteria")

// Field identifies one criteria field.
type Field string

const (
	FieldNeverWatched      Field = "neverWatched"
	FieldLastWatchedBefore Field = "lastWatchedBefore"
	FieldMaxPlayCount      Field = "maxPlayCount"
	FieldAddedBefore       Field = "addedBefore"
	FieldMinFileSize       Field = "minFileSize"
	FieldMaxQuality        Field = "maxQuality"
	FieldMaxRating         Field = "maxRating"
	FieldLibraryIDs        Field = "libraryIds"
	FieldTags              Field = "tags"
)

// ConditionResult is the per-condition diagnostic produced by an evaluation.
type ConditionResult struct {
	Field    Field  `json:"field"`
	Operator string `json:"operator"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// Condition is one compiled, ready-to-evaluate criteria field.
type Condition struct {
	Field    Field
	Operator string
	Expected string

	eval func(item *MediaItem, now time.Time) (actual string, passed bool)
}

// FieldSpec describes one entry of the operator table for API consumers,
// so a UI live-preview evaluates with the same table the server uses.
type FieldSpec struct {
	Field       Field  `json:"field"`
	Operator    string `json:"operator"`
	ValueType   string `json:"valueType"`
	Description string `json:"description"`
}

// conditionSpec is one row of the operator table. build returns a nil
// condition when the criteria leaves the field unset.
type conditionSpec struct {
	field       Field
	operator    string
	valueType   string
	description string
	build       func(c *Criteria) (*Condition, error)
}

// qualityRank orders video qualities from worst to best. Unknown item
// qualities rank below everything and fail the condition closed.
var qualityRank = map[string]int{
	"sd": 0, "480": 0, "480p": 0, "576": 0, "576p": 0,
	"hd": 1, "720": 1, "720p": 1,
	"fhd": 2, "1080": 2, "1080p": 2,
	"4k": 3, "uhd": 3, "2160": 3, "2160p": 3,
}

func rankQuality(q string) (int, bool) {
	rank, ok := qualityRank[strings.ToLower(strings.TrimSpace(q))]
	return rank, ok
}

// conditionSpecs is the single source of truth for every supported
// condition: field, operator, value shape and evaluation semantics.
// Both Compile and Spec derive from it.
var conditionSpecs = []conditionSpec{
	{
		field: FieldNeverWatched, operator: "equals", valueType: "bool",
		description: "item has never been watched (play count is zero)",
		build: func(c *Criteria) (*Condition, error) {
			if c.NeverWatched == nil {
				return nil, nil
			}
			want := *c.NeverWatched
			return &Condition{
				Field: FieldNeverWatched, Operator: "equals", Expected: fmt.Sprintf("%t", want),
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					never := item.PlayCount == 0
					return fmt.Sprintf("%t", never), never == want
				},
			}, nil
		},
	},
	{
		field: FieldLastWatchedBefore, operator: "olderThan", valueType: "timeThreshold",
		description: "last watched before the threshold; never watched qualifies",
		build: func(c *Criteria) (*Condition, error) {
			if c.LastWatchedBefore == nil {
				return nil, nil
			}
			if err := c.LastWatchedBefore.validate(FieldLastWatchedBefore); err != nil {
				return nil, err
			}
			threshold := *c.LastWatchedBefore
			return &Condition{
				Field: FieldLastWatchedBefore, Operator: "olderThan", Expected: threshold.String(),
				eval: func(item *MediaItem, now time.Time) (string, bool) {
					if item.LastWatchedAt == nil {
						return "never", true
					}
					return item.LastWatchedAt.Format(time.RFC3339), item.LastWatchedAt.Before(threshold.cutoff(now))
				},
			}, nil
		},
	},
	{
		field: FieldMaxPlayCount, operator: "atMost", valueType: "int",
		description: "play count is at most the configured maximum",
		build: func(c *Criteria) (*Condition, error) {
			if c.MaxPlayCount == nil {
				return nil, nil
			}
			if *c.MaxPlayCount < 0 {
				return nil, fmt.Errorf("%w: maxPlayCount must not be negative, got %d", ErrInvalidCriteria, *c.MaxPlayCount)
			}
			max := *c.MaxPlayCount
			return &Condition{
				Field: FieldMaxPlayCount, Operator: "atMost", Expected: fmt.Sprintf("%d", max),
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					return fmt.Sprintf("%d", item.PlayCount), item.PlayCount <= max
				},
			}, nil
		},
	},
	{
		field: FieldAddedBefore, operator: "olderThan", valueType: "timeThreshold",
		description: "added to the library before the threshold",
		build: func(c *Criteria) (*Condition, error) {
			if c.AddedBefore == nil {
				return nil, nil
			}
			if err := c.AddedBefore.validate(FieldAddedBefore); err != nil {
				return nil, err
			}
			threshold := *c.AddedBefore
			return &Condition{
				Field: FieldAddedBefore, Operator: "olderThan", Expected: threshold.String(),
				eval: func(item *MediaItem, now time.Time) (string, bool) {
					// Unknown added date fails closed.
					if item.AddedAt == nil {
						return "unknown", false
					}
					return item.AddedAt.Format(time.RFC3339), item.AddedAt.Before(threshold.cutoff(now))
				},
			}, nil
		},
	},
	{
		field: FieldMinFileSize, operator: "atLeast", valueType: "sizeThreshold",
		description: "file size is at least the configured minimum",
		build: func(c *Criteria) (*Condition, error) {
			if c.MinFileSize == nil {
				return nil, nil
			}
			if err := c.MinFileSize.validate(FieldMinFileSize); err != nil {
				return nil, err
			}
			minBytes := c.MinFileSize.Bytes()
			return &Condition{
				Field: FieldMinFileSize, Operator: "atLeast", Expected: humanize.IBytes(uint64(minBytes)),
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					// Unknown file size fails closed.
					if item.FileSize == nil {
						return "unknown", false
					}
					return humanize.IBytes(uint64(*item.FileSize)), *item.FileSize >= minBytes
				},
			}, nil
		},
	},
	{
		field: FieldMaxQuality, operator: "atMost", valueType: "quality",
		description: "video quality is at most the configured tier (SD < HD < FHD < 4K)",
		build: func(c *Criteria) (*Condition, error) {
			if c.MaxQuality == nil {
				return nil, nil
			}
			maxRank, ok := rankQuality(*c.MaxQuality)
			if !ok {
				return nil, fmt.Errorf("%w: unknown quality %q", ErrInvalidCriteria, *c.MaxQuality)
			}
			expected := *c.MaxQuality
			return &Condition{
				Field: FieldMaxQuality, Operator: "atMost", Expected: expected,
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					rank, known := rankQuality(item.Quality)
					if !known {
						// Never treat an unrecognized quality as qualifying.
						return "unknown", false
					}
					return item.Quality, rank <= maxRank
				},
			}, nil
		},
	},
	{
		field: FieldMaxRating, operator: "atMost", valueType: "float",
		description: "rating is at most the configured maximum",
		build: func(c *Criteria) (*Condition, error) {
			if c.MaxRating == nil {
				return nil, nil
			}
			if *c.MaxRating < 0 {
				return nil, fmt.Errorf("%w: maxRating must not be negative, got %v", ErrInvalidCriteria, *c.MaxRating)
			}
			max := *c.MaxRating
			return &Condition{
				Field: FieldMaxRating, Operator: "atMost", Expected: fmt.Sprintf("%.1f", max),
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					// Unrated items fail closed.
					if item.Rating == nil {
						return "unrated", false
					}
					return fmt.Sprintf("%.1f", *item.Rating), *item.Rating <= max
				},
			}, nil
		},
	},
	{
		field: FieldLibraryIDs, operator: "in", valueType: "stringList",
		description: "item belongs to one of the listed libraries",
		build: func(c *Criteria) (*Condition, error) {
			if len(c.LibraryIDs) == 0 {
				return nil, nil
			}
			ids := c.LibraryIDs
			return &Condition{
				Field: FieldLibraryIDs, Operator: "in", Expected: strings.Join(ids, ", "),
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					return item.LibraryID, lo.Contains(ids, item.LibraryID)
				},
			}, nil
		},
	},
	{
		field: FieldTags, operator: "containsAny", valueType: "stringList",
		description: "item carries at least one of the listed tags",
		build: func(c *Criteria) (*Condition, error) {
			if len(c.Tags) == 0 {
				return nil, nil
			}
			wanted := c.Tags
			return &Condition{
				Field: FieldTags, Operator: "containsAny", Expected: strings.Join(wanted, ", "),
				eval: func(item *MediaItem, _ time.Time) (string, bool) {
					return strings.Join(item.Tags, ", "), lo.Some(item.Tags, wanted)
				},
			}, nil
		},
	},
}

// Compiled is a validated, evaluatable form of Criteria.
type Compiled struct {
	Operator   Operator
	Conditions []Condition
}

// Compile validates the criteria and turns every defined field into a
// Condition. It is the only way to obtain evaluatable conditions.
func (c Criteria) Compile() (*Compiled, error) {
	op := c.Operator
	switch op {
	case OperatorAnd, OperatorOr:
	case "":
		// Rules without an explicit combinator behave as AND.
		op = OperatorAnd
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidCriteria, op)
	}

	conditions := make([]Condition, 0, len(conditionSpecs))
	for _, spec := range conditionSpecs {
		cond, err := spec.build(&c)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			conditions = append(conditions, *cond)
		}
	}
	return &Compiled{Operator: op, Conditions: conditions}, nil
}

// Spec returns the operator table as field descriptions. The admin API
// serves it so UI previews stay in sync with server-side evaluation.
func Spec() []FieldSpec {
	return lo.Map(conditionSpecs, func(s conditionSpec, _ int) FieldSpec {
		return FieldSpec{
			Field:       s.field,
			Operator:    s.operator,
			ValueType:   s.valueType,
			Description: s.description,
		}
	})
}
