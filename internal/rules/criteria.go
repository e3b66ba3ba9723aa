package rules

import (
	"fmt"
	"time"
)

// TimeUnit is the unit of a relative time threshold.
type TimeUnit string

const (
	TimeUnitDays   TimeUnit = "days"
	TimeUnitWeeks  TimeUnit = "weeks"
	TimeUnitMonths TimeUnit = "months"
	TimeUnitYears  TimeUnit = "years"
)

// SizeUnit is the unit of a file size threshold. Multiples are binary.
type SizeUnit string

const (
	SizeUnitBytes     SizeUnit = "B"
	SizeUnitKilobytes SizeUnit = "KB"
	SizeUnitMegabytes SizeUnit = "MB"
	SizeUnitGigabytes SizeUnit = "GB"
	SizeUnitTerabytes SizeUnit = "TB"
)

// TimeThreshold is a relative age like "30 days" or "2 years".
type TimeThreshold struct {
	Value int      `json:"value"`
	Unit  TimeUnit `json:"unit"`
}

// cutoff returns the absolute point in time the threshold refers to,
// counting backwards from now. Months and years are calendar-accurate.
func (t TimeThreshold) cutoff(now time.Time) time.Time {
	switch t.Unit {
	case TimeUnitDays:
		return now.AddDate(0, 0, -t.Value)
	case TimeUnitWeeks:
		return now.AddDate(0, 0, -7*t.Value)
	case TimeUnitMonths:
		return now.AddDate(0, -t.Value, 0)
	case TimeUnitYears:
		return now.AddDate(-t.Value, 0, 0)
	}
	return now
}

func (t TimeThreshold) validate(field Field) error {
	if t.Value <= 0 {
		return fmt.Errorf("%w: %s value must be positive, got %d", ErrInvalidCriteria, field, t.Value)
	}
	switch t.Unit {
	case TimeUnitDays, TimeUnitWeeks, TimeUnitMonths, TimeUnitYears:
		return nil
	}
	return fmt.Errorf("%w: %s has unknown time unit %q", ErrInvalidCriteria, field, t.Unit)
}

func (t TimeThreshold) String() string {
	return fmt.Sprintf("%d %s", t.Value, t.Unit)
}

// SizeThreshold is a file size like "2 GB".
type SizeThreshold struct {
	Value float64  `json:"value"`
	Unit  SizeUnit `json:"unit"`
}

var sizeUnitBytes = map[SizeUnit]float64{
	SizeUnitBytes:     1,
	SizeUnitKilobytes: 1 << 10,
	SizeUnitMegabytes: 1 << 20,
	SizeUnitGigabytes: 1 << 30,
	SizeUnitTerabytes: 1 << 40,
}

// Bytes converts the threshold to a byte count.
func (s SizeThreshold) Bytes() int64 {
	return int64(s.Value * sizeUnitBytes[s.Unit])
}

func (s SizeThreshold) validate(field Field) error {
	if s.Value <= 0 {
		return fmt.Errorf("%w: %s value must be positive, got %v", ErrInvalidCriteria, field, s.Value)
	}
	if _, ok := sizeUnitBytes[s.Unit]; !ok {
		return fmt.Errorf("%w: %s has unknown size unit %q", ErrInvalidCriteria, field, s.Unit)
	}
	return nil
}

func (s SizeThreshold) String() string {
	return fmt.Sprintf("%v %s", s.Value, s.Unit)
}

// Criteria is the optional-field condition bag an admin configures on a
// rule. Unset fields are ignored; the set fields are combined with Operator.
// Criteria must pass through Compile before evaluation, so malformed values
// never reach the evaluator.
type Criteria struct {
	NeverWatched      *bool          `json:"neverWatched,omitempty"`
	LastWatchedBefore *TimeThreshold `json:"lastWatchedBefore,omitempty"`
	MaxPlayCount      *int           `json:"maxPlayCount,omitempty"`
	AddedBefore       *TimeThreshold `json:"addedBefore,omitempty"`
	MinFileSize       *SizeThreshold `json:"minFileSize,omitempty"`
	MaxQuality        *string        `json:"maxQuality,omitempty"`
	MaxRating         *float64       `json:"maxRating,omitempty"`
	LibraryIDs        []string       `json:"libraryIds,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	Operator          Operator       `json:"operator"`
}

// Validate checks the criteria without keeping the compiled conditions.
// It is called at rule create/update time.
func (c Criteria) Validate() error {
	_, err := c.Compile()
	return err
}
