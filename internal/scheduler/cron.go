package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateSchedule checks that the expression is a valid five-field cron
// schedule.
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// NextOccurrence returns the next run time of the schedule after now, or
// nil when the expression is invalid.
func NextOccurrence(schedule string, now time.Time) *time.Time {
	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil
	}
	next := spec.Next(now)
	if next.IsZero() {
		return nil
	}
	return &next
}
