package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "daily at 3am", schedule: "0 3 * * *"},
		{name: "every sunday", schedule: "0 0 * * 0"},
		{name: "descriptor", schedule: "@daily"},
		{name: "empty", schedule: "", wantErr: true},
		{name: "too few fields", schedule: "0 3 *", wantErr: true},
		{name: "garbage", schedule: "not a schedule", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)

	next := NextOccurrence("0 3 * * *", now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), *next)

	assert.Nil(t, NextOccurrence("bogus", now))
}
