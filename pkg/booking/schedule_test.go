package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "weekday morning books same day",
			// Wednesday 2024-06-12 09:30
			now:  time.Date(2024, 6, 12, 9, 30, 0, 0, loc),
			want: time.Date(2024, 6, 12, 0, 0, 0, 0, loc),
		},
		{
			name: "weekday just before cutoff books same day",
			now:  time.Date(2024, 6, 12, 12, 59, 0, 0, loc),
			want: time.Date(2024, 6, 12, 0, 0, 0, 0, loc),
		},
		{
			name: "weekday afternoon books next day",
			now:  time.Date(2024, 6, 12, 13, 0, 0, 0, loc),
			want: time.Date(2024, 6, 13, 0, 0, 0, 0, loc),
		},
		{
			name: "friday afternoon rolls over the weekend to monday",
			// Friday 2024-06-14 14:00
			now:  time.Date(2024, 6, 14, 14, 0, 0, 0, loc),
			want: time.Date(2024, 6, 17, 0, 0, 0, 0, loc),
		},
		{
			name: "saturday morning advances to monday",
			now:  time.Date(2024, 6, 15, 9, 0, 0, 0, loc),
			want: time.Date(2024, 6, 17, 0, 0, 0, 0, loc),
		},
		{
			name: "sunday afternoon advances to monday",
			now:  time.Date(2024, 6, 16, 15, 0, 0, 0, loc),
			want: time.Date(2024, 6, 17, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmartDate(tt.now, loc)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, time.Saturday, got.Weekday())
			assert.NotEqual(t, time.Sunday, got.Weekday())
		})
	}
}

func TestSmartDateRespectsTimezone(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// 12:30 UTC in summer is 13:30 in London: past the cutoff there.
	now := time.Date(2024, 6, 12, 12, 30, 0, 0, time.UTC)
	got := SmartDate(now, london)
	assert.Equal(t, time.Date(2024, 6, 13, 0, 0, 0, 0, london), got)
}

func TestSmartEarliestTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		hour int
		want string
	}{
		{hour: 9, want: "12:00"},
		{hour: 11, want: "12:00"},
		{hour: 12, want: "13:00"},
		{hour: 14, want: "15:00"},
		{hour: 16, want: "17:00"},
		{hour: 17, want: "12:00"},
		{hour: 18, want: "12:00"},
		{hour: 23, want: "12:00"},
	}

	for _, tt := range tests {
		now := time.Date(2024, 6, 12, tt.hour, 15, 0, 0, loc)
		assert.Equal(t, tt.want, SmartEarliestTime(now, loc), "hour=%d", tt.hour)
	}
}
