package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	w, err := Compose("2025-06-01", "15:00", "17:30")
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01T15:00:00+09:00", w.StartString())
	assert.Equal(t, "2025-06-01T17:30:00+09:00", w.EndString())
}

func TestComposeAcceptsSeconds(t *testing.T) {
	w, err := Compose("2025-06-01", "09:05:30", "10:00:00")
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01T09:05:00+09:00", w.StartString())
}

func TestComposeErrors(t *testing.T) {
	tests := []struct {
		name             string
		date, start, end string
		want             error
	}{
		{"missing start", "2025-06-01", "", "17:00", ErrTimeRequired},
		{"missing end", "2025-06-01", "15:00", "", ErrTimeRequired},
		{"bad clock", "2025-06-01", "25:00", "26:00", ErrInvalidClock},
		{"bad date", "2025/06/01", "15:00", "17:00", ErrInvalidDate},
		{"end equals start", "2025-06-01", "15:00", "15:00", ErrEndBeforeStart},
		{"end before start", "2025-06-01", "17:00", "15:00", ErrEndBeforeStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.date, tt.start, tt.end)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTodayUsesJapanTime(t *testing.T) {
	// 16:00 UTC is already the next day in Japan.
	now := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-06-02", Today(now))
	assert.Equal(t, "2025-06-03", Tomorrow(now))
}

func TestComposeScheduled(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, Zone)

	_, err := ComposeScheduled(now, "2025-05-31", "15:00", "17:00")
	assert.ErrorIs(t, err, ErrDateInPast)

	_, err = ComposeScheduled(now, "", "15:00", "17:00")
	assert.ErrorIs(t, err, ErrInvalidDate)

	w, err := ComposeScheduled(now, "2025-06-01", "15:00", "17:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T15:00:00+09:00", w.StartString())
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in        string
		wantDate  string
		wantClock string
	}{
		{"2025-06-01T15:00:00+09:00", "2025-06-01", "15:00"},
		{"2025-06-01T06:00:00Z", "2025-06-01", "15:00"},
		{"2025-06-01T15:00:00", "2025-06-01", "15:00"},
		{"2025-06-01T15:00:00.123456", "2025-06-01", "15:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, FormatDate(got))
			assert.Equal(t, tt.wantClock, FormatClock(got))
		})
	}

	_, err := ParseTimestamp("tomorrow")
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	start := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	assert.Equal(t, "15:00〜17:00", Range(start, end))
}
