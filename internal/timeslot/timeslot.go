// Package timeslot builds reservation windows from the date and clock values
// entered on the reservation forms. All reservations are expressed in Japan
// Standard Time regardless of where the server runs.
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

// Zone is UTC+9 with no daylight saving.
var Zone = time.FixedZone("JST", 9*60*60)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrTimeRequired   = errors.New("start and end time are required")
	ErrInvalidClock   = errors.New("invalid clock time")
	ErrInvalidDate    = errors.New("invalid date")
	ErrEndBeforeStart = errors.New("end time must be after start time")
	ErrDateInPast     = errors.New("date is before today")
)

type Window struct {
	Start time.Time
	End   time.Time
}

// StartString is the wire form of Start, e.g. 2025-06-01T15:00:00+09:00.
func (w Window) StartString() string { return w.Start.Format(time.RFC3339) }

func (w Window) EndString() string { return w.End.Format(time.RFC3339) }

// Compose joins a YYYY-MM-DD date with HH:MM start and end clocks.
func Compose(date, start, end string) (Window, error) {
	if start == "" || end == "" {
		return Window{}, ErrTimeRequired
	}
	day, err := time.ParseInLocation(DateLayout, date, Zone)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	s, err := clockOn(day, start)
	if err != nil {
		return Window{}, err
	}
	e, err := clockOn(day, end)
	if err != nil {
		return Window{}, err
	}
	if !e.After(s) {
		return Window{}, ErrEndBeforeStart
	}
	return Window{Start: s, End: e}, nil
}

// ComposeScheduled is Compose for a user-picked date, which may not lie
// before today as seen from now.
func ComposeScheduled(now time.Time, date, start, end string) (Window, error) {
	if date == "" {
		return Window{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	w, err := Compose(date, start, end)
	if err != nil {
		return Window{}, err
	}
	if date < Today(now) {
		return Window{}, ErrDateInPast
	}
	return w, nil
}

func clockOn(day time.Time, clock string) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	// Browsers send HH:MM, or HH:MM:SS when the input step is below a minute.
	for _, layout := range []string{ClockLayout, "15:04:05"} {
		if t, err = time.Parse(layout, clock); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, Zone), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
}

func Today(now time.Time) string {
	return now.In(Zone).Format(DateLayout)
}

func Tomorrow(now time.Time) string {
	return now.In(Zone).AddDate(0, 0, 1).Format(DateLayout)
}

// ParseTimestamp reads a backend timestamp. Values without an offset are
// taken to be in Zone.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(Zone), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02T15:04", DateLayout} {
		if t, err := time.ParseInLocation(layout, s, Zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func FormatDate(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

func FormatClock(t time.Time) string {
	return t.In(Zone).Format(ClockLayout)
}

// Range renders a start/end pair as 15:00〜17:00.
func Range(start, end time.Time) string {
	return FormatClock(start) + "〜" + FormatClock(end)
}
