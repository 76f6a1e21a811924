package schedule

import (
	"fmt"
	"time"
)

// APILayout is the wall-clock layout used for booking requests (no seconds, no zone).
const APILayout = "2006-01-02T15:04"

// DateLayout is the calendar date layout used for slot queries.
const DateLayout = "2006-01-02"

type Interval struct {
	Start time.Time
	End   time.Time
}

// OverlapsStrict reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// Touching endpoints do not overlap.
func OverlapsStrict(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// OverlapsInclusive reports whether the closed intervals [aStart,aEnd] and [bStart,bEnd]
// intersect. Touching endpoints overlap.
func OverlapsInclusive(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// IsWeekday is true Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsBusinessHour reports whether t's hour of day falls in [startHour, endHour).
func IsBusinessHour(t time.Time, startHour, endHour int) bool {
	h := t.Hour()
	return h >= startHour && h < endHour
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow returns [date@startHour, date@endHour) on date's calendar day.
// Any time of day carried by date is ignored.
func DayWindow(date time.Time, startHour, endHour int) Interval {
	y, m, d := date.Date()
	loc := date.Location()
	return Interval{
		Start: time.Date(y, m, d, startHour, 0, 0, 0, loc),
		End:   time.Date(y, m, d, endHour, 0, 0, 0, loc),
	}
}

func FormatAPI(t time.Time) string {
	return t.Format(APILayout)
}

// ParseAPI parses a YYYY-MM-DDTHH:mm wall-clock value in loc.
func ParseAPI(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(APILayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", value, err)
	}
	return t, nil
}

// ParseDate accepts either a plain calendar date or an RFC3339 timestamp and returns
// midnight of the corresponding calendar day in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return StartOfDay(t.In(loc)), nil
}
