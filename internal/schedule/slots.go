package schedule

import "time"

// DefaultStep is the display grid used for slot generation.
const DefaultStep = time.Hour

type Slot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration int       `json:"duration"` // minutes
}

// SlotQuery is the snapshot the availability walk runs against.
type SlotQuery struct {
	Window   Interval
	Duration time.Duration
	Step     time.Duration
	// Booked holds the start times of active appointments.
	Booked  []time.Time
	Blocked []Interval
	// NotBefore drops candidates that start earlier. Zero disables the check.
	NotBefore time.Time
}

// AvailableSlots walks the window from its open time in fixed steps and returns every
// candidate [t, t+Duration) that has no booked start inside it and no strict overlap with
// a blocked interval. The step never depends on the duration, so long services produce
// candidates that overlap each other.
func AvailableSlots(q SlotQuery) []Slot {
	if q.Duration <= 0 {
		return nil
	}
	step := q.Step
	if step <= 0 {
		step = DefaultStep
	}
	minutes := int(q.Duration / time.Minute)

	var slots []Slot
	for t := q.Window.Start; t.Before(q.Window.End); t = t.Add(step) {
		if !q.NotBefore.IsZero() && t.Before(q.NotBefore) {
			continue
		}
		end := t.Add(q.Duration)
		if anyStartsWithin(q.Booked, t, end) || anyOverlapsStrict(q.Blocked, t, end) {
			continue
		}
		slots = append(slots, Slot{Start: t, End: end, Duration: minutes})
	}
	return slots
}

func anyStartsWithin(starts []time.Time, from, to time.Time) bool {
	for _, s := range starts {
		if !s.Before(from) && s.Before(to) {
			return true
		}
	}
	return false
}

func anyOverlapsStrict(blocks []Interval, start, end time.Time) bool {
	for _, b := range blocks {
		if OverlapsStrict(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
