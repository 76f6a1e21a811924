package schedule

import "time"

// Buffer is the minimum gap kept between two booked appointments.
const Buffer = 15 * time.Minute

// BlockedConflict reports whether [start, start+duration] touches any blocked interval.
// Unlike slot generation this check is inclusive on both ends.
func BlockedConflict(start time.Time, duration time.Duration, blocked []Interval) bool {
	end := start.Add(duration)
	for _, b := range blocked {
		if OverlapsInclusive(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// BufferWindow widens [start, start+duration] by buffer on both sides.
func BufferWindow(start time.Time, duration, buffer time.Duration) Interval {
	return Interval{
		Start: start.Add(-buffer),
		End:   start.Add(duration + buffer),
	}
}

// BufferedConflict reports whether any booked appointment touches the closed buffer window
// around [start, start+duration]. A booked start inside the window always conflicts; the
// booked appointment's own length is also taken into account so that the gap holds for
// candidates starting after an existing appointment.
func BufferedConflict(start time.Time, duration, buffer time.Duration, booked []Interval) bool {
	w := BufferWindow(start, duration, buffer)
	for _, b := range booked {
		if OverlapsInclusive(w.Start, w.End, b.Start, b.End) {
			return true
		}
	}
	return false
}
