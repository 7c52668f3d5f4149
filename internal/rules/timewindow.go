package rules

// TimeWindow restricts participation to a range of hours in the day.
//
// When StartHour <= EndHour the window is the inclusive range
// [StartHour, EndHour] within one day. When StartHour > EndHour the window
// wraps midnight: the current hour must be >= StartHour or <= EndHour
// (e.g. 22-6 admits 23:00 and 05:00 but not 10:00).
type TimeWindow struct {
	StartHour int
	EndHour   int
}

// Contains reports whether the given hour of day falls inside the window.
// A nil window is unrestricted. The hour is injected by the caller; this
// function never reads the wall clock.
func (w *TimeWindow) Contains(hour int) bool {
	if w == nil {
		return true
	}
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour <= w.EndHour
	}
	return hour >= w.StartHour || hour <= w.EndHour
}
