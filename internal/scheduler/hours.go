package scheduler

import "time"

// Hours is the business-hours window: [Start, End) on each listed weekday,
// evaluated against Location's wall clock.
type Hours struct {
	Weekdays []time.Weekday
	Start    int
	End      int
	Location *time.Location
}

// Contains reports whether t falls inside the window.
func (h Hours) Contains(t time.Time) bool {
	local := t.In(h.Location)
	day := local.Weekday()
	found := false
	for _, wd := range h.Weekdays {
		if wd == day {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	hour := local.Hour()
	return hour >= h.Start && hour < h.End
}

// Now reports whether the current time falls inside the window.
func (h Hours) Now() bool {
	return h.Contains(time.Now())
}
