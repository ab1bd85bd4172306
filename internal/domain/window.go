package domain

import "time"

// Window is the half-open interval [Start, End) used to select trainings by start time.
type Window struct {
	Start time.Time
	End   time.Time
}

// PreviousMonth returns [first day of the previous month 00:00, first day of the current month 00:00)
// in the location of now.
func PreviousMonth(now time.Time) Window {
	year, month, _ := now.Date()
	end := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	return Window{Start: end.AddDate(0, -1, 0), End: end}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Label renders the window's month, e.g. "February 2024".
func (w Window) Label() string {
	return w.Start.Format("January 2006")
}

func (w Window) String() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}
