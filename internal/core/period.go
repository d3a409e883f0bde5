package core

import (
	"fmt"
	"time"
)

const (
	MinStartDay = 1
	MaxStartDay = 31
)

// endOfDayOffset is 23:59:59.999, the inclusive upper bound of a period.
const endOfDayOffset = 24*time.Hour - time.Millisecond

var monthAbbrevPT = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Window is a closed interval [Start, End] of instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// ClampStartDay forces a month-start day into [1, 31].
func ClampStartDay(day int) int {
	if day < MinStartDay {
		return MinStartDay
	}
	if day > MaxStartDay {
		return MaxStartDay
	}
	return day
}

// Period returns the custom billing month that ref falls in. While ref's day
// is before startDay the previous month's cycle is still open, so the window
// starts on startDay of the month before ref.
func Period(ref time.Time, startDay int) Window {
	startDay = ClampStartDay(startDay)
	shift := 0
	if ref.Day() < startDay {
		shift = -1
	}
	return periodFrom(ref, startDay, shift)
}

// PeriodAt returns the custom month starting on startDay of ref's month plus
// offset. No boundary rule is applied: the offset is taken literally.
func PeriodAt(ref time.Time, startDay, offset int) Window {
	return periodFrom(ref, ClampStartDay(startDay), offset)
}

// periodFrom relies on time.Date normalization: a startDay past the end of
// the target month rolls into the next month.
func periodFrom(ref time.Time, startDay, offset int) Window {
	start := time.Date(ref.Year(), ref.Month()+time.Month(offset), startDay, 0, 0, 0, 0, time.UTC)
	last := start.AddDate(0, 1, -1)
	return Window{Start: start, End: last.Add(endOfDayOffset)}
}

// Contains reports whether t lies within the window, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Shift returns the window offset whole custom months away, keeping the same
// start day.
func (w Window) Shift(months int) Window {
	return PeriodAt(w.Start, w.Start.Day(), months)
}

// QueryDates returns the inclusive bounds as YYYY-MM-DD for outgoing filters.
func (w Window) QueryDates() (from, to string) {
	return w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly)
}

// Label renders the window as "10 fev 2024 - 09 mar 2024".
func (w Window) Label() string {
	return fmt.Sprintf("%s - %s", dayLabel(w.Start), dayLabel(w.End))
}

func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

func dayLabel(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), monthAbbrevPT[t.Month()-1], t.Year())
}
