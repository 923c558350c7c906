package types

import "time"

// All day arithmetic is UTC. A "day" is a UTC calendar day; its end instant
// is 23:59:59.999, the boundary every snapshot row is keyed by.

// DayKeyFormat is the string form of a delta-cache day key.
const DayKeyFormat = "2006-01-02"

// DayStart returns midnight UTC of t's calendar day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayEnd returns 23:59:59.999 UTC of t's calendar day.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// PrevDayEnd returns the day-end instant of the calendar day before t's.
func PrevDayEnd(t time.Time) time.Time {
	return DayStart(t).Add(-time.Millisecond)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}

// DayKey formats t's UTC calendar day as a stable cache/storage key.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyFormat)
}
