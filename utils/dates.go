// utils/dates.go
package utils

import (
	"fmt"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DayWindow returns [00:00, next 00:00) of the day containing t in loc, as UTC
// instants. Using AddDate keeps DST transitions correct.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := BeginningOfDay(t.In(loc))
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// FormatDateBR renders 23/09/2025.
func FormatDateBR(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006")
}

// FormatTimeBR renders 19:20.
func FormatTimeBR(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// FormatShortHour renders 19h or 19h05.
func FormatShortHour(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	if local.Minute() == 0 {
		return fmt.Sprintf("%dh", local.Hour())
	}
	return fmt.Sprintf("%dh%02d", local.Hour(), local.Minute())
}
