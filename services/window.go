package services

import (
	"math"
	"time"

	"agenda-backend/config"
	"agenda-backend/models"
	"agenda-backend/utils"
)

// Window is the inclusive range of minutes-until-start in which a kind fires.
type Window struct {
	Kind string
	Min  int
	Max  int
}

func WindowFor(p config.ReminderPolicy) Window {
	return Window{Kind: p.Kind, Min: p.WindowMin, Max: p.WindowMax}
}

// MinutesUntil rounds half away from zero. Both sides are absolute instants,
// so the timezone of either value does not matter.
func MinutesUntil(start, now time.Time) int {
	return int(math.Round(start.Sub(now).Minutes()))
}

func IsEligible(ev models.CalendarEvent, w Window, now time.Time) bool {
	if !ev.Timed() {
		return false
	}
	diff := MinutesUntil(ev.Start, now)
	return w.Min <= diff && diff <= w.Max
}

// FetchRange covers every start instant that can round into the window.
func (w Window) FetchRange(now time.Time) (time.Time, time.Time) {
	return now.Add(time.Duration(w.Min-1) * time.Minute), now.Add(time.Duration(w.Max+1) * time.Minute)
}

// IsSameLocalDay reports whether a timed event starts on the local day of now.
func IsSameLocalDay(ev models.CalendarEvent, now time.Time, loc *time.Location) bool {
	if !ev.Timed() {
		return false
	}
	start, end := utils.DayWindow(now, loc)
	return !ev.Start.Before(start) && ev.Start.Before(end)
}
