package models

import "time"

// CalendarEvent is one concrete occurrence read from the shared calendar.
type CalendarEvent struct {
	ID          string            `json:"id"`
	Start       time.Time         `json:"start"`
	AllDay      bool              `json:"allDay"`
	Summary     string            `json:"summary"`
	Description string            `json:"description,omitempty"`
	Location    string            `json:"location,omitempty"`
	Private     map[string]string `json:"private,omitempty"`
}

// OccurrenceKey distinguishes a rescheduled event from its earlier start time.
func (e CalendarEvent) OccurrenceKey() string {
	return e.Start.UTC().Format(time.RFC3339)
}

// Timed reports whether the event has a real time of day.
func (e CalendarEvent) Timed() bool {
	return e.ID != "" && !e.Start.IsZero() && !e.AllDay
}
