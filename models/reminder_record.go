// models/reminder_record.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderRecord marks one (event, occurrence, kind) as sent. Rows are only ever
// inserted; the composite unique index is what enforces at-most-once delivery.
type ReminderRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventID       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_reminder_key,priority:1" json:"eventId"`
	OccurrenceKey string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_reminder_key,priority:2" json:"occurrenceKey"`
	Kind          string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_reminder_key,priority:3" json:"kind"`
	SentAt        time.Time `gorm:"not null" json:"sentAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (r *ReminderRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ReminderKey addresses a ReminderRecord.
type ReminderKey struct {
	EventID       string `json:"eventId"`
	OccurrenceKey string `json:"occurrenceKey"`
	Kind          string `json:"kind"`
}
