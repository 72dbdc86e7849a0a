// models/reminder_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderLog is an audit row per send attempt. It is never read for dedup.
type ReminderLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventID      string    `gorm:"type:varchar(255);index;not null" json:"eventId"`
	Kind         string    `gorm:"type:varchar(32);index;not null" json:"kind"`
	Recipient    string    `gorm:"type:varchar(64)" json:"recipient"`
	Message      string    `gorm:"type:text" json:"message"`
	Status       string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	Channel      string    `gorm:"type:varchar(20)" json:"channel"` // evolution, twilio
	ProviderID   string    `gorm:"type:varchar(128)" json:"providerId,omitempty"`
	SentAt       time.Time `json:"sentAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	LogStatusSent   = "sent"
	LogStatusFailed = "failed"
)

func (r *ReminderLog) BeforeCreate(tx *gorm.DB) (err error) {
	r.ID = uuid.New()
	return
}
