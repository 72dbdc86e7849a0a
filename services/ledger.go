package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agenda-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger records which (event, occurrence, kind) triples have been sent.
type Ledger interface {
	HasSent(ctx context.Context, key models.ReminderKey) (bool, error)
	// MarkSent is insert-if-absent: repeated calls neither fail nor duplicate.
	MarkSent(ctx context.Context, key models.ReminderKey) error
}

// DeliveryJournal keeps the advisory audit trail of send attempts.
type DeliveryJournal interface {
	LogAttempt(ctx context.Context, entry *models.ReminderLog) error
}

// ReminderStore backs both Ledger and DeliveryJournal with gorm.
type ReminderStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReminderStore(db *gorm.DB) *ReminderStore {
	return &ReminderStore{db: db, now: time.Now}
}

func (s *ReminderStore) HasSent(ctx context.Context, key models.ReminderKey) (bool, error) {
	var rec models.ReminderRecord
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND occurrence_key = ? AND kind = ?", key.EventID, key.OccurrenceKey, key.Kind).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup %s/%s: %w", key.EventID, key.Kind, err)
	}
	return true, nil
}

func (s *ReminderStore) MarkSent(ctx context.Context, key models.ReminderKey) error {
	rec := models.ReminderRecord{
		EventID:       key.EventID,
		OccurrenceKey: key.OccurrenceKey,
		Kind:          key.Kind,
		SentAt:        s.now().UTC(),
	}
	// the unique index rejects the second writer; DO NOTHING turns that into a no-op
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("ledger insert %s/%s: %w", key.EventID, key.Kind, err)
	}
	return nil
}

func (s *ReminderStore) Records(ctx context.Context, eventID string) ([]models.ReminderRecord, error) {
	var records []models.ReminderRecord
	q := s.db.WithContext(ctx).Order("sent_at DESC").Limit(500)
	if eventID != "" {
		q = q.Where("event_id = ?", eventID)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *ReminderStore) LogAttempt(ctx context.Context, entry *models.ReminderLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = s.now().UTC()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *ReminderStore) Logs(ctx context.Context, eventID string) ([]models.ReminderLog, error) {
	var logs []models.ReminderLog
	q := s.db.WithContext(ctx).Order("sent_at DESC").Limit(500)
	if eventID != "" {
		q = q.Where("event_id = ?", eventID)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
