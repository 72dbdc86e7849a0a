package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"agenda-backend/models"
	"agenda-backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.ReminderRecord{}, &models.ReminderLog{}))
	return db
}

func newTestStore(t *testing.T) *ReminderStore {
	t.Helper()
	return NewReminderStore(newTestDB(t))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeSource struct {
	mu      sync.Mutex
	events  []models.CalendarEvent
	err     error
	calls   int
	lastMin time.Time
	lastMax time.Time
}

func (f *fakeSource) Fetch(_ context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMin, f.lastMax = timeMin, timeMax
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.CalendarEvent(nil), f.events...), nil
}

type sentMessage struct {
	Instance  string
	Recipient string
	Text      string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
	// onSend runs after the message is recorded, outside the lock.
	onSend func()
}

func (m *fakeMessenger) Channel() string { return "fake" }

func (m *fakeMessenger) Recipient(phone string) string { return utils.WhatsAppID(phone) }

func (m *fakeMessenger) Send(_ context.Context, instance, recipient, text string) (Delivery, error) {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{Instance: instance, Recipient: recipient, Text: text})
	n, err, hook := len(m.sent), m.err, m.onSend
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{Channel: m.Channel(), ProviderID: fmt.Sprintf("msg-%d", n)}, nil
}

// gate blocks the first Send until release is closed, and closes entered
// once that Send is in flight.
func (m *fakeMessenger) gate() (entered <-chan struct{}, release chan struct{}) {
	in, out := make(chan struct{}), make(chan struct{})
	var once sync.Once
	m.onSend = func() {
		once.Do(func() { close(in) })
		<-out
	}
	return in, out
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// flakyLedger wraps a real ledger and fails on demand.
type flakyLedger struct {
	Ledger
	hasErr  error
	markErr error
}

func (l *flakyLedger) HasSent(ctx context.Context, key models.ReminderKey) (bool, error) {
	if l.hasErr != nil {
		return false, l.hasErr
	}
	return l.Ledger.HasSent(ctx, key)
}

func (l *flakyLedger) MarkSent(ctx context.Context, key models.ReminderKey) error {
	if l.markErr != nil {
		return l.markErr
	}
	return l.Ledger.MarkSent(ctx, key)
}

var errBoom = errors.New("boom")

func leadEvent(id string, start time.Time, phone string) models.CalendarEvent {
	ev := models.CalendarEvent{
		ID:      id,
		Start:   start,
		Summary: "Reunião com Ana Souza",
		Private: map[string]string{
			"clienteNome": "Ana Souza",
			"chefeNome":   "Marcos",
		},
	}
	if phone != "" {
		ev.Private["clienteNumero"] = phone
	}
	return ev
}
