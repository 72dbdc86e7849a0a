// services/reminder_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agenda-backend/config"
	"agenda-backend/models"
	"agenda-backend/utils"

	"github.com/rs/zerolog/log"
)

// RunReport summarizes one invocation of a reminder kind.
type RunReport struct {
	Kind         string    `json:"kind"`
	StartedAt    time.Time `json:"startedAt"`
	Fetched      int       `json:"fetched"`
	Eligible     int       `json:"eligible"`
	Sent         int       `json:"sent"`
	AlreadySent  int       `json:"alreadySent"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	LedgerErrors int       `json:"ledgerErrors"`
}

// Recipients holds the fixed addresses and texts shared by every kind.
type Recipients struct {
	StaffNumber string
	ProgramName string
}

type ReminderService struct {
	source    EventSource
	ledger    Ledger
	journal   DeliveryJournal
	messenger Messenger
	cfg       Recipients
	now       func() time.Time
}

func NewReminderService(source EventSource, ledger Ledger, journal DeliveryJournal, messenger Messenger, cfg Recipients) *ReminderService {
	return &ReminderService{
		source:    source,
		ledger:    ledger,
		journal:   journal,
		messenger: messenger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, mostly for tests.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// Run evaluates one window or daily policy against the calendar. A fetch error
// aborts the run before anything is sent; per-event problems are counted.
func (s *ReminderService) Run(ctx context.Context, p config.ReminderPolicy) (RunReport, error) {
	now := s.now()
	report := RunReport{Kind: p.Kind, StartedAt: now.UTC()}

	loc, err := p.Location()
	if err != nil {
		return report, fmt.Errorf("kind %s: %w", p.Kind, err)
	}

	var (
		events   []models.CalendarEvent
		eligible func(models.CalendarEvent) bool
	)
	switch p.Mode {
	case config.ModeWindow:
		w := WindowFor(p)
		from, to := w.FetchRange(now)
		events, err = s.source.Fetch(ctx, from, to)
		eligible = func(ev models.CalendarEvent) bool { return IsEligible(ev, w, now) }
	case config.ModeDaily:
		from, to := utils.DayWindow(now, loc)
		events, err = s.source.Fetch(ctx, from, to)
		eligible = func(ev models.CalendarEvent) bool { return IsSameLocalDay(ev, now, loc) }
	default:
		return report, fmt.Errorf("kind %s: mode %q is not calendar driven", p.Kind, p.Mode)
	}
	if err != nil {
		return report, fmt.Errorf("kind %s: fetch events: %w", p.Kind, err)
	}
	report.Fetched = len(events)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !eligible(ev) {
			continue
		}
		report.Eligible++
		s.dispatch(ctx, p, ev, now, loc, &report)
	}

	log.Info().
		Str("kind", p.Kind).
		Int("fetched", report.Fetched).
		Int("eligible", report.Eligible).
		Int("sent", report.Sent).
		Int("already_sent", report.AlreadySent).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("ledger_errors", report.LedgerErrors).
		Msg("Reminder run finished")
	return report, nil
}

func (s *ReminderService) dispatch(ctx context.Context, p config.ReminderPolicy, ev models.CalendarEvent, now time.Time, loc *time.Location, report *RunReport) {
	key := models.ReminderKey{EventID: ev.ID, OccurrenceKey: ev.OccurrenceKey(), Kind: p.Kind}
	logger := log.With().Str("kind", p.Kind).Str("event_id", ev.ID).Str("occurrence", key.OccurrenceKey).Logger()

	sent, err := s.ledger.HasSent(ctx, key)
	if err != nil {
		// unknown state: sending could duplicate, so leave it for the next poll
		report.LedgerErrors++
		logger.Error().Err(err).Msg("Ledger lookup failed, skipping event")
		return
	}
	if sent {
		report.AlreadySent++
		return
	}

	fields := ExtractLeadFields(ev)
	if len(fields.Fallback) > 0 {
		logger.Warn().Strs("fields", fields.Fallback).Msg("Lead data parsed from free text")
	}

	phone := fields.Phone
	if p.Audience == config.AudienceStaff {
		phone = s.cfg.StaffNumber
	}
	if !utils.ValidatePhone(phone) {
		report.Skipped++
		logger.Warn().Str("audience", p.Audience).Str("phone", phone).Msg("No usable phone, skipping event")
		return
	}

	text, err := ComposeReminder(p.Style, MessageInput{
		Event:        ev,
		Fields:       fields,
		MinutesUntil: MinutesUntil(ev.Start, now),
		Loc:          loc,
		Program:      s.cfg.ProgramName,
	})
	if err != nil {
		report.Skipped++
		logger.Error().Err(err).Msg("Cannot compose reminder")
		return
	}

	recipient := s.messenger.Recipient(phone)
	delivery, sendErr := s.messenger.Send(ctx, p.Instance, recipient, text)

	// once the gateway was called the outcome must be recorded, even if the run
	// was cancelled meanwhile
	recordCtx := context.WithoutCancel(ctx)
	s.recordAttempt(recordCtx, key, recipient, text, delivery, sendErr)

	// marked even when the send errored: a lost confirmation must not turn into
	// a resend on every poll
	if err := s.ledger.MarkSent(recordCtx, key); err != nil {
		report.LedgerErrors++
		logger.Error().Err(err).Msg("Ledger write failed, event may be resent")
	}

	if sendErr != nil {
		report.Failed++
		logger.Error().Err(sendErr).Str("to", recipient).Msg("Reminder send failed")
		return
	}
	report.Sent++
	logger.Info().Str("to", recipient).Str("provider_id", delivery.ProviderID).Msg("Reminder sent")
}

func (s *ReminderService) recordAttempt(ctx context.Context, key models.ReminderKey, recipient, text string, d Delivery, sendErr error) {
	if s.journal == nil {
		return
	}
	entry := &models.ReminderLog{
		EventID:    key.EventID,
		Kind:       key.Kind,
		Recipient:  recipient,
		Message:    text,
		Status:     models.LogStatusSent,
		Channel:    s.messenger.Channel(),
		ProviderID: d.ProviderID,
	}
	if sendErr != nil {
		entry.Status = models.LogStatusFailed
		entry.ErrorMessage = strings.TrimSpace(sendErr.Error())
	}
	if err := s.journal.LogAttempt(ctx, entry); err != nil {
		log.Warn().Err(err).Str("event_id", key.EventID).Msg("Failed to write reminder log")
	}
}
