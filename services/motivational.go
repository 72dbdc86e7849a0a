package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"agenda-backend/config"
	"agenda-backend/models"
	"agenda-backend/utils"

	"github.com/rs/zerolog/log"
)

const motivationalAttempts = 2

// MotivationalService sends one AI-written morning message to staff per local day.
type MotivationalService struct {
	generator  TextGenerator
	ledger     Ledger
	journal    DeliveryJournal
	messenger  Messenger
	number     string
	name       string
	now        func() time.Time
	retryDelay time.Duration
}

func NewMotivationalService(generator TextGenerator, ledger Ledger, journal DeliveryJournal, messenger Messenger, staffNumber, staffName string) *MotivationalService {
	return &MotivationalService{
		generator:  generator,
		ledger:     ledger,
		journal:    journal,
		messenger:  messenger,
		number:     staffNumber,
		name:       staffName,
		now:        time.Now,
		retryDelay: 500 * time.Millisecond,
	}
}

func (s *MotivationalService) WithClock(now func() time.Time) *MotivationalService {
	s.now = now
	return s
}

// WithRetryDelay sets the base backoff; attempt n waits n times this.
func (s *MotivationalService) WithRetryDelay(d time.Duration) *MotivationalService {
	s.retryDelay = d
	return s
}

func (s *MotivationalService) Run(ctx context.Context, p config.ReminderPolicy) (RunReport, error) {
	now := s.now()
	report := RunReport{Kind: p.Kind, StartedAt: now.UTC()}

	loc, err := p.Location()
	if err != nil {
		return report, fmt.Errorf("kind %s: %w", p.Kind, err)
	}
	key := models.ReminderKey{EventID: p.Kind, OccurrenceKey: now.In(loc).Format("2006-01-02"), Kind: p.Kind}
	report.Eligible = 1

	sent, err := s.ledger.HasSent(ctx, key)
	if err != nil {
		report.LedgerErrors++
		return report, err
	}
	if sent {
		report.AlreadySent++
		return report, nil
	}
	if !utils.ValidatePhone(s.number) {
		report.Skipped++
		log.Warn().Str("kind", p.Kind).Msg("No staff number for motivational message")
		return report, nil
	}

	text, err := s.generate(ctx)
	if err != nil {
		report.Failed++
		return report, fmt.Errorf("kind %s: generate message: %w", p.Kind, err)
	}

	recipient := s.messenger.Recipient(s.number)
	delivery, sendErr := s.messenger.Send(ctx, p.Instance, recipient, text)
	recordCtx := context.WithoutCancel(ctx)

	if s.journal != nil {
		entry := &models.ReminderLog{
			EventID:    key.EventID,
			Kind:       key.Kind,
			Recipient:  recipient,
			Message:    text,
			Status:     models.LogStatusSent,
			Channel:    s.messenger.Channel(),
			ProviderID: delivery.ProviderID,
		}
		if sendErr != nil {
			entry.Status = models.LogStatusFailed
			entry.ErrorMessage = sendErr.Error()
		}
		if err := s.journal.LogAttempt(recordCtx, entry); err != nil {
			log.Warn().Err(err).Str("kind", p.Kind).Msg("Failed to write reminder log")
		}
	}

	if err := s.ledger.MarkSent(recordCtx, key); err != nil {
		report.LedgerErrors++
		log.Error().Err(err).Str("kind", p.Kind).Msg("Ledger write failed, message may be resent")
	}
	if sendErr != nil {
		report.Failed++
		log.Error().Err(sendErr).Str("kind", p.Kind).Msg("Motivational message send failed")
		return report, nil
	}
	report.Sent++
	log.Info().Str("kind", p.Kind).Str("to", recipient).Msg("Motivational message sent")
	return report, nil
}

func (s *MotivationalService) generate(ctx context.Context) (string, error) {
	prompt := motivationalPrompt(s.name)
	var lastErr error
	for attempt := 1; attempt <= motivationalAttempts; attempt++ {
		text, err := s.generator.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
		if err == nil {
			err = fmt.Errorf("empty response")
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("Motivational generation failed")
		if attempt == motivationalAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	return "", lastErr
}

func motivationalPrompt(name string) string {
	return fmt.Sprintf("Escreva em português-BR uma mensagem curta (2 a 3 frases) de liderança e encorajamento para iniciar o dia de %s. "+
		"Use referências sutis a John Maxwell, Winston Churchill e Salomão (Provérbios), sem citações literais longas. "+
		"Conecte a mensagem a foco, coragem e sabedoria aplicadas ao trabalho. Seja humano e prático. Sem hashtags. No máximo 1 emoji. "+
		"Responda APENAS com a mensagem final, sem títulos ou explicações.", titleCase(name))
}

func titleCase(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
