// config/settings.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Settings is everything the process needs, read once at startup and handed to
// constructors. Nothing below main reads the environment.
type Settings struct {
	Port     string
	LogLevel string
	LogJSON  bool
	Timezone string

	Database  DatabaseSettings
	Calendar  CalendarSettings
	Messaging MessagingSettings
	AI        AISettings

	// StaffNumber receives staff-audience reminders (30m briefing, motivational).
	StaffNumber string
	StaffName   string

	// ProgramName appears in lead-facing messages.
	ProgramName string

	Policies []ReminderPolicy
}

type DatabaseSettings struct {
	Driver string // postgres or sqlite
	URL    string
}

type CalendarSettings struct {
	ID         string
	Email      string
	PrivateKey string
}

type MessagingSettings struct {
	Provider string // evolution or twilio
	Instance string

	EvolutionURL    string
	EvolutionAPIKey string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

type AISettings struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (a AISettings) Enabled() bool { return a.APIKey != "" }

// Load reads .env (optional), the environment and the reminder policy file.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	s := &Settings{
		Port:     getEnvOrDefault("PORT", "8080"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_FORMAT") == "json",
		Timezone: getEnvOrDefault("TIMEZONE", "America/Sao_Paulo"),
		Database: DatabaseSettings{
			Driver: getEnvOrDefault("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DB_URL"),
		},
		Calendar: CalendarSettings{
			ID:    getEnvOrDefault("GOOGLE_CALENDAR_ID", "primary"),
			Email: os.Getenv("GOOGLE_CALENDAR_EMAIL"),
			// keys pasted into .env carry literal \n sequences
			PrivateKey: strings.ReplaceAll(os.Getenv("GOOGLE_CALENDAR_PRIVATE_KEY"), `\n`, "\n"),
		},
		Messaging: MessagingSettings{
			Provider:         getEnvOrDefault("MESSAGING_PROVIDER", "evolution"),
			Instance:         os.Getenv("WHATSAPP_INSTANCE"),
			EvolutionURL:     os.Getenv("EVOLUTION_API_URL"),
			EvolutionAPIKey:  os.Getenv("EVOLUTION_API_KEY"),
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioFrom:       os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		},
		AI: AISettings{
			APIKey:  os.Getenv("AI_API_KEY"),
			BaseURL: getEnvOrDefault("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
			Model:   getEnvOrDefault("AI_MODEL", "gemini-2.0-flash"),
		},
		StaffNumber: os.Getenv("STAFF_NUMBER"),
		StaffName:   getEnvOrDefault("STAFF_NAME", "Equipe"),
		ProgramName: getEnvOrDefault("PROGRAM_NAME", "Desafio Empreendedor"),
	}

	policies := DefaultPolicies(s.Timezone)
	if path := os.Getenv("REMINDERS_CONFIG"); path != "" {
		loaded, err := LoadPolicies(path, s.Timezone)
		if err != nil {
			return nil, err
		}
		policies = loaded
	}
	s.Policies = policies

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	var errs []error

	if s.Database.URL == "" {
		errs = append(errs, errors.New("DB_URL is required"))
	}
	switch s.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", s.Database.Driver))
	}

	if s.Calendar.Email == "" || s.Calendar.PrivateKey == "" {
		errs = append(errs, errors.New("GOOGLE_CALENDAR_EMAIL and GOOGLE_CALENDAR_PRIVATE_KEY are required"))
	}

	switch s.Messaging.Provider {
	case "evolution":
		if s.Messaging.EvolutionURL == "" || s.Messaging.EvolutionAPIKey == "" {
			errs = append(errs, errors.New("EVOLUTION_API_URL and EVOLUTION_API_KEY are required"))
		}
	case "twilio":
		if s.Messaging.TwilioAccountSID == "" || s.Messaging.TwilioAuthToken == "" || s.Messaging.TwilioFrom == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported MESSAGING_PROVIDER %q", s.Messaging.Provider))
	}

	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", s.Timezone, err))
	}

	for _, p := range s.Policies {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if !p.Disabled && p.Audience == AudienceStaff && s.StaffNumber == "" {
			errs = append(errs, fmt.Errorf("kind %s: STAFF_NUMBER is required for staff audience", p.Kind))
		}
	}

	return errors.Join(errs...)
}

// Policy returns the policy registered for kind.
func (s *Settings) Policy(kind string) (ReminderPolicy, bool) {
	for _, p := range s.Policies {
		if p.Kind == kind {
			return p, true
		}
	}
	return ReminderPolicy{}, false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
