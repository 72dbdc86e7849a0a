// config/policy.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	ModeWindow    = "window"    // minutes-until-start window
	ModeDaily     = "daily"     // every timed event of the local day
	ModeGenerated = "generated" // AI text, not tied to calendar events

	AudienceLead  = "lead"
	AudienceStaff = "staff"

	StyleBriefing     = "briefing"
	StyleCountdown    = "countdown"
	StyleTomorrow     = "tomorrow"
	StyleToday        = "today"
	StyleMotivational = "motivational"
)

// CronParser accepts five-field expressions, descriptors like @every and the
// CRON_TZ= prefix.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ReminderPolicy describes one reminder kind.
type ReminderPolicy struct {
	Kind           string        `yaml:"kind"`
	Mode           string        `yaml:"mode"`
	WindowMin      int           `yaml:"window_min"`
	WindowMax      int           `yaml:"window_max"`
	PollingCadence time.Duration `yaml:"polling_cadence"`
	Cron           string        `yaml:"cron"`
	Timezone       string        `yaml:"timezone"`
	Audience       string        `yaml:"audience"`
	Style          string        `yaml:"style"`
	Instance       string        `yaml:"instance"`
	Disabled       bool          `yaml:"disabled"`
}

type policyFile struct {
	Reminders []ReminderPolicy `yaml:"reminders"`
}

// DefaultPolicies mirrors the jobs the funnel has always run. The 30m window is
// wider than the historical 29..31 so a five-minute cadence cannot step over it.
func DefaultPolicies(tz string) []ReminderPolicy {
	return []ReminderPolicy{
		{Kind: "30m", Mode: ModeWindow, WindowMin: 28, WindowMax: 33, Cron: "*/5 * * * *", Timezone: tz, Audience: AudienceStaff, Style: StyleBriefing},
		{Kind: "1h", Mode: ModeWindow, WindowMin: 59, WindowMax: 66, Cron: "*/5 * * * *", Timezone: tz, Audience: AudienceLead, Style: StyleCountdown},
		{Kind: "24h", Mode: ModeWindow, WindowMin: 1425, WindowMax: 1455, Cron: "*/15 * * * *", Timezone: tz, Audience: AudienceLead, Style: StyleTomorrow},
		{Kind: "daily08h", Mode: ModeDaily, Cron: "0 8 * * *", Timezone: tz, Audience: AudienceLead, Style: StyleToday},
		{Kind: "motivational", Mode: ModeGenerated, Cron: "0 8 * * 1-5", Timezone: tz, Audience: AudienceStaff, Style: StyleMotivational},
	}
}

// LoadPolicies reads a YAML policy file; missing fields fall back to defaults.
func LoadPolicies(path, defaultTZ string) ([]ReminderPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reminders config: %w", err)
	}
	return ParsePolicies(raw, defaultTZ)
}

func ParsePolicies(raw []byte, defaultTZ string) ([]ReminderPolicy, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse reminders config: %w", err)
	}
	if len(f.Reminders) == 0 {
		return nil, fmt.Errorf("reminders config has no reminders")
	}

	seen := make(map[string]bool, len(f.Reminders))
	out := make([]ReminderPolicy, 0, len(f.Reminders))
	for _, p := range f.Reminders {
		p = p.withDefaults(defaultTZ)
		if seen[p.Kind] {
			return nil, fmt.Errorf("duplicate reminder kind %q", p.Kind)
		}
		seen[p.Kind] = true
		out = append(out, p)
	}
	return out, nil
}

func (p ReminderPolicy) withDefaults(defaultTZ string) ReminderPolicy {
	p.Kind = strings.TrimSpace(p.Kind)
	if p.Mode == "" {
		p.Mode = ModeWindow
	}
	if p.Timezone == "" {
		p.Timezone = defaultTZ
	}
	if p.Audience == "" {
		p.Audience = AudienceLead
		if p.Mode == ModeGenerated {
			p.Audience = AudienceStaff
		}
	}
	if p.Style == "" {
		switch p.Mode {
		case ModeDaily:
			p.Style = StyleToday
		case ModeGenerated:
			p.Style = StyleMotivational
		default:
			p.Style = StyleCountdown
		}
	}
	return p
}

// CronSpec is the cron expression pinned to the policy timezone.
func (p ReminderPolicy) CronSpec() string {
	if p.Timezone == "" || strings.HasPrefix(p.Cron, "CRON_TZ=") || strings.HasPrefix(p.Cron, "TZ=") {
		return p.Cron
	}
	return "CRON_TZ=" + p.Timezone + " " + p.Cron
}

func (p ReminderPolicy) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

// Cadence returns the configured polling cadence, or the largest gap between
// consecutive cron activations over the next two days when none is set.
func (p ReminderPolicy) Cadence() (time.Duration, error) {
	if p.PollingCadence > 0 {
		return p.PollingCadence, nil
	}
	sched, err := CronParser.Parse(p.CronSpec())
	if err != nil {
		return 0, err
	}
	loc, err := p.Location()
	if err != nil {
		return 0, err
	}
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, loc)
	horizon := from.Add(48 * time.Hour)

	var maxGap time.Duration
	prev := sched.Next(from)
	for !prev.IsZero() && prev.Before(horizon) {
		next := sched.Next(prev)
		if next.IsZero() {
			break
		}
		if gap := next.Sub(prev); gap > maxGap {
			maxGap = gap
		}
		prev = next
	}
	return maxGap, nil
}

func (p ReminderPolicy) Validate() error {
	if p.Kind == "" {
		return fmt.Errorf("reminder policy without kind")
	}
	if strings.TrimSpace(p.Cron) == "" {
		return fmt.Errorf("kind %s: cron is required", p.Kind)
	}
	if _, err := p.Location(); err != nil {
		return fmt.Errorf("kind %s: invalid timezone %q: %w", p.Kind, p.Timezone, err)
	}
	if _, err := CronParser.Parse(p.CronSpec()); err != nil {
		return fmt.Errorf("kind %s: invalid cron %q: %w", p.Kind, p.Cron, err)
	}

	switch p.Audience {
	case AudienceLead, AudienceStaff:
	default:
		return fmt.Errorf("kind %s: unknown audience %q", p.Kind, p.Audience)
	}

	switch p.Mode {
	case ModeWindow:
		if p.WindowMin < 0 || p.WindowMax < p.WindowMin {
			return fmt.Errorf("kind %s: invalid window [%d, %d]", p.Kind, p.WindowMin, p.WindowMax)
		}
		cadence, err := p.Cadence()
		if err != nil {
			return fmt.Errorf("kind %s: %w", p.Kind, err)
		}
		width := time.Duration(p.WindowMax-p.WindowMin) * time.Minute
		if cadence > width {
			return fmt.Errorf("kind %s: polling cadence %s exceeds window width %s, events would be skipped", p.Kind, cadence, width)
		}
	case ModeDaily:
	case ModeGenerated:
		if p.Audience != AudienceStaff {
			return fmt.Errorf("kind %s: generated messages go to staff only", p.Kind)
		}
	default:
		return fmt.Errorf("kind %s: unknown mode %q", p.Kind, p.Mode)
	}

	switch p.Style {
	case StyleBriefing, StyleCountdown, StyleTomorrow, StyleToday, StyleMotivational:
	default:
		return fmt.Errorf("kind %s: unknown style %q", p.Kind, p.Style)
	}
	return nil
}
