package services

import (
	"fmt"
	"strings"
	"time"

	"agenda-backend/config"
	"agenda-backend/models"
	"agenda-backend/utils"
)

// MessageInput carries what a body needs. Loc is used for display only.
type MessageInput struct {
	Event        models.CalendarEvent
	Fields       LeadFields
	MinutesUntil int
	Loc          *time.Location
	Program      string
}

func ComposeReminder(style string, in MessageInput) (string, error) {
	if in.Loc == nil {
		in.Loc = time.UTC
	}
	switch style {
	case config.StyleBriefing:
		return composeBriefing(in), nil
	case config.StyleCountdown:
		return fmt.Sprintf("⏰ Oi, %s! Sua reunião do *%s* com o *%s* começa %s.\n📅 %s às %s",
			in.Fields.DisplayClient(), in.Program, in.Fields.DisplayResponsible(),
			leadTime(in.MinutesUntil),
			utils.FormatDateBR(in.Event.Start, in.Loc), utils.FormatTimeBR(in.Event.Start, in.Loc)), nil
	case config.StyleTomorrow:
		return fmt.Sprintf("👋 Oi, %s! Passando só pra te lembrar que amanhã você tem sua reunião do *%s* com o *%s*.\n📅 %s às %s",
			in.Fields.DisplayClient(), in.Program, in.Fields.DisplayResponsible(),
			utils.FormatDateBR(in.Event.Start, in.Loc), utils.FormatTimeBR(in.Event.Start, in.Loc)), nil
	case config.StyleToday:
		return fmt.Sprintf("📌 Oi, %s! Passando para lembrar que sua reunião sobre o *%s* com *%s* está agendada para hoje às %s.",
			in.Fields.DisplayClient(), in.Program, in.Fields.DisplayResponsible(),
			utils.FormatTimeBR(in.Event.Start, in.Loc)), nil
	default:
		return "", fmt.Errorf("no event message for style %q", style)
	}
}

// composeBriefing is the internal heads-up; empty lines are omitted.
func composeBriefing(in MessageInput) string {
	f := in.Fields
	top := fmt.Sprintf("Dentro de %d minutos reuniao com %s", in.MinutesUntil, f.DisplayClient())
	if f.Company != "" {
		if f.City != "" {
			top += fmt.Sprintf(" (%s – %s)", f.Company, f.City)
		} else {
			top += fmt.Sprintf(" (%s)", f.Company)
		}
	}

	lines := []string{top, "⏰ " + utils.FormatShortHour(in.Event.Start, in.Loc)}
	add := func(prefix, value string) {
		if value != "" {
			lines = append(lines, prefix+value)
		}
	}
	add("📞 ", f.Phone)
	add("📍 ", f.Address)
	add("🔗 Referido por: ", f.ReferredBy)
	add("👥 ", f.Employees)
	add("💰 Faturamento: ", f.Revenue)
	add("💬 ", f.Notes)
	add("🔗 Instagram: ", f.Instagram)
	return strings.Join(lines, "\n")
}

func leadTime(minutes int) string {
	if minutes >= 55 {
		hours := (minutes + 30) / 60
		if hours == 1 {
			return "daqui a 1 hora"
		}
		return fmt.Sprintf("daqui a %d horas", hours)
	}
	if minutes <= 1 {
		return "em instantes"
	}
	return fmt.Sprintf("daqui a %d minutos", minutes)
}
