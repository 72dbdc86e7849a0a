package services

import (
	"strings"
	"testing"
	"time"

	"agenda-backend/config"
	"agenda-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composeInput(t *testing.T, minutes int) MessageInput {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return MessageInput{
		Event:        models.CalendarEvent{ID: "e1", Start: time.Date(2025, 9, 23, 22, 5, 0, 0, time.UTC)},
		Fields:       LeadFields{ClientName: "Ana", ResponsibleName: "Marcos"},
		MinutesUntil: minutes,
		Loc:          loc,
		Program:      "Desafio Empreendedor",
	}
}

func TestComposeCountdown(t *testing.T) {
	text, err := ComposeReminder(config.StyleCountdown, composeInput(t, 60))
	require.NoError(t, err)
	assert.Equal(t, "⏰ Oi, Ana! Sua reunião do *Desafio Empreendedor* com o *Marcos* começa daqui a 1 hora.\n📅 23/09/2025 às 19:05", text)

	text, err = ComposeReminder(config.StyleCountdown, composeInput(t, 30))
	require.NoError(t, err)
	assert.Contains(t, text, "começa daqui a 30 minutos")
}

func TestComposeTomorrowAndToday(t *testing.T) {
	text, err := ComposeReminder(config.StyleTomorrow, composeInput(t, 1440))
	require.NoError(t, err)
	assert.Contains(t, text, "amanhã você tem sua reunião do *Desafio Empreendedor* com o *Marcos*")
	assert.Contains(t, text, "📅 23/09/2025 às 19:05")

	text, err = ComposeReminder(config.StyleToday, composeInput(t, 600))
	require.NoError(t, err)
	assert.Contains(t, text, "agendada para hoje às 19:05")
}

func TestComposeBriefingOmitsEmptyLines(t *testing.T) {
	in := composeInput(t, 30)
	in.Fields.Phone = "5531988887777"
	in.Fields.Revenue = "R$ 50 mil"

	text, err := ComposeReminder(config.StyleBriefing, in)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	assert.Equal(t, []string{
		"Dentro de 30 minutos reuniao com Ana",
		"⏰ 19h05",
		"📞 5531988887777",
		"💰 Faturamento: R$ 50 mil",
	}, lines)
}

func TestComposeUnknownStyle(t *testing.T) {
	_, err := ComposeReminder(config.StyleMotivational, composeInput(t, 30))
	assert.Error(t, err)
}

func TestLeadTime(t *testing.T) {
	assert.Equal(t, "em instantes", leadTime(1))
	assert.Equal(t, "daqui a 29 minutos", leadTime(29))
	assert.Equal(t, "daqui a 1 hora", leadTime(66))
	assert.Equal(t, "daqui a 2 horas", leadTime(120))
}
