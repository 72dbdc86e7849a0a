package services

import (
	"regexp"
	"strings"

	"agenda-backend/models"
	"agenda-backend/utils"
)

const (
	defaultClientName      = "Cliente"
	defaultResponsibleName = "Responsável"
)

var (
	summaryClientRe = regexp.MustCompile(`(?i)reuni[aã]o\s+com\s+(.+)`)
	responsibleRe   = regexp.MustCompile(`(?i)(?:chefe|coordenador|consultor)\s*[:\-]\s*([^\n]+)`)
	phoneRe         = regexp.MustCompile(`\d{12,13}`)
	nameSuffixRe    = regexp.MustCompile(`\s[-–—|]\s|[-–—|]`)
)

// LeadFields is what a reminder needs from an event. Fallback lists the fields
// that had to be parsed out of free text instead of the booking metadata.
type LeadFields struct {
	ClientName      string
	ResponsibleName string
	Phone           string
	Company         string
	City            string
	Address         string
	ReferredBy      string
	Employees       string
	Revenue         string
	Notes           string
	Instagram       string

	Fallback []string
}

func ExtractLeadFields(ev models.CalendarEvent) LeadFields {
	priv := ev.Private
	f := LeadFields{
		ClientName:      strings.TrimSpace(priv["clienteNome"]),
		ResponsibleName: strings.TrimSpace(priv["chefeNome"]),
		Company:         strings.TrimSpace(priv["empresaNome"]),
		City:            strings.TrimSpace(priv["cidadeOpcional"]),
		Address:         strings.TrimSpace(priv["endereco"]),
		ReferredBy:      strings.TrimSpace(priv["referidoPor"]),
		Employees:       strings.TrimSpace(priv["funcionarios"]),
		Revenue:         strings.TrimSpace(priv["faturamento"]),
		Notes:           strings.TrimSpace(priv["observacoes"]),
		Instagram:       strings.TrimSpace(priv["instagram"]),
	}
	if f.Address == "" {
		f.Address = strings.TrimSpace(ev.Location)
	}
	if phone := utils.DigitsOnly(priv["clienteNumero"]); utils.ValidatePhone(phone) {
		f.Phone = phone
	}

	if f.ClientName == "" {
		if name := clientFromSummary(ev.Summary); name != "" {
			f.ClientName = name
			f.Fallback = append(f.Fallback, "client")
		}
	}
	if f.ResponsibleName == "" {
		if name := responsibleFromDescription(ev.Description); name != "" {
			f.ResponsibleName = name
			f.Fallback = append(f.Fallback, "responsible")
		}
	}
	if f.Phone == "" {
		if phone := phoneRe.FindString(ev.Description); phone != "" {
			f.Phone = phone
			f.Fallback = append(f.Fallback, "phone")
		}
	}
	return f
}

// DisplayClient and DisplayResponsible fall back to neutral wording.
func (f LeadFields) DisplayClient() string {
	if f.ClientName == "" {
		return defaultClientName
	}
	return f.ClientName
}

func (f LeadFields) DisplayResponsible() string {
	if f.ResponsibleName == "" {
		return defaultResponsibleName
	}
	return f.ResponsibleName
}

func clientFromSummary(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}
	m := summaryClientRe.FindStringSubmatch(summary)
	if m == nil {
		return summary
	}
	return firstSegment(m[1])
}

func responsibleFromDescription(desc string) string {
	m := responsibleRe.FindStringSubmatch(desc)
	if m == nil {
		return ""
	}
	return firstSegment(m[1])
}

// firstSegment drops suffixes like "Ana - Loja Centro" or "Ana | retorno".
func firstSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	name := strings.TrimSpace(nameSuffixRe.Split(raw, 2)[0])
	if name == "" {
		return raw
	}
	return name
}
