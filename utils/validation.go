// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// DigitsOnly strips everything but digits.
func DigitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// ValidatePhone accepts numbers carrying country and area code: 12 digits for
// Brazilian landlines, 13 for mobiles. Free-text extraction uses the same range.
func ValidatePhone(phone string) bool {
	n := len(DigitsOnly(phone))
	return n >= 12 && n <= 13
}

// WhatsAppID turns "55 (31) 98888-7777" or "5531988887777@c.us" into the
// Evolution API chat id.
func WhatsAppID(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasSuffix(phone, "@c.us") {
		return DigitsOnly(strings.TrimSuffix(phone, "@c.us")) + "@c.us"
	}
	return DigitsOnly(phone) + "@c.us"
}

// TwilioWhatsApp turns a phone into Twilio's "whatsapp:+<digits>" address.
func TwilioWhatsApp(phone string) string {
	return "whatsapp:+" + DigitsOnly(strings.TrimSuffix(strings.TrimSpace(phone), "@c.us"))
}
