package utils

import "strings"

// WhatsApp JID suffixes that may arrive on inbound webhook payloads
var phoneSuffixes = []string{"@s.whatsapp.net", "@c.us"}

// stripPhone removes JID suffixes and every non-digit character
func stripPhone(phone string) string {
	for _, suffix := range phoneSuffixes {
		phone = strings.TrimSuffix(phone, suffix)
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone reports whether the phone number normalizes to an acceptable
// length: 10-11 digits (DDD + local number), or 12-13 digits when the country
// code is already present.
func ValidatePhone(phone string) bool {
	digits := stripPhone(phone)
	switch len(digits) {
	case 10, 11:
		return true
	case 12, 13:
		return strings.HasPrefix(digits, "55")
	}
	return false
}

// NormalizePhone cleans a phone number for the messaging channel: digits
// only, with the Brazil country code prepended when missing.
func NormalizePhone(phone string) string {
	digits := stripPhone(phone)
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}

// MaskPhone hides the middle of a phone number for notifications
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:4] + "****" + phone[len(phone)-4:]
}
