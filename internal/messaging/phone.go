package messaging

import "strings"

// sanitizePhone strips everything but digits.
func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// FormatNigerian converts a local Nigerian number to E.164. A leading 0 is
// swapped for the 234 country code, and bare subscriber numbers get the code
// prefixed. Numbers already carrying 234 pass through.
func FormatNigerian(phone string) string {
	digits := sanitizePhone(phone)
	if digits == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(digits, "0"):
		digits = "234" + digits[1:]
	case !strings.HasPrefix(digits, "234"):
		digits = "234" + digits
	}
	return "+" + digits
}
