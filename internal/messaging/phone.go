package messaging

import (
	"regexp"
	"strings"
)

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// NormalizeE164 returns "+" followed by digits. Ten-digit numbers are taken as
// North American and get a leading 1.
func NormalizeE164(value string) string {
	digits := sanitizePhone(strings.TrimSpace(value))
	if digits == "" {
		return ""
	}
	if len(digits) == 10 && !strings.HasPrefix(strings.TrimSpace(value), "+") {
		digits = "1" + digits
	}
	return "+" + digits
}

func sanitizePhone(value string) string {
	if value == "" {
		return ""
	}
	return strings.Join(phoneDigitsRe.FindAllString(value, -1), "")
}
