package autorespond

import (
	"fmt"
	"strings"
)

// FallbackConfidence is the nominal confidence reported for template replies.
const FallbackConfidence = 0.8

var fallbackRules = []struct {
	keywords []string
	template string
}{
	{[]string{"appointment", "book", "schedule", "availability", "available"},
		"Thanks for reaching out to %s! We'd love to get you booked. Reply with the service you're interested in and a day that works for you, or give us a call."},
	{[]string{"price", "pricing", "cost", "how much", "rates"},
		"Thanks for your interest in %s! Pricing depends on the service. We'll follow up with details shortly, or call us for a quote."},
	{[]string{"hours", "open", "close", "closing"},
		"Thanks for contacting %s! Please give us a call or visit our website for our current hours."},
}

const fallbackDefault = "Thank you for contacting %s! We've received your message and will get back to you shortly."

// FallbackReply picks a template by keyword. It only depends on the business name.
func FallbackReply(text, businessName string) string {
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = "us"
	}
	lower := strings.ToLower(text)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return fmt.Sprintf(rule.template, name)
			}
		}
	}
	return fmt.Sprintf(fallbackDefault, name)
}
