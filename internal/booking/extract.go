package booking

import (
	"regexp"
	"strings"

	"github.com/wolfman30/autorespond/internal/catalog"
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// dateTokens are checked in order; "tomorrow" never contains "today" so order is only for determinism.
var dateTokens = append([]string{"today", "tomorrow"}, weekdays...)

// TimeSlots are the offered appointment times.
var TimeSlots = []string{"9am", "11am", "1pm", "3pm", "5pm"}

var slotByHour = map[string]string{
	"9":  "9am",
	"11": "11am",
	"1":  "1pm",
	"3":  "3pm",
	"5":  "5pm",
}

var timeTokenRE = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

// ExtractService returns the lowercased canonical name of the first catalog service
// named in text, in catalog order.
func ExtractService(text string, services []catalog.Service) (string, bool) {
	t := normalize(text)
	for _, svc := range services {
		name := strings.ToLower(strings.TrimSpace(svc.Name))
		if name != "" && strings.Contains(t, name) {
			return name, true
		}
	}
	return "", false
}

// ExtractDate returns today, tomorrow, or a weekday name.
func ExtractDate(text string) (string, bool) {
	t := normalize(text)
	for _, token := range dateTokens {
		if strings.Contains(t, token) {
			return token, true
		}
	}
	return "", false
}

// ExtractTime maps "3pm", "3:00pm", "3 pm", "3:00 pm" or a bare "3" to a slot label.
// Anything off the hour or with the wrong meridiem does not match.
func ExtractTime(text string) (string, bool) {
	t := normalize(text)
	for _, m := range timeTokenRE.FindAllStringSubmatch(t, -1) {
		hour, minutes, meridiem := m[1], m[2], m[3]
		if minutes != "" && minutes != "00" {
			continue
		}
		slot, ok := slotByHour[strings.TrimPrefix(hour, "0")]
		if !ok {
			continue
		}
		if meridiem != "" && !strings.HasSuffix(slot, meridiem) {
			continue
		}
		return slot, true
	}
	return "", false
}

// displayService returns the catalog spelling of a stored lowercased name.
func displayService(stored string, services []catalog.Service) string {
	for _, svc := range services {
		if strings.EqualFold(svc.Name, stored) {
			return svc.Name
		}
	}
	return stored
}

// dateLabel phrases a stored date token for a sentence: "tomorrow", "on Friday".
func dateLabel(token string) string {
	switch token {
	case "today", "tomorrow":
		return token
	case "":
		return ""
	default:
		return "on " + strings.ToUpper(token[:1]) + token[1:]
	}
}
