package booking

import (
	"fmt"
	"strings"

	"github.com/wolfman30/autorespond/internal/catalog"
)

// replies renders every outbound text of the dialogue for one business.
type replies struct {
	settings catalog.Settings
	services []catalog.Service
}

func (r replies) businessName() string {
	if name := strings.TrimSpace(r.settings.BusinessName); name != "" {
		return name
	}
	return "us"
}

func (r replies) callUs() string {
	if phone := strings.TrimSpace(r.settings.Phone); phone != "" {
		return "call us at " + phone
	}
	return "give us a call"
}

func (r replies) greeting() string {
	return fmt.Sprintf("Hi there! Thanks for texting %s. Reply BOOK to schedule an appointment, or ask about our services, prices, or hours.", r.businessName())
}

func (r replies) help() string {
	return "I can help you book an appointment. Reply BOOK to get started, or ask about our services, prices, or hours."
}

func (r replies) escalation() string {
	return fmt.Sprintf("To change or cancel an existing appointment, please %s and our team will take care of you.", r.callUs())
}

func (r replies) answer(topic Topic) string {
	switch topic {
	case TopicPrice:
		if len(r.services) == 0 {
			return fmt.Sprintf("For current pricing, please %s.", r.callUs())
		}
		return "Our prices:\n" + r.serviceList(true) + "\nReply BOOK to schedule."
	case TopicHours:
		if hours := strings.TrimSpace(r.settings.Hours); hours != "" {
			return fmt.Sprintf("We're open %s. Reply BOOK to schedule a visit.", hours)
		}
		return fmt.Sprintf("For our current hours, please %s.", r.callUs())
	default:
		if len(r.services) == 0 {
			return fmt.Sprintf("For our service menu, please %s.", r.callUs())
		}
		return "We offer:\n" + r.serviceList(true) + "\nReply BOOK to schedule."
	}
}

func (r replies) servicePrompt() string {
	if len(r.services) == 0 {
		return "Great, let's get you booked! Which service are you interested in?"
	}
	return "Great, let's get you booked! Which service would you like?\n" + r.serviceList(true)
}

func (r replies) serviceReprompt() string {
	if len(r.services) == 0 {
		return fmt.Sprintf("Sorry, I didn't recognize that service. Please %s to book.", r.callUs())
	}
	return "Sorry, I didn't recognize that service. Please reply with one of:\n" + r.serviceList(false)
}

func (r replies) datePrompt(service string) string {
	return fmt.Sprintf("%s it is! What day works for you? Reply today, tomorrow, or a day of the week.", displayService(service, r.services))
}

func (r replies) dateReprompt() string {
	return "Sorry, I didn't catch the day. Please reply today, tomorrow, or a day of the week (for example, Friday)."
}

func (r replies) timePrompt(date string) string {
	return fmt.Sprintf("Here are the open times %s: %s. Which works best?", dateLabel(date), slotList())
}

func (r replies) timeReprompt() string {
	return fmt.Sprintf("Please pick one of these times: %s.", slotList())
}

func (r replies) confirmation(s ConversationState) string {
	return fmt.Sprintf("You're all set! %s %s at %s. See you then!",
		displayService(s.Service, r.services), dateLabel(s.Date), s.Time)
}

func (r replies) serviceList(withDetails bool) string {
	lines := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		if withDetails && svc.DurationMinutes > 0 {
			lines = append(lines, fmt.Sprintf("- %s (%s, %d min)", svc.Name, svc.PriceLabel(), svc.DurationMinutes))
			continue
		}
		lines = append(lines, "- "+svc.Name)
	}
	return strings.Join(lines, "\n")
}

func slotList() string {
	return strings.Join(TimeSlots[:len(TimeSlots)-1], ", ") + ", or " + TimeSlots[len(TimeSlots)-1]
}
