package booking

import (
	"regexp"
	"strings"
)

// Intent is the coarse meaning of a message received outside an active dialogue.
type Intent int

const (
	Unclassified Intent = iota
	Greeting
	BusinessQuestion
	Escalation
	BookingIntent
)

func (i Intent) String() string {
	switch i {
	case Greeting:
		return "greeting"
	case BusinessQuestion:
		return "business_question"
	case Escalation:
		return "escalation"
	case BookingIntent:
		return "booking_intent"
	default:
		return "unclassified"
	}
}

// Topic narrows a BusinessQuestion.
type Topic int

const (
	TopicNone Topic = iota
	TopicPrice
	TopicServices
	TopicHours
)

var (
	escalationRE = regexp.MustCompile(`\b(reschedul\w*|cancel\w*|(change|move) my (appointment|booking))\b`)
	priceRE      = regexp.MustCompile(`\b(price|prices|pricing|cost|costs|how much|rates)\b`)
	servicesRE   = regexp.MustCompile(`\b(services|menu|treatments|what do you (offer|have|do))\b`)
	hoursRE      = regexp.MustCompile(`\b(hours|open|opening|close|closed|closing)\b`)
	bookingRE    = regexp.MustCompile(`\b(book|booking|appointment|appt|schedule|reserve|reservation|availability|available|come in)\b`)
	timeLikeRE   = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s*(am|pm)\b|\b\d{1,2}:\d{2}\b`)
	greetingRE   = regexp.MustCompile(`\b(hi|hello|hey|hiya|howdy|greetings|good (morning|afternoon|evening))\b`)
)

// Classify maps text onto one Intent. Escalation beats a business question, which beats
// booking intent, which beats a greeting.
func Classify(text string) Intent {
	t := normalize(text)
	switch {
	case escalationRE.MatchString(t):
		return Escalation
	case QuestionTopic(t) != TopicNone:
		return BusinessQuestion
	case bookingRE.MatchString(t), containsWeekday(t), timeLikeRE.MatchString(t):
		return BookingIntent
	case greetingRE.MatchString(t):
		return Greeting
	default:
		return Unclassified
	}
}

// QuestionTopic reports which business question text asks, if any.
func QuestionTopic(text string) Topic {
	t := normalize(text)
	switch {
	case priceRE.MatchString(t):
		return TopicPrice
	case servicesRE.MatchString(t):
		return TopicServices
	case hoursRE.MatchString(t):
		return TopicHours
	default:
		return TopicNone
	}
}

func containsWeekday(t string) bool {
	for _, day := range weekdays {
		if strings.Contains(t, day) {
			return true
		}
	}
	return false
}

// normalize lowercases and folds "a.m."/"p.m." so patterns stay simple.
func normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.ReplaceAll(t, "a.m.", "am")
	t = strings.ReplaceAll(t, "p.m.", "pm")
	return t
}
