package autorespond

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/autorespond/internal/catalog"
	"github.com/wolfman30/autorespond/internal/clients"
)

// Channel identifies the transport a message arrived on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// InboundMessage is a normalized provider webhook. Treat it as immutable.
type InboundMessage struct {
	Channel    Channel   `json:"channel"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Body       string    `json:"body"`
	Subject    string    `json:"subject,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	AccountID  string    `json:"account_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Validate rejects messages missing the fields every later stage relies on.
func (m InboundMessage) Validate() error {
	var missing []string
	if !m.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrMalformedMessage, m.Channel)
	}
	if strings.TrimSpace(m.From) == "" {
		missing = append(missing, "from")
	}
	if strings.TrimSpace(m.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(m.Body) == "" && (m.Channel == ChannelSMS || strings.TrimSpace(m.Subject) == "") {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedMessage, strings.Join(missing, ", "))
	}
	return nil
}

// Text is the subject and body joined, which is what keyword checks and prompts see.
func (m InboundMessage) Text() string {
	subject := strings.TrimSpace(m.Subject)
	body := strings.TrimSpace(m.Body)
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	default:
		return subject + "\n" + body
	}
}

// Reason explains why no reply was sent.
type Reason string

const (
	ReasonDisabled               Reason = "disabled"
	ReasonOutsideBusinessHours   Reason = "outside-business-hours"
	ReasonExcludedKeyword        Reason = "excluded-keyword"
	ReasonExcludedDomain         Reason = "excluded-domain"
	ReasonNotAuthorizedRecipient Reason = "not-authorized-recipient"
	ReasonBelowConfidence        Reason = "below-confidence"
	ReasonClientOptedOut         Reason = "client-opted-out"
	ReasonDuplicate              Reason = "duplicate"
)

// EligibilityDecision is the gate's verdict.
type EligibilityDecision struct {
	ShouldRespond bool   `json:"should_respond"`
	Reason        Reason `json:"reason,omitempty"`
}

func allow() EligibilityDecision { return EligibilityDecision{ShouldRespond: true} }

func reject(r Reason) EligibilityDecision { return EligibilityDecision{Reason: r} }

// ResponseContext is everything the generator may draw on for one reply. Built per request.
type ResponseContext struct {
	Client       clients.Client
	BusinessName string
	BusinessType string
	Settings     catalog.Settings
	Services     []catalog.Service
	Staff        []catalog.Staff
	Knowledge    string
	Message      InboundMessage
}

// Source records which path produced a reply.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceBooking  Source = "booking"
)

// GeneratedResponse is the generator's output. Withheld means the AI answered with
// confidence under the threshold and the text must not be sent.
type GeneratedResponse struct {
	Success          bool
	Message          string
	Confidence       float64
	SuggestedActions []string
	Source           Source
	Withheld         bool
	Err              error
}

// DispatchResult is the outcome of processing one inbound message.
// ResponseSent implies Success.
type DispatchResult struct {
	Success      bool    `json:"success"`
	ResponseSent bool    `json:"response_sent"`
	Response     string  `json:"response,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Reason       Reason  `json:"reason,omitempty"`
	Source       Source  `json:"source,omitempty"`
	Error        string  `json:"error,omitempty"`
	Err          error   `json:"-"`
}

func skipped(reason Reason) DispatchResult {
	return DispatchResult{Success: true, Reason: reason}
}

func failed(err error) DispatchResult {
	return DispatchResult{Error: err.Error(), Err: err}
}
