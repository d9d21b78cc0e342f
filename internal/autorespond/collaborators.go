package autorespond

import (
	"context"
	"time"

	"github.com/wolfman30/autorespond/internal/catalog"
	"github.com/wolfman30/autorespond/internal/clients"
	"github.com/wolfman30/autorespond/internal/notify"
)

// ClientStore resolves and creates client records.
type ClientStore interface {
	FindByEmail(ctx context.Context, email string) (*clients.Client, error)
	FindByPhone(ctx context.Context, phone string) (*clients.Client, error)
	Create(ctx context.Context, req *clients.NewClient) (*clients.Client, error)
}

// CatalogStore reads current business data.
type CatalogStore interface {
	ListServices(ctx context.Context) ([]catalog.Service, error)
	ListStaff(ctx context.Context) ([]catalog.Staff, error)
	BusinessKnowledge(ctx context.Context) (string, error)
	BusinessSettings(ctx context.Context) (catalog.Settings, error)
}

// AIResult is a successful model answer.
type AIResult struct {
	Message          string
	Confidence       float64
	SuggestedActions []string
}

// AIGenerator produces reply text. Implementations without credentials return
// ErrProviderNotConfigured.
type AIGenerator interface {
	Generate(ctx context.Context, prompt string, rctx ResponseContext, channel Channel) (AIResult, error)
}

// OutboundSMS is one text message to send.
type OutboundSMS struct {
	To       string
	From     string
	Body     string
	Metadata map[string]string
}

// SMSTransport sends text messages.
type SMSTransport interface {
	SendSMS(ctx context.Context, msg OutboundSMS) error
}

// EmailTransport sends email.
type EmailTransport interface {
	Send(ctx context.Context, msg notify.EmailMessage) error
}

// ConversationMetadata flags which path produced the outbound text.
type ConversationMetadata struct {
	AIGenerated      bool     `json:"aiGenerated"`
	FallbackResponse bool     `json:"fallbackResponse"`
	BookingFlow      bool     `json:"bookingFlow"`
	MessageID        string   `json:"messageId,omitempty"`
	Subject          string   `json:"subject,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
}

// ConversationRecord is one inbound/outbound exchange.
type ConversationRecord struct {
	ClientID   string
	Channel    Channel
	Inbound    string
	Outbound   string
	Confidence float64
	Metadata   ConversationMetadata
	CreatedAt  time.Time
}

// ConversationLog persists exchanges after a successful send.
type ConversationLog interface {
	SaveConversation(ctx context.Context, rec ConversationRecord) error
}

// BookingFlow owns SMS dialogues it recognizes. handled=false means the caller
// should fall through to generic generation.
type BookingFlow interface {
	Intercept(ctx context.Context, sender, text string) (turn BookingTurn, handled bool, err error)
}

// BookingTurn is a dialogue reply whose state change waits for delivery. Commit once
// the reply is sent, otherwise Discard. Discard after Commit is a no-op.
type BookingTurn interface {
	Reply() string
	Commit(ctx context.Context) error
	Discard()
}

// Deduplicator remembers provider message ids. MarkProcessed returns false when
// the id was already recorded.
type Deduplicator interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}
