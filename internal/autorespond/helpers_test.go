package autorespond

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/autorespond/internal/catalog"
	"github.com/wolfman30/autorespond/internal/clients"
	"github.com/wolfman30/autorespond/internal/notify"
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type stubAI struct {
	result AIResult
	err    error
	calls  int
	prompt string
}

func (s *stubAI) Generate(_ context.Context, prompt string, _ ResponseContext, _ Channel) (AIResult, error) {
	s.calls++
	s.prompt = prompt
	return s.result, s.err
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []OutboundSMS
	err  error
}

func (r *recordingSMS) SendSMS(_ context.Context, msg OutboundSMS) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type recordingEmail struct {
	sent []notify.EmailMessage
	err  error
}

func (r *recordingEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type recordingLog struct {
	records []ConversationRecord
	err     error
}

func (r *recordingLog) SaveConversation(_ context.Context, rec ConversationRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

type stubBooking struct {
	reply     string
	handled   bool
	err       error
	calls     int
	commitErr error
	turn      *stubTurn
}

func (s *stubBooking) Intercept(_ context.Context, _, _ string) (BookingTurn, bool, error) {
	s.calls++
	if s.err != nil || !s.handled {
		return nil, s.handled, s.err
	}
	s.turn = &stubTurn{reply: s.reply, commitErr: s.commitErr}
	return s.turn, true, nil
}

type stubTurn struct {
	reply     string
	commitErr error
	commits   int
	discards  int
}

func (t *stubTurn) Reply() string { return t.reply }

func (t *stubTurn) Commit(context.Context) error {
	t.commits++
	return t.commitErr
}

func (t *stubTurn) Discard() { t.discards++ }

// countingClients records lookups so tests can see whether the store was touched.
type countingClients struct {
	ClientStore
	lookups int
	creates int
	err     error
}

func (c *countingClients) FindByEmail(ctx context.Context, email string) (*clients.Client, error) {
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return c.ClientStore.FindByEmail(ctx, email)
}

func (c *countingClients) FindByPhone(ctx context.Context, phone string) (*clients.Client, error) {
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return c.ClientStore.FindByPhone(ctx, phone)
}

func (c *countingClients) Create(ctx context.Context, req *clients.NewClient) (*clients.Client, error) {
	c.creates++
	return c.ClientStore.Create(ctx, req)
}

type memoryDedupe struct {
	seen map[string]bool
}

func (m *memoryDedupe) MarkProcessed(_ context.Context, provider, id string) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := provider + ":" + id
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type failingCatalog struct {
	*catalog.StaticStore
}

func (failingCatalog) ListServices(context.Context) ([]catalog.Service, error) {
	return nil, errors.New("catalog unavailable")
}

func baseConfig() Config {
	return Config{
		Enabled:             true,
		ConfidenceThreshold: 0.7,
		MaxResponseLength:   320,
		ExcludedKeywords:    []string{"urgent", "refund", "cancel", "reschedule", "complaint"},
		ExcludedDomains:     []string{"noreply", "no-reply"},
	}
}

func smsMessage(body string) InboundMessage {
	return InboundMessage{
		Channel:    ChannelSMS,
		From:       "+19185550100",
		To:         "+19187277348",
		Body:       body,
		MessageID:  "SM123",
		AccountID:  "AC1",
		ReceivedAt: fixedNow,
	}
}

func emailMessage(subject, body string) InboundMessage {
	return InboundMessage{
		Channel:    ChannelEmail,
		From:       "jamie@example.com",
		To:         "hello@glo.example",
		Subject:    subject,
		Body:       body,
		MessageID:  "<m1@example.com>",
		ReceivedAt: fixedNow,
	}
}
