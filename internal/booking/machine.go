package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/autorespond/internal/catalog"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// CatalogReader is the slice of the catalog the dialogue needs.
type CatalogReader interface {
	ListServices(ctx context.Context) ([]catalog.Service, error)
	BusinessSettings(ctx context.Context) (catalog.Settings, error)
}

// Notifier hears about completed booking requests.
type Notifier interface {
	BookingRequested(ctx context.Context, state ConversationState) error
}

// Turn is the outcome of one message.
type Turn struct {
	Reply  string
	State  ConversationState
	Intent Intent
}

// MachineOptions wires a Machine. Notifier and Now are optional.
type MachineOptions struct {
	Store    StateStore
	Catalog  CatalogReader
	Notifier Notifier
	Logger   *logging.Logger
	Now      func() time.Time
}

// Machine drives the per-sender dialogue. Each turn runs read, step, write under the
// store's per-sender lock, so concurrent messages from one sender are serialized.
type Machine struct {
	store    StateStore
	catalog  CatalogReader
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time
}

func NewMachine(opts MachineOptions) *Machine {
	if opts.Store == nil {
		panic("booking: state store required")
	}
	if opts.Catalog == nil {
		panic("booking: catalog required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		store:    opts.Store,
		catalog:  opts.Catalog,
		notifier: opts.Notifier,
		logger:   logging.OrDefault(opts.Logger),
		now:      now,
	}
}

// Respond always produces a reply and a defined next phase, and stores it at once.
func (m *Machine) Respond(ctx context.Context, sender, text string) (Turn, error) {
	pending, _, err := m.prepare(ctx, sender, text, false)
	if err != nil {
		return Turn{}, err
	}
	if err := pending.Commit(ctx); err != nil {
		return Turn{}, err
	}
	return pending.Turn(), nil
}

// Intercept computes the turn for a message unless the sender has no dialogue in
// progress and the text carries no recognizable intent; those belong to the general
// responder. A handled turn holds the sender's lock and changes nothing until the
// caller commits it, so a reply that never reaches the sender leaves the dialogue
// where it was.
func (m *Machine) Intercept(ctx context.Context, sender, text string) (*Pending, bool, error) {
	return m.prepare(ctx, sender, text, true)
}

func (m *Machine) prepare(ctx context.Context, sender, text string, mayDecline bool) (*Pending, bool, error) {
	key := strings.TrimSpace(sender)
	if key == "" {
		return nil, false, fmt.Errorf("booking: sender required")
	}
	unlock, err := m.store.Lock(ctx, key)
	if err != nil {
		return nil, false, err
	}

	state, found, err := m.store.Get(ctx, key)
	if err != nil {
		unlock()
		return nil, false, err
	}
	if !found {
		state = newState(key)
	}

	intent := Classify(text)
	if mayDecline && state.Phase == PhaseStart && intent == Unclassified {
		unlock()
		return nil, false, nil
	}

	r, err := m.replies(ctx)
	if err != nil {
		unlock()
		return nil, false, err
	}

	next, reply := step(state, text, intent, r)
	next.Sender = key
	next.LastMessage = text
	next.UpdatedAt = m.now().UTC()
	return &Pending{
		machine:  m,
		turn:     Turn{Reply: reply, State: next, Intent: intent},
		previous: state.Phase,
		unlock:   unlock,
	}, true, nil
}

// Pending is a computed turn waiting to be committed. It owns the sender's lock until
// Commit or Discard, and is used from a single goroutine.
type Pending struct {
	machine  *Machine
	turn     Turn
	previous Phase
	unlock   func()
	released bool
}

func (p *Pending) Reply() string { return p.turn.Reply }

func (p *Pending) Turn() Turn { return p.turn }

// Commit stores the next state and releases the lock. The staff handoff for a newly
// completed request goes out after the lock is released.
func (p *Pending) Commit(ctx context.Context) error {
	if p.released {
		return ErrTurnReleased
	}
	err := p.machine.store.Save(ctx, p.turn.State)
	p.release()
	if err != nil {
		return err
	}

	next := p.turn.State
	p.machine.logger.Debug("booking turn",
		"from_phase", p.previous,
		"to_phase", next.Phase,
		"intent", p.turn.Intent.String(),
	)
	if next.Phase == PhaseComplete && p.previous != PhaseComplete {
		p.machine.notify(ctx, next)
	}
	return nil
}

// Discard drops the turn and releases the lock. It is a no-op after Commit.
func (p *Pending) Discard() {
	p.release()
}

func (p *Pending) release() {
	if p.released {
		return
	}
	p.released = true
	p.unlock()
}

func (m *Machine) replies(ctx context.Context) (replies, error) {
	services, err := m.catalog.ListServices(ctx)
	if err != nil {
		return replies{}, fmt.Errorf("booking: list services: %w", err)
	}
	settings, err := m.catalog.BusinessSettings(ctx)
	if err != nil {
		return replies{}, fmt.Errorf("booking: load settings: %w", err)
	}
	return replies{settings: settings, services: services}, nil
}

func (m *Machine) notify(ctx context.Context, state ConversationState) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.BookingRequested(ctx, state); err != nil {
		m.logger.Error("booking notification failed", "sender", state.Sender, "error", err)
	}
}

// Reset drops a sender's dialogue. Used by operators.
func (m *Machine) Reset(ctx context.Context, sender string) error {
	key := strings.TrimSpace(sender)
	unlock, err := m.store.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return m.store.Delete(ctx, key)
}

// State returns the stored dialogue for a sender.
func (m *Machine) State(ctx context.Context, sender string) (ConversationState, bool, error) {
	return m.store.Get(ctx, strings.TrimSpace(sender))
}

// step is the pure transition function. Every branch returns a reply and a known phase.
func step(s ConversationState, text string, intent Intent, r replies) (ConversationState, string) {
	switch s.Phase {
	case PhaseStart, PhaseComplete:
		switch intent {
		case Escalation:
			return s, r.escalation()
		case BusinessQuestion:
			return s, r.answer(QuestionTopic(text))
		case Greeting:
			return s, r.greeting()
		case BookingIntent:
			return beginBooking(s, r)
		default:
			if s.Phase == PhaseComplete {
				return beginBooking(s, r)
			}
			return s, r.help()
		}

	case PhaseService:
		service, ok := ExtractService(text, r.services)
		if !ok {
			return s, r.serviceReprompt()
		}
		s.Service = service
		s.Phase = PhaseDate
		return s, r.datePrompt(service)

	case PhaseDate:
		date, ok := ExtractDate(text)
		if !ok {
			return s, r.dateReprompt()
		}
		s.Date = date
		s.Phase = PhaseTime
		return s, r.timePrompt(date)

	case PhaseTime:
		slot, ok := ExtractTime(text)
		if !ok {
			return s, r.timeReprompt()
		}
		s.Time = slot
		s.Phase = PhaseComplete
		return s, r.confirmation(s)

	default:
		return beginBooking(s, r)
	}
}

func beginBooking(s ConversationState, r replies) (ConversationState, string) {
	s.clearSlots()
	s.Phase = PhaseService
	return s, r.servicePrompt()
}
