package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/autorespond/internal/catalog"
	"github.com/wolfman30/autorespond/pkg/logging"
)

const testSender = "+15551234567"

var fixedNow = func() time.Time { return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC) }

type recordingNotifier struct {
	mu     sync.Mutex
	states []ConversationState
	err    error
}

func (n *recordingNotifier) BookingRequested(_ context.Context, state ConversationState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
	return n.err
}

type brokenCatalog struct{}

func (brokenCatalog) ListServices(context.Context) ([]catalog.Service, error) {
	return nil, errors.New("db down")
}

func (brokenCatalog) BusinessSettings(context.Context) (catalog.Settings, error) {
	return catalog.Settings{}, nil
}

func newTestMachine(t *testing.T, store StateStore, notifier Notifier) *Machine {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	return NewMachine(MachineOptions{
		Store:    store,
		Catalog:  catalog.NewStaticStore(catalog.DefaultProfile()),
		Notifier: notifier,
		Logger:   logging.Discard(),
		Now:      fixedNow,
	})
}

func seed(t *testing.T, store StateStore, state ConversationState) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), state))
}

func TestMachine_GreetingKeepsStart(t *testing.T) {
	m := newTestMachine(t, nil, nil)

	turn, err := m.Respond(context.Background(), testSender, "hi")
	require.NoError(t, err)

	assert.Equal(t, PhaseStart, turn.State.Phase)
	assert.Equal(t, Greeting, turn.Intent)
	assert.Contains(t, turn.Reply, "Hi there")
	assert.Contains(t, turn.Reply, "Glo Head Spa")
}

func TestMachine_BookingIntentListsServices(t *testing.T) {
	m := newTestMachine(t, nil, nil)

	turn, err := m.Respond(context.Background(), testSender, "I want to book an appointment")
	require.NoError(t, err)

	assert.Equal(t, PhaseService, turn.State.Phase)
	for _, svc := range catalog.DefaultProfile().Services {
		assert.Contains(t, turn.Reply, svc.Name)
	}
	assert.Contains(t, turn.Reply, "$99")
}

func TestMachine_ServiceAdvancesToDate(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseService})
	m := newTestMachine(t, store, nil)

	turn, err := m.Respond(context.Background(), testSender, "Signature Head Spa")
	require.NoError(t, err)

	assert.Equal(t, PhaseDate, turn.State.Phase)
	assert.Equal(t, "signature head spa", turn.State.Service)
	assert.Contains(t, turn.Reply, "Signature Head Spa it is!")
}

func TestMachine_ServiceSlotFillingIsDeterministic(t *testing.T) {
	for _, svc := range catalog.DefaultProfile().Services {
		t.Run(svc.Name, func(t *testing.T) {
			store := NewMemoryStore()
			seed(t, store, ConversationState{Sender: testSender, Phase: PhaseService})
			m := newTestMachine(t, store, nil)

			turn, err := m.Respond(context.Background(), testSender, "I'd love the "+svc.Name+" please")
			require.NoError(t, err)
			assert.Equal(t, PhaseDate, turn.State.Phase)
			assert.Equal(t, strings.ToLower(svc.Name), turn.State.Service)
		})
	}
}

func TestMachine_TimeCompletesBooking(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseTime, Service: "signature head spa", Date: "friday"})
	notifier := &recordingNotifier{}
	m := newTestMachine(t, store, notifier)

	turn, err := m.Respond(context.Background(), testSender, "3pm")
	require.NoError(t, err)

	assert.Equal(t, PhaseComplete, turn.State.Phase)
	assert.Equal(t, "3pm", turn.State.Time)
	assert.Contains(t, turn.Reply, "Signature Head Spa")
	assert.Contains(t, turn.Reply, "Friday")
	assert.Contains(t, turn.Reply, "3pm")

	require.Len(t, notifier.states, 1)
	assert.Equal(t, "3pm", notifier.states[0].Time)
}

func TestMachine_FullDialogue(t *testing.T) {
	m := newTestMachine(t, nil, nil)
	ctx := context.Background()

	steps := []struct {
		text  string
		phase Phase
	}{
		{"hey", PhaseStart},
		{"can I book something?", PhaseService},
		{"the deluxe head spa", PhaseDate},
		{"maybe someday", PhaseDate},
		{"tomorrow works", PhaseTime},
		{"4pm?", PhaseTime},
		{"11:00 am", PhaseComplete},
	}
	for _, s := range steps {
		turn, err := m.Respond(ctx, testSender, s.text)
		require.NoError(t, err, s.text)
		assert.Equal(t, s.phase, turn.State.Phase, s.text)
		assert.NotEmpty(t, turn.Reply, s.text)
	}

	state, ok, err := m.State(ctx, testSender)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "deluxe head spa", state.Service)
	assert.Equal(t, "tomorrow", state.Date)
	assert.Equal(t, "11am", state.Time)
	assert.Equal(t, "11:00 am", state.LastMessage)
	assert.Equal(t, fixedNow(), state.UpdatedAt)
}

func TestMachine_RepromptsKeepState(t *testing.T) {
	cases := []struct {
		phase Phase
		want  string
	}{
		{PhaseService, "didn't recognize that service"},
		{PhaseDate, "didn't catch the day"},
		{PhaseTime, "pick one of these times"},
	}
	for _, tc := range cases {
		t.Run(string(tc.phase), func(t *testing.T) {
			store := NewMemoryStore()
			seeded := ConversationState{Sender: testSender, Phase: tc.phase, Service: "signature head spa", Date: "monday"}
			if tc.phase == PhaseService {
				seeded.Service, seeded.Date = "", ""
			}
			if tc.phase == PhaseDate {
				seeded.Date = ""
			}
			seed(t, store, seeded)
			m := newTestMachine(t, store, nil)

			turn, err := m.Respond(context.Background(), testSender, "blue elephants")
			require.NoError(t, err)
			assert.Equal(t, tc.phase, turn.State.Phase)
			assert.Equal(t, seeded.Service, turn.State.Service)
			assert.Equal(t, seeded.Date, turn.State.Date)
			assert.Contains(t, turn.Reply, tc.want)
		})
	}
}

func TestMachine_CompleteActsAsStart(t *testing.T) {
	done := ConversationState{Sender: testSender, Phase: PhaseComplete, Service: "signature head spa", Date: "friday", Time: "3pm"}

	t.Run("greeting keeps booking", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, done)
		m := newTestMachine(t, store, nil)

		turn, err := m.Respond(context.Background(), testSender, "hello again")
		require.NoError(t, err)
		assert.Equal(t, PhaseComplete, turn.State.Phase)
		assert.Equal(t, "3pm", turn.State.Time)
	})

	t.Run("unclassified starts over", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, done)
		notifier := &recordingNotifier{}
		m := newTestMachine(t, store, notifier)

		turn, err := m.Respond(context.Background(), testSender, "ok thanks")
		require.NoError(t, err)
		assert.Equal(t, PhaseService, turn.State.Phase)
		assert.Empty(t, turn.State.Service)
		assert.Empty(t, turn.State.Time)
		assert.Empty(t, notifier.states)
	})

	t.Run("escalation gives phone", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, done)
		m := newTestMachine(t, store, nil)

		turn, err := m.Respond(context.Background(), testSender, "I need to cancel my appointment")
		require.NoError(t, err)
		assert.Equal(t, PhaseComplete, turn.State.Phase)
		assert.Contains(t, turn.Reply, "(918) 727-7348")
	})
}

func TestMachine_UnknownPhaseRecovers(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: Phase("payment"), Service: "x", Date: "y", Time: "z"})
	m := newTestMachine(t, store, nil)

	turn, err := m.Respond(context.Background(), testSender, "anything")
	require.NoError(t, err)
	assert.Equal(t, PhaseService, turn.State.Phase)
	assert.Empty(t, turn.State.Service)
	assert.Contains(t, turn.Reply, "let's get you booked")
}

func TestMachine_AlwaysRepliesWithKnownPhase(t *testing.T) {
	phases := []Phase{PhaseStart, PhaseService, PhaseDate, PhaseTime, PhaseComplete, Phase(""), Phase("garbage")}
	inputs := []string{
		"", "   ", "hi", "book", "what are your prices?", "when are you open",
		"cancel my appointment", "Signature Head Spa", "friday", "3pm", "3:30pm",
		"12", "🙂", "asdf qwerty", strings.Repeat("x", 2000),
	}
	for _, phase := range phases {
		for _, input := range inputs {
			store := NewMemoryStore()
			seed(t, store, ConversationState{Sender: testSender, Phase: phase})
			m := newTestMachine(t, store, nil)

			turn, err := m.Respond(context.Background(), testSender, input)
			require.NoError(t, err)
			assert.NotEmpty(t, turn.Reply, "phase=%q input=%q", phase, input)
			assert.True(t, turn.State.Phase.Known(), "phase=%q input=%q next=%q", phase, input, turn.State.Phase)
		}
	}
}

func TestMachine_BusinessQuestions(t *testing.T) {
	m := newTestMachine(t, nil, nil)
	ctx := context.Background()

	turn, err := m.Respond(ctx, testSender, "How much is a facial?")
	require.NoError(t, err)
	assert.Equal(t, BusinessQuestion, turn.Intent)
	assert.Contains(t, turn.Reply, "Our prices")
	assert.Contains(t, turn.Reply, "$130")

	turn, err = m.Respond(ctx, testSender, "what are your hours")
	require.NoError(t, err)
	assert.Contains(t, turn.Reply, "Monday-Saturday 9AM-7PM")
	assert.Equal(t, PhaseStart, turn.State.Phase)
}

func TestMachine_InterceptDeclinesUnclassifiedAtStart(t *testing.T) {
	store := NewMemoryStore()
	m := newTestMachine(t, store, nil)

	pending, handled, err := m.Intercept(context.Background(), testSender, "do you do gift cards for my mom")
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Nil(t, pending)

	_, found, err := store.Get(context.Background(), testSender)
	require.NoError(t, err)
	assert.False(t, found, "declined message must not create state")
	assert.Zero(t, heldLocks(store))
}

func TestMachine_InterceptHandlesActiveDialogue(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseDate, Service: "signature head spa"})
	m := newTestMachine(t, store, nil)

	pending, handled, err := m.Intercept(context.Background(), testSender, "not sure yet")
	require.NoError(t, err)
	require.True(t, handled)
	defer pending.Discard()
	assert.Contains(t, pending.Reply(), "didn't catch the day")
}

func TestMachine_InterceptSavesNothingUntilCommit(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseTime, Service: "signature head spa", Date: "friday"})
	notifier := &recordingNotifier{}
	m := newTestMachine(t, store, notifier)
	ctx := context.Background()

	pending, handled, err := m.Intercept(ctx, testSender, "3pm")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, PhaseComplete, pending.Turn().State.Phase)

	state, _, err := store.Get(ctx, testSender)
	require.NoError(t, err)
	assert.Equal(t, PhaseTime, state.Phase)
	assert.Empty(t, notifier.states)

	require.NoError(t, pending.Commit(ctx))
	state, _, err = store.Get(ctx, testSender)
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, state.Phase)
	assert.Equal(t, "3pm", state.Time)
	require.Len(t, notifier.states, 1)

	pending.Discard()
	assert.Zero(t, heldLocks(store))
}

func TestMachine_DiscardedTurnLeavesDialogue(t *testing.T) {
	store := NewMemoryStore()
	seeded := ConversationState{Sender: testSender, Phase: PhaseTime, Service: "signature head spa", Date: "friday"}
	seed(t, store, seeded)
	notifier := &recordingNotifier{}
	m := newTestMachine(t, store, notifier)
	ctx := context.Background()

	pending, handled, err := m.Intercept(ctx, testSender, "3pm")
	require.NoError(t, err)
	require.True(t, handled)
	pending.Discard()
	pending.Discard()

	state, _, err := store.Get(ctx, testSender)
	require.NoError(t, err)
	assert.Equal(t, seeded, state)
	assert.Empty(t, notifier.states)
	assert.Zero(t, heldLocks(store))
	assert.ErrorIs(t, pending.Commit(ctx), ErrTurnReleased)

	// The same message goes through once the reply can be delivered.
	turn, err := m.Respond(ctx, testSender, "3pm")
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, turn.State.Phase)
	assert.Len(t, notifier.states, 1)
}

func TestMachine_PendingTurnHoldsSenderLock(t *testing.T) {
	store := NewMemoryStore()
	m := newTestMachine(t, store, nil)
	ctx := context.Background()

	pending, handled, err := m.Intercept(ctx, testSender, "book")
	require.NoError(t, err)
	require.True(t, handled)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Respond(ctx, testSender, "Signature Head Spa")
	}()
	select {
	case <-done:
		t.Fatal("second turn ran while the first was pending")
	case <-waitCtx.Done():
	}

	require.NoError(t, pending.Commit(ctx))
	<-done
	state, _, err := store.Get(ctx, testSender)
	require.NoError(t, err)
	assert.Equal(t, PhaseDate, state.Phase)
}

// lockingNotifier takes the sender's lock itself, which only works once the turn
// that completed the booking has let go of it.
type lockingNotifier struct {
	store StateStore
	err   error
	calls int
}

func (n *lockingNotifier) BookingRequested(ctx context.Context, state ConversationState) error {
	n.calls++
	lockCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlock, err := n.store.Lock(lockCtx, state.Sender)
	if err != nil {
		n.err = err
		return err
	}
	unlock()
	return nil
}

func TestMachine_HandoffRunsAfterUnlock(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseTime, Service: "signature head spa", Date: "friday"})
	notifier := &lockingNotifier{store: store}
	m := newTestMachine(t, store, notifier)

	turn, err := m.Respond(context.Background(), testSender, "3pm")
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, turn.State.Phase)
	assert.Equal(t, 1, notifier.calls)
	assert.NoError(t, notifier.err)
}

func TestMachine_FilledSlotOutranksIntent(t *testing.T) {
	cases := []struct {
		name   string
		seeded ConversationState
		text   string
		want   string
	}{
		{
			name:   "greeting while choosing service",
			seeded: ConversationState{Sender: testSender, Phase: PhaseService},
			text:   "hi",
			want:   "didn't recognize that service",
		},
		{
			name:   "question while choosing date",
			seeded: ConversationState{Sender: testSender, Phase: PhaseDate, Service: "signature head spa"},
			text:   "what are your prices?",
			want:   "didn't catch the day",
		},
		{
			name:   "greeting while choosing time",
			seeded: ConversationState{Sender: testSender, Phase: PhaseTime, Service: "signature head spa", Date: "friday"},
			text:   "hello",
			want:   "pick one of these times",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemoryStore()
			seed(t, store, tc.seeded)
			m := newTestMachine(t, store, nil)

			turn, err := m.Respond(context.Background(), testSender, tc.text)
			require.NoError(t, err)
			assert.NotEqual(t, Unclassified, turn.Intent, "text should classify as an intent")
			assert.Equal(t, tc.seeded.Phase, turn.State.Phase)
			assert.Equal(t, tc.seeded.Service, turn.State.Service)
			assert.Equal(t, tc.seeded.Date, turn.State.Date)
			assert.Contains(t, turn.Reply, tc.want)
			assert.NotContains(t, turn.Reply, "Our prices")
			assert.NotContains(t, turn.Reply, "Hi there")
		})
	}
}

func TestMachine_NotifierErrorDoesNotFailTurn(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseTime, Service: "signature head spa", Date: "today"})
	m := newTestMachine(t, store, &recordingNotifier{err: errors.New("smtp down")})

	turn, err := m.Respond(context.Background(), testSender, "9")
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, turn.State.Phase)
	assert.Equal(t, "9am", turn.State.Time)
}

func TestMachine_CatalogErrorSurfaces(t *testing.T) {
	m := NewMachine(MachineOptions{Store: NewMemoryStore(), Catalog: brokenCatalog{}, Logger: logging.Discard()})

	_, err := m.Respond(context.Background(), testSender, "book")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list services")
}

func TestMachine_RequiresSender(t *testing.T) {
	m := newTestMachine(t, nil, nil)
	_, err := m.Respond(context.Background(), "  ", "hi")
	require.Error(t, err)
}

func TestMachine_Reset(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, ConversationState{Sender: testSender, Phase: PhaseTime})
	m := newTestMachine(t, store, nil)

	require.NoError(t, m.Reset(context.Background(), testSender))
	_, found, err := m.State(context.Background(), testSender)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMachine_ConcurrentMessagesAreSerialized(t *testing.T) {
	m := newTestMachine(t, nil, nil)
	ctx := context.Background()
	_, err := m.Respond(ctx, testSender, "book")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Turn, 2)
	for i, text := range []string{"Signature Head Spa", "Deluxe Head Spa"} {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			turn, err := m.Respond(ctx, testSender, text)
			assert.NoError(t, err)
			results[i] = turn
		}(i, text)
	}
	wg.Wait()

	// One message fills the service; the other lands in the date phase and re-prompts.
	phases := []Phase{results[0].State.Phase, results[1].State.Phase}
	assert.ElementsMatch(t, []Phase{PhaseDate, PhaseDate}, phases)

	state, _, err := m.State(ctx, testSender)
	require.NoError(t, err)
	assert.Equal(t, PhaseDate, state.Phase)
	assert.Contains(t, []string{"signature head spa", "deluxe head spa"}, state.Service)
}
