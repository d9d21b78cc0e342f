package booking

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a sender's lock cannot be taken before the context ends.
var ErrLockTimeout = errors.New("booking: timed out waiting for conversation lock")

// ErrTurnReleased is returned when a turn is committed after it was discarded.
var ErrTurnReleased = errors.New("booking: turn already released")

// StateStore holds one ConversationState per sender. Lock gives the caller exclusive
// access to a sender until unlock is called.
type StateStore interface {
	Lock(ctx context.Context, sender string) (unlock func(), err error)
	Get(ctx context.Context, sender string) (ConversationState, bool, error)
	Save(ctx context.Context, state ConversationState) error
	Delete(ctx context.Context, sender string) error
}

// MemoryStore keeps dialogues in process memory. State is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]ConversationState

	locksMu sync.Mutex
	locks   map[string]*senderLock
}

// senderLock is dropped from the map once no holder or waiter references it.
type senderLock struct {
	held chan struct{}
	refs int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]ConversationState),
		locks:  make(map[string]*senderLock),
	}
}

// Lock waits for the sender's lock until ctx ends.
func (s *MemoryStore) Lock(ctx context.Context, sender string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrLockTimeout, err)
	}
	s.locksMu.Lock()
	l, ok := s.locks[sender]
	if !ok {
		l = &senderLock{held: make(chan struct{}, 1)}
		s.locks[sender] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.held <- struct{}{}:
	case <-ctx.Done():
		s.release(sender, l)
		return nil, errors.Join(ErrLockTimeout, ctx.Err())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.held
			s.release(sender, l)
		})
	}, nil
}

func (s *MemoryStore) release(sender string, l *senderLock) {
	s.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, sender)
	}
	s.locksMu.Unlock()
}

func (s *MemoryStore) Get(_ context.Context, sender string) (ConversationState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sender]
	return state, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, state ConversationState) error {
	s.mu.Lock()
	s.states[state.Sender] = state
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sender string) error {
	s.mu.Lock()
	delete(s.states, sender)
	s.mu.Unlock()
	return nil
}
