package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	stateKeyPattern = "booking:state:%s"
	lockKeyPattern  = "booking:lock:%s"

	defaultStateTTL  = 7 * 24 * time.Hour
	defaultLockTTL   = 10 * time.Second
	lockRetryBackoff = 25 * time.Millisecond
)

// unlockScript deletes the lock only if we still own it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the lock expiry out only if we still own it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisStore shares dialogues between instances. Values are JSON with a sliding TTL.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	tracer  trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("booking: redis client required")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStore{
		client:  client,
		ttl:     ttl,
		lockTTL: defaultLockTTL,
		tracer:  otel.Tracer("autorespond.internal.booking.redis"),
	}
}

// Lock spins on SET NX until it wins or ctx ends. While held, the expiry is renewed
// every third of the lock TTL; it lapses on its own if the holder dies.
func (s *RedisStore) Lock(ctx context.Context, sender string) (func(), error) {
	key := fmt.Sprintf(lockKeyPattern, sender)
	token := uuid.NewString()
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("booking: acquire lock: %w", err)
		}
		if ok {
			stop := make(chan struct{})
			go s.renew(key, token, stop)
			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					// The caller's ctx may already be done; release with a fresh one.
					releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = unlockScript.Run(releaseCtx, s.client, []string{key}, token).Err()
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-time.After(lockRetryBackoff):
		}
	}
}

func (s *RedisStore) renew(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(s.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			n, err := renewScript.Run(ctx, s.client, []string{key}, token, s.lockTTL.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				// Lost the lock to expiry; nothing left to renew.
				return
			}
		}
	}
}

func (s *RedisStore) Get(ctx context.Context, sender string) (ConversationState, bool, error) {
	ctx, span := s.tracer.Start(ctx, "booking.load_state")
	defer span.End()

	raw, err := s.client.Get(ctx, fmt.Sprintf(stateKeyPattern, sender)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ConversationState{}, false, nil
		}
		span.RecordError(err)
		return ConversationState{}, false, fmt.Errorf("booking: load state: %w", err)
	}
	var state ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		span.RecordError(err)
		return ConversationState{}, false, fmt.Errorf("booking: decode state: %w", err)
	}
	return state, true, nil
}

func (s *RedisStore) Save(ctx context.Context, state ConversationState) error {
	ctx, span := s.tracer.Start(ctx, "booking.save_state")
	defer span.End()

	payload, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: encode state: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(stateKeyPattern, state.Sender), payload, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: save state: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sender string) error {
	if err := s.client.Del(ctx, fmt.Sprintf(stateKeyPattern, sender)).Err(); err != nil {
		return fmt.Errorf("booking: delete state: %w", err)
	}
	return nil
}
