package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/autorespond/internal/autorespond"
)

// StoredConversation is one logged exchange as read back from storage.
type StoredConversation struct {
	ID         uuid.UUID
	ClientID   string
	Channel    autorespond.Channel
	Inbound    string
	Outbound   string
	Confidence float64
	Metadata   autorespond.ConversationMetadata
	CreatedAt  time.Time
}

// ConversationStore persists exchanges to PostgreSQL.
type ConversationStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewConversationStore returns nil for a nil db so callers can skip persistence.
func NewConversationStore(db *sql.DB) *ConversationStore {
	if db == nil {
		return nil
	}
	return &ConversationStore{db: db, now: time.Now}
}

func (s *ConversationStore) SaveConversation(ctx context.Context, rec autorespond.ConversationRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("conversation: encode metadata: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	actions := rec.Metadata.SuggestedActions
	if actions == nil {
		actions = []string{}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, client_id, channel, inbound, outbound, confidence,
			ai_generated, fallback_response, booking_flow,
			suggested_actions, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, uuid.New(), rec.ClientID, string(rec.Channel), rec.Inbound, rec.Outbound, rec.Confidence,
		rec.Metadata.AIGenerated, rec.Metadata.FallbackResponse, rec.Metadata.BookingFlow,
		pq.Array(actions), metadata, createdAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: failed to insert: %w", err)
	}
	return nil
}

// ListByClient returns the newest exchanges first.
func (s *ConversationStore) ListByClient(ctx context.Context, clientID string, limit int) ([]StoredConversation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, channel, inbound, outbound, confidence, metadata, created_at
		FROM conversations
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list: %w", err)
	}
	defer rows.Close()

	var out []StoredConversation
	for rows.Next() {
		var (
			rec      StoredConversation
			channel  string
			metadata []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ClientID, &channel, &rec.Inbound, &rec.Outbound, &rec.Confidence, &metadata, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan: %w", err)
		}
		rec.Channel = autorespond.Channel(channel)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("conversation: decode metadata: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MemoryLog keeps exchanges in process memory when no database is configured.
type MemoryLog struct {
	mu      sync.Mutex
	records []StoredConversation
	limit   int
}

// NewMemoryLog keeps at most limit records, dropping the oldest.
func NewMemoryLog(limit int) *MemoryLog {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryLog{limit: limit}
}

func (l *MemoryLog) SaveConversation(_ context.Context, rec autorespond.ConversationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, StoredConversation{
		ID:         uuid.New(),
		ClientID:   rec.ClientID,
		Channel:    rec.Channel,
		Inbound:    rec.Inbound,
		Outbound:   rec.Outbound,
		Confidence: rec.Confidence,
		Metadata:   rec.Metadata,
		CreatedAt:  rec.CreatedAt,
	})
	if over := len(l.records) - l.limit; over > 0 {
		l.records = append([]StoredConversation(nil), l.records[over:]...)
	}
	return nil
}

func (l *MemoryLog) ListByClient(_ context.Context, clientID string, limit int) ([]StoredConversation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []StoredConversation
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if l.records[i].ClientID == clientID {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}
