package clients

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores clients.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Client, error)
	FindByPhone(ctx context.Context, phone string) (*Client, error)
	Create(ctx context.Context, req *NewClient) (*Client, error)
}

// InMemoryRepository keeps clients in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clients: make(map[string]*Client)}
}

// Create adds a client. A client already holding the email or phone is returned as is.
func (r *InMemoryRepository) Create(ctx context.Context, req *NewClient) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	client := &Client{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Name:         req.Name,
		Email:        NormalizeEmail(req.Email),
		Phone:        req.Phone,
		PasswordHash: req.PasswordHash,
		Placeholder:  req.Placeholder,
		Preferences:  req.Preferences,
		CreatedAt:    time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if (client.Email != "" && c.Email == client.Email) || (client.Phone != "" && c.Phone == client.Phone) {
			cp := *c
			return &cp, nil
		}
	}
	r.clients[client.ID] = client

	cp := *client
	return &cp, nil
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (*Client, error) {
	email = NormalizeEmail(email)
	return r.find(func(c *Client) bool { return email != "" && c.Email == email })
}

func (r *InMemoryRepository) FindByPhone(ctx context.Context, phone string) (*Client, error) {
	return r.find(func(c *Client) bool { return phone != "" && c.Phone == phone })
}

func (r *InMemoryRepository) find(match func(*Client) bool) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
