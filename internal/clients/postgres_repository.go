package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists clients in the clients table.
type PostgresRepository struct {
	pool rowQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("clients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q rowQuerier) *PostgresRepository {
	if q == nil {
		panic("clients: querier required")
	}
	return &PostgresRepository{pool: q}
}

const clientColumns = `id, username, name, email, phone, password_hash, placeholder, auto_respond, sms_opt_in, email_opt_in, created_at`

// Create inserts a new row. When another writer already holds the email or phone,
// the existing client is returned instead.
func (r *PostgresRepository) Create(ctx context.Context, req *NewClient) (*Client, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	email := NormalizeEmail(req.Email)
	query := `
		INSERT INTO clients (id, username, name, email, phone, password_hash, placeholder, auto_respond, sms_opt_in, email_opt_in)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		id.String(),
		req.Username,
		req.Name,
		email,
		req.Phone,
		req.PasswordHash,
		req.Placeholder,
		req.Preferences.AutoRespond,
		req.Preferences.SMSOptIn,
		req.Preferences.EmailOptIn,
	).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.existing(ctx, email, req.Phone)
	}
	if err != nil {
		return nil, fmt.Errorf("clients: insert failed: %w", err)
	}
	return &Client{
		ID:           id.String(),
		Username:     req.Username,
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: req.PasswordHash,
		Placeholder:  req.Placeholder,
		Preferences:  req.Preferences,
		CreatedAt:    createdAt,
	}, nil
}

// existing resolves the row that won an insert conflict.
func (r *PostgresRepository) existing(ctx context.Context, email, phone string) (*Client, error) {
	var (
		client *Client
		err    = ErrNotFound
	)
	if email != "" {
		client, err = r.FindByEmail(ctx, email)
	}
	if errors.Is(err, ErrNotFound) && phone != "" {
		client, err = r.FindByPhone(ctx, phone)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrConflict
	}
	return client, err
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanOne(ctx, query, NormalizeEmail(email))
}

func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE phone = $1 LIMIT 1`
	return r.scanOne(ctx, query, phone)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg string) (*Client, error) {
	var (
		c            Client
		id           uuid.UUID
		email, phone *string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&id,
		&c.Username,
		&c.Name,
		&email,
		&phone,
		&c.PasswordHash,
		&c.Placeholder,
		&c.Preferences.AutoRespond,
		&c.Preferences.SMSOptIn,
		&c.Preferences.EmailOptIn,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clients: select failed: %w", err)
	}
	c.ID = id.String()
	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	return &c, nil
}
