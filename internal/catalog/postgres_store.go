package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrSettingsMissing is returned when the business_settings table has no row.
var ErrSettingsMissing = errors.New("catalog: business settings not configured")

// PostgresStore reads the catalog from Postgres.
type PostgresStore struct {
	db querier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(q querier) *PostgresStore {
	if q == nil {
		panic("catalog: querier required")
	}
	return &PostgresStore{db: q}
}

func (s *PostgresStore) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, price, duration_minutes, COALESCE(description, '')
		FROM services
		WHERE active
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.Name, &svc.Price, &svc.DurationMinutes, &svc.Description); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, COALESCE(title, ''), COALESCE(bio, '')
		FROM staff
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list staff: %w", err)
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var member Staff
		if err := rows.Scan(&member.Name, &member.Title, &member.Bio); err != nil {
			return nil, fmt.Errorf("catalog: scan staff: %w", err)
		}
		out = append(out, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list staff: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) BusinessKnowledge(ctx context.Context) (string, error) {
	var knowledge string
	err := s.db.QueryRow(ctx, `SELECT COALESCE(knowledge, '') FROM business_settings WHERE id = 1`).Scan(&knowledge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("catalog: load knowledge: %w", err)
	}
	return knowledge, nil
}

func (s *PostgresStore) BusinessSettings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.db.QueryRow(ctx, `
		SELECT name, COALESCE(business_type, ''), COALESCE(phone, ''), COALESCE(email, ''),
		       COALESCE(address, ''), COALESCE(hours, ''), COALESCE(timezone, '')
		FROM business_settings
		WHERE id = 1
	`).Scan(&out.BusinessName, &out.BusinessType, &out.Phone, &out.Email, &out.Address, &out.Hours, &out.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrSettingsMissing
		}
		return Settings{}, fmt.Errorf("catalog: load settings: %w", err)
	}
	return out, nil
}
