package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/campaign-tracker/internal/domain"
)

// UpsertRecipient inserts a directory entry; adding an email that already
// exists keeps the original row untouched and returns it.
func (s *Store) UpsertRecipient(ctx context.Context, r *domain.Recipient) (*domain.Recipient, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	stored := &domain.Recipient{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO recipients (id, email, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, created_at
	`, r.ID, r.Email, r.Name, r.CreatedAt).Scan(&stored.ID, &stored.Email, &stored.Name, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert recipient: %w", err)
	}
	return stored, nil
}

func (s *Store) ListRecipients(ctx context.Context) ([]domain.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, created_at FROM recipients ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RecipientsByIDs(ctx context.Context, ids []string) ([]domain.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, created_at FROM recipients WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("recipients by ids: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
