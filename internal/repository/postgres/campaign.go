package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, subject, html_content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Subject, c.HTMLContent, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (s *Store) CampaignByID(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, subject, html_content, created_at, sent_at, total_sent
		FROM campaigns
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Subject, &c.HTMLContent, &c.CreatedAt, &c.SentAt, &c.TotalSent)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, subject, html_content, created_at, sent_at, total_sent
		FROM campaigns
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.HTMLContent, &c.CreatedAt, &c.SentAt, &c.TotalSent); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompleteCampaign writes sent_at and total_sent in one statement so readers
// always see them change together.
func (s *Store) CompleteCampaign(ctx context.Context, id string, sentAt time.Time, totalSent int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET sent_at = $2, total_sent = $3 WHERE id = $1
	`, id, sentAt, totalSent)
	if err != nil {
		return fmt.Errorf("complete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
