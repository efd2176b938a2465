package postgres

import (
	"context"
	"fmt"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

func (s *Store) CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignStats, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1)
	`, campaignID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("campaign exists: %w", err)
	}
	if !exists {
		return nil, repository.ErrNotFound
	}

	stats := &domain.CampaignStats{CampaignID: campaignID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE opened),
		       COUNT(*) FILTER (WHERE clicked),
		       COUNT(*) FILTER (WHERE bounced)
		FROM emails
		WHERE campaign_id = $1
	`, campaignID).Scan(&stats.Total, &stats.Opened, &stats.Clicked, &stats.Bounced)
	if err != nil {
		return nil, fmt.Errorf("campaign stats: %w", err)
	}

	stats.OpenRate = domain.Rate(stats.Opened, stats.Total)
	stats.ClickRate = domain.Rate(stats.Clicked, stats.Total)
	stats.BounceRate = domain.Rate(stats.Bounced, stats.Total)
	return stats, nil
}

func (s *Store) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	stats := &domain.GlobalStats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&stats.TotalCampaigns); err != nil {
		return nil, fmt.Errorf("count campaigns: %w", err)
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE opened),
		       COUNT(*) FILTER (WHERE clicked),
		       COUNT(*) FILTER (WHERE bounced)
		FROM emails
	`).Scan(&stats.TotalEmails, &stats.TotalOpened, &stats.TotalClicked, &stats.TotalBounced)
	if err != nil {
		return nil, fmt.Errorf("global stats: %w", err)
	}

	stats.OpenRate = domain.Rate(stats.TotalOpened, stats.TotalEmails)
	stats.ClickRate = domain.Rate(stats.TotalClicked, stats.TotalEmails)
	stats.BounceRate = domain.Rate(stats.TotalBounced, stats.TotalEmails)
	return stats, nil
}
