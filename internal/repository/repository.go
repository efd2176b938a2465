// Package repository defines the persistence surface shared by the postgres
// and memory backends. Services depend on the narrow interfaces below;
// cmd/server wires in a concrete Store.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/campaign-tracker/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// CampaignStore persists campaigns.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	CampaignByID(ctx context.Context, id string) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// CompleteCampaign writes sent_at and total_sent together. Readers must
	// never observe one without the other.
	CompleteCampaign(ctx context.Context, id string, sentAt time.Time, totalSent int) error
}

// RecipientStore persists the recipient directory.
type RecipientStore interface {
	// UpsertRecipient adds a recipient keyed by email. Adding an email that
	// already exists is a no-op; the stored row is returned either way.
	UpsertRecipient(ctx context.Context, r *domain.Recipient) (*domain.Recipient, error)
	ListRecipients(ctx context.Context) ([]domain.Recipient, error)
	RecipientsByIDs(ctx context.Context, ids []string) ([]domain.Recipient, error)
}

// EmailStore persists delivery records and their event log.
//
// MarkSent and MarkBounced set the terminal dispatch outcome and append the
// matching event in the same atomic step. RecordEngagement applies the
// latch+counter update for an open or click and appends one event; all
// mutations for a single delivery record are serialized, so concurrent
// first-touch races still produce exactly one first-observation timestamp.
type EmailStore interface {
	CreateEmail(ctx context.Context, m *domain.EmailMessage) error
	EmailByTrackingID(ctx context.Context, trackingID string) (*domain.EmailMessage, error)
	EmailsByCampaign(ctx context.Context, campaignID string) ([]domain.EmailMessage, error)
	MarkSent(ctx context.Context, emailID string, at time.Time) error
	MarkBounced(ctx context.Context, emailID string, at time.Time, reason string) error
	RecordEngagement(ctx context.Context, trackingID string, kind domain.EventType, info domain.ClientInfo, metadata map[string]string) (*domain.EmailMessage, error)
}

// EventStore reads the append-only event log.
type EventStore interface {
	EventsByEmail(ctx context.Context, emailID string) ([]domain.EmailEvent, error)
}

// StatsStore computes aggregate engagement counts.
type StatsStore interface {
	CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignStats, error)
	GlobalStats(ctx context.Context) (*domain.GlobalStats, error)
}

// Store is the combined persistence surface.
type Store interface {
	CampaignStore
	RecipientStore
	EmailStore
	EventStore
	StatsStore
}
