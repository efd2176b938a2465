// Package memory implements repository.Store in process memory. It backs
// the server when no database URL is configured and gives service tests a
// store with the same serialization guarantees as the postgres backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

// emailEntry pairs a delivery record with the mutex that serializes every
// mutation and event append for that record.
type emailEntry struct {
	mu     sync.Mutex
	msg    domain.EmailMessage
	events []domain.EmailEvent
}

// Store is a mutex-guarded in-memory implementation of repository.Store.
type Store struct {
	mu         sync.RWMutex
	campaigns  map[string]domain.Campaign
	recipients map[string]domain.Recipient
	byEmail    map[string]string // recipient email -> id
	emails     map[string]*emailEntry
	byTracking map[string]string // tracking id -> email id
}

// New creates an empty store.
func New() *Store {
	return &Store{
		campaigns:  make(map[string]domain.Campaign),
		recipients: make(map[string]domain.Recipient),
		byEmail:    make(map[string]string),
		emails:     make(map[string]*emailEntry),
		byTracking: make(map[string]string),
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.campaigns[c.ID] = *c
	return nil
}

func (s *Store) CampaignByID(ctx context.Context, id string) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (s *Store) CompleteCampaign(ctx context.Context, id string, sentAt time.Time, totalSent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.SentAt = &sentAt
	c.TotalSent = totalSent
	s.campaigns[id] = c
	return nil
}

func (s *Store) UpsertRecipient(ctx context.Context, r *domain.Recipient) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byEmail[r.Email]; ok {
		existing := s.recipients[id]
		return &existing, nil
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.recipients[r.ID] = *r
	s.byEmail[r.Email] = r.ID
	stored := *r
	return &stored, nil
}

func (s *Store) ListRecipients(ctx context.Context) ([]domain.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) RecipientsByIDs(ctx context.Context, ids []string) ([]domain.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Recipient, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.recipients[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) CreateEmail(ctx context.Context, m *domain.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.emails[m.ID] = &emailEntry{msg: *m}
	s.byTracking[m.TrackingID] = m.ID
	return nil
}

func (s *Store) EmailByTrackingID(ctx context.Context, trackingID string) (*domain.EmailMessage, error) {
	entry, err := s.entryByTracking(trackingID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	msg := entry.msg
	return &msg, nil
}

func (s *Store) EmailsByCampaign(ctx context.Context, campaignID string) ([]domain.EmailMessage, error) {
	s.mu.RLock()
	entries := make([]*emailEntry, 0)
	for _, e := range s.emails {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []domain.EmailMessage
	for _, e := range entries {
		e.mu.Lock()
		if e.msg.CampaignID == campaignID {
			out = append(out, e.msg)
		}
		e.mu.Unlock()
	}
	return out, nil
}

func (s *Store) MarkSent(ctx context.Context, emailID string, at time.Time) error {
	entry, err := s.entryByID(emailID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.msg.Sent = true
	entry.msg.SentAt = &at
	entry.events = append(entry.events, domain.EmailEvent{
		ID:        uuid.New().String(),
		EmailID:   emailID,
		Type:      domain.EventSent,
		Timestamp: at,
	})
	return nil
}

func (s *Store) MarkBounced(ctx context.Context, emailID string, at time.Time, reason string) error {
	entry, err := s.entryByID(emailID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.msg.Bounced = true
	entry.msg.BouncedAt = &at
	entry.msg.BounceReason = reason
	entry.events = append(entry.events, domain.EmailEvent{
		ID:        uuid.New().String(),
		EmailID:   emailID,
		Type:      domain.EventBounced,
		Timestamp: at,
		Metadata:  map[string]string{"error": reason},
	})
	return nil
}

func (s *Store) RecordEngagement(ctx context.Context, trackingID string, kind domain.EventType, info domain.ClientInfo, metadata map[string]string) (*domain.EmailMessage, error) {
	entry, err := s.entryByTracking(trackingID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now().UTC()
	switch kind {
	case domain.EventOpened:
		if !entry.msg.Opened {
			entry.msg.Opened = true
			entry.msg.OpenedAt = &now
		}
		entry.msg.OpenCount++
	case domain.EventClicked:
		if !entry.msg.Clicked {
			entry.msg.Clicked = true
			entry.msg.ClickedAt = &now
		}
		entry.msg.ClickCount++
	default:
		return nil, repository.ErrNotFound
	}

	entry.events = append(entry.events, domain.EmailEvent{
		ID:        uuid.New().String(),
		EmailID:   entry.msg.ID,
		Type:      kind,
		Timestamp: now,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Metadata:  metadata,
	})

	msg := entry.msg
	return &msg, nil
}

func (s *Store) EventsByEmail(ctx context.Context, emailID string) ([]domain.EmailEvent, error) {
	entry, err := s.entryByID(emailID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]domain.EmailEvent, len(entry.events))
	copy(out, entry.events)
	return out, nil
}

func (s *Store) CampaignStats(ctx context.Context, campaignID string) (*domain.CampaignStats, error) {
	if _, err := s.CampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}
	msgs, err := s.EmailsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats := &domain.CampaignStats{CampaignID: campaignID, Total: len(msgs)}
	for _, m := range msgs {
		if m.Opened {
			stats.Opened++
		}
		if m.Clicked {
			stats.Clicked++
		}
		if m.Bounced {
			stats.Bounced++
		}
	}
	stats.OpenRate = domain.Rate(stats.Opened, stats.Total)
	stats.ClickRate = domain.Rate(stats.Clicked, stats.Total)
	stats.BounceRate = domain.Rate(stats.Bounced, stats.Total)
	return stats, nil
}

func (s *Store) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	s.mu.RLock()
	totalCampaigns := len(s.campaigns)
	entries := make([]*emailEntry, 0, len(s.emails))
	for _, e := range s.emails {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	stats := &domain.GlobalStats{TotalCampaigns: totalCampaigns, TotalEmails: len(entries)}
	for _, e := range entries {
		e.mu.Lock()
		if e.msg.Opened {
			stats.TotalOpened++
		}
		if e.msg.Clicked {
			stats.TotalClicked++
		}
		if e.msg.Bounced {
			stats.TotalBounced++
		}
		e.mu.Unlock()
	}
	stats.OpenRate = domain.Rate(stats.TotalOpened, stats.TotalEmails)
	stats.ClickRate = domain.Rate(stats.TotalClicked, stats.TotalEmails)
	stats.BounceRate = domain.Rate(stats.TotalBounced, stats.TotalEmails)
	return stats, nil
}

func (s *Store) entryByID(emailID string) (*emailEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.emails[emailID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return entry, nil
}

func (s *Store) entryByTracking(trackingID string) (*emailEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTracking[trackingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.emails[id], nil
}

func sortByCreatedDesc(cs []domain.Campaign) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
