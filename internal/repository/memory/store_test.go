package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

func TestCampaignLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := &domain.Campaign{Name: "Welcome", Subject: "Hello", HTMLContent: "<body>hi</body>"}
	require.NoError(t, s.CreateCampaign(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := s.CampaignByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", got.Name)
	assert.Nil(t, got.SentAt)

	sentAt := time.Now().UTC()
	require.NoError(t, s.CompleteCampaign(ctx, c.ID, sentAt, 7))

	got, err = s.CampaignByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(sentAt))
	assert.Equal(t, 7, got.TotalSent)
}

func TestCampaignNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CampaignByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = s.CompleteCampaign(ctx, "nope", time.Now(), 0)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListCampaignsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	old := &domain.Campaign{Name: "old", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &domain.Campaign{Name: "newer", CreatedAt: time.Now()}
	require.NoError(t, s.CreateCampaign(ctx, old))
	require.NoError(t, s.CreateCampaign(ctx, newer))

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)
	assert.Equal(t, "old", list[1].Name)
}

func TestUpsertRecipientIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.UpsertRecipient(ctx, &domain.Recipient{Email: "a@example.com", Name: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := s.UpsertRecipient(ctx, &domain.Recipient{Email: "a@example.com", Name: "Someone Else"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same email maps to the same recipient")
	assert.Equal(t, "Alice", second.Name)

	list, err := s.ListRecipients(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecipientsByIDsSkipsUnknown(t *testing.T) {
	s := New()
	ctx := context.Background()

	r, err := s.UpsertRecipient(ctx, &domain.Recipient{Email: "a@example.com"})
	require.NoError(t, err)

	got, err := s.RecipientsByIDs(ctx, []string{r.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a@example.com", got[0].Email)
}

func newEmail(t *testing.T, s *Store, campaignID, trackingID string) *domain.EmailMessage {
	t.Helper()
	m := &domain.EmailMessage{
		CampaignID:     campaignID,
		RecipientEmail: "r@example.com",
		TrackingID:     trackingID,
	}
	require.NoError(t, s.CreateEmail(context.Background(), m))
	return m
}

func TestEmailLookupByTrackingID(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := newEmail(t, s, "camp-1", "tid-1")

	got, err := s.EmailByTrackingID(ctx, "tid-1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = s.EmailByTrackingID(ctx, "tid-unknown")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkSentAppendsEvent(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := newEmail(t, s, "camp-1", "tid-1")
	at := time.Now().UTC()
	require.NoError(t, s.MarkSent(ctx, m.ID, at))

	got, err := s.EmailByTrackingID(ctx, "tid-1")
	require.NoError(t, err)
	assert.True(t, got.Sent)
	require.NotNil(t, got.SentAt)

	events, err := s.EventsByEmail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSent, events[0].Type)
	assert.True(t, events[0].Timestamp.Equal(at))
}

func TestMarkBouncedRecordsReason(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := newEmail(t, s, "camp-1", "tid-1")
	require.NoError(t, s.MarkBounced(ctx, m.ID, time.Now().UTC(), "550 user unknown"))

	got, err := s.EmailByTrackingID(ctx, "tid-1")
	require.NoError(t, err)
	assert.True(t, got.Bounced)
	assert.Equal(t, "550 user unknown", got.BounceReason)

	events, err := s.EventsByEmail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "550 user unknown", events[0].Metadata["error"])
}

func TestRecordEngagementLatchesAndCounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := newEmail(t, s, "camp-1", "tid-1")
	require.NoError(t, s.MarkSent(ctx, m.ID, time.Now().UTC()))

	first, err := s.RecordEngagement(ctx, "tid-1", domain.EventOpened, domain.ClientInfo{IPAddress: "10.0.0.1"}, nil)
	require.NoError(t, err)
	assert.True(t, first.Opened)
	assert.Equal(t, 1, first.OpenCount)
	require.NotNil(t, first.OpenedAt)
	firstAt := *first.OpenedAt

	second, err := s.RecordEngagement(ctx, "tid-1", domain.EventOpened, domain.ClientInfo{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.OpenCount)
	assert.True(t, second.OpenedAt.Equal(firstAt), "opened_at latches on the first open")

	events, err := s.EventsByEmail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventSent, events[0].Type)
	assert.Equal(t, domain.EventOpened, events[1].Type)
	assert.Equal(t, "10.0.0.1", events[1].IPAddress)
}

func TestRecordEngagementUnknownTrackingID(t *testing.T) {
	s := New()
	_, err := s.RecordEngagement(context.Background(), "missing", domain.EventOpened, domain.ClientInfo{}, nil)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestRecordEngagementRejectsNonEngagementKind(t *testing.T) {
	s := New()
	ctx := context.Background()

	newEmail(t, s, "camp-1", "tid-1")

	_, err := s.RecordEngagement(ctx, "tid-1", domain.EventSent, domain.ClientInfo{}, nil)
	assert.Error(t, err)
}

func TestConcurrentClicksCountEveryObservation(t *testing.T) {
	s := New()
	ctx := context.Background()

	m := newEmail(t, s, "camp-1", "tid-1")
	require.NoError(t, s.MarkSent(ctx, m.ID, time.Now().UTC()))

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordEngagement(ctx, "tid-1", domain.EventClicked, domain.ClientInfo{}, map[string]string{"url": "http://x.com"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.EmailByTrackingID(ctx, "tid-1")
	require.NoError(t, err)
	assert.True(t, got.Clicked)
	assert.Equal(t, n, got.ClickCount)

	events, err := s.EventsByEmail(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, events, n+1)
}

func TestEmailsByCampaignFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	newEmail(t, s, "camp-1", "tid-1")
	newEmail(t, s, "camp-1", "tid-2")
	newEmail(t, s, "camp-2", "tid-3")

	got, err := s.EmailsByCampaign(ctx, "camp-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
