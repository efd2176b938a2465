package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
	"github.com/ignite/campaign-tracker/internal/repository/memory"
)

// fakeMailer records every send and fails for addresses in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[string]error
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[msg.To]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.sent))
	copy(out, f.sent)
	return out
}

func seedCampaign(t *testing.T, store *memory.Store, emails ...string) (*domain.Campaign, []string) {
	t.Helper()
	ctx := context.Background()

	campaign := &domain.Campaign{
		Name:        "Spring Deals",
		Subject:     "Big spring deals",
		HTMLContent: `<html><body><a href="http://x.com/deal">deal</a></body></html>`,
	}
	require.NoError(t, store.CreateCampaign(ctx, campaign))

	var ids []string
	for _, email := range emails {
		r, err := store.UpsertRecipient(ctx, &domain.Recipient{Email: email, Name: "Test User"})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	return campaign, ids
}

func TestSendAllSucceed(t *testing.T) {
	store := memory.New()
	mailer := &fakeMailer{}
	svc := NewService(store, mailer, "https://track.example.com", 4)
	ctx := context.Background()

	campaign, ids := seedCampaign(t, store, "a@example.com", "b@example.com")

	result, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SentCount)
	assert.Len(t, result.Outcomes, 2)

	got, err := store.CampaignByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SentAt, "sent_at and total_sent committed together")
	assert.Equal(t, 2, got.TotalSent)
}

func TestSendPartialFailure(t *testing.T) {
	store := memory.New()
	mailer := &fakeMailer{failFor: map[string]error{
		"bad@example.com": errors.New("554 mailbox unavailable"),
	}}
	svc := NewService(store, mailer, "https://track.example.com", 2)
	ctx := context.Background()

	campaign, ids := seedCampaign(t, store, "a@example.com", "bad@example.com", "c@example.com")

	result, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err, "one recipient's failure must not abort the batch")
	assert.Equal(t, 2, result.SentCount)

	records, err := store.EmailsByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)

	var bounced, sent int
	for _, m := range records {
		switch {
		case m.Bounced:
			bounced++
			assert.False(t, m.Sent, "one terminal outcome per record")
			assert.Equal(t, "bad@example.com", m.RecipientEmail)
			assert.Contains(t, m.BounceReason, "mailbox unavailable")
			require.NotNil(t, m.BouncedAt)
		case m.Sent:
			sent++
			require.NotNil(t, m.SentAt)
		}
	}
	assert.Equal(t, 1, bounced)
	assert.Equal(t, 2, sent)

	got, err := store.CampaignByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, 2, got.TotalSent)
}

func TestSendEmbedsTracking(t *testing.T) {
	store := memory.New()
	mailer := &fakeMailer{}
	svc := NewService(store, mailer, "https://track.example.com", 1)
	ctx := context.Background()

	campaign, ids := seedCampaign(t, store, "a@example.com")

	_, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err)

	msgs := mailer.messages()
	require.Len(t, msgs, 1)

	records, err := store.EmailsByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	tid := records[0].TrackingID

	assert.Contains(t, msgs[0].HTMLBody, "https://track.example.com/track/open/"+tid)
	assert.Contains(t, msgs[0].HTMLBody, `href="https://track.example.com/track/click/`+tid+`?url=http://x.com/deal"`)
	assert.Equal(t, "Big spring deals", msgs[0].Subject)
	assert.NotEmpty(t, msgs[0].TextBody, "plaintext fallback always present")
}

func TestSendDistinctTrackingIDs(t *testing.T) {
	store := memory.New()
	mailer := &fakeMailer{}
	svc := NewService(store, mailer, "https://track.example.com", 4)
	ctx := context.Background()

	emails := make([]string, 20)
	for i := range emails {
		emails[i] = strings.ToLower("user" + string(rune('a'+i)) + "@example.com")
	}
	campaign, ids := seedCampaign(t, store, emails...)

	_, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err)

	records, err := store.EmailsByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	seen := make(map[string]struct{})
	for _, m := range records {
		_, dup := seen[m.TrackingID]
		assert.False(t, dup, "tracking id reused: %s", m.TrackingID)
		seen[m.TrackingID] = struct{}{}
	}
}

func TestSendAppendsEventsInOrder(t *testing.T) {
	store := memory.New()
	mailer := &fakeMailer{}
	svc := NewService(store, mailer, "https://track.example.com", 1)
	ctx := context.Background()

	campaign, ids := seedCampaign(t, store, "a@example.com")

	_, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err)

	records, err := store.EmailsByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	events, err := store.EventsByEmail(ctx, records[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventSent, events[0].Type, "sent precedes any engagement event")
}

func TestSendBounceEventCarriesReason(t *testing.T) {
	store := memory.New()
	mailer := &fakeMailer{failFor: map[string]error{
		"bad@example.com": errors.New("connection refused"),
	}}
	svc := NewService(store, mailer, "https://track.example.com", 1)
	ctx := context.Background()

	campaign, ids := seedCampaign(t, store, "bad@example.com")

	result, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SentCount)

	records, err := store.EmailsByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	events, err := store.EventsByEmail(ctx, records[0].ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventBounced, events[0].Type)
	assert.Contains(t, events[0].Metadata["error"], "connection refused")
}

func TestSendUnknownCampaign(t *testing.T) {
	store := memory.New()
	svc := NewService(store, &fakeMailer{}, "https://track.example.com", 1)

	_, err := svc.Send(context.Background(), "no-such-campaign", []string{"r1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestSendNoRecipients(t *testing.T) {
	store := memory.New()
	svc := NewService(store, &fakeMailer{}, "https://track.example.com", 1)
	ctx := context.Background()

	campaign, _ := seedCampaign(t, store)

	_, err := svc.Send(ctx, campaign.ID, []string{"missing-id"})
	require.Error(t, err)

	got, err := store.CampaignByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SentAt, "campaign not completed when nothing was attempted")
}

func TestSendSlowTransportBoundedByWorkers(t *testing.T) {
	store := memory.New()

	var inflight, peak int32
	var mu sync.Mutex
	slowMailer := mailerFunc(func(ctx context.Context, msg Message) error {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		return nil
	})

	svc := NewService(store, slowMailer, "https://track.example.com", 2)
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	campaign, ids := seedCampaign(t, store, emails...)

	result, err := svc.Send(ctx, campaign.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, len(emails), result.SentCount)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(2), "transport concurrency bounded by worker count")
}

type mailerFunc func(ctx context.Context, msg Message) error

func (f mailerFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
