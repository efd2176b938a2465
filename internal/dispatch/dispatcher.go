// Package dispatch implements the campaign send pipeline: one delivery
// record, one tracked HTML body, and at most one transport attempt per
// recipient per invocation.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
	"github.com/ignite/campaign-tracker/internal/tracking"
)

// plainTextFallback is the text/plain part sent alongside the tracked HTML.
const plainTextFallback = "This email is best viewed in an HTML-capable mail client."

// Store is the persistence surface the dispatcher needs.
type Store interface {
	repository.CampaignStore
	repository.RecipientStore
	repository.EmailStore
}

// Outcome is the terminal dispatch result for one recipient.
type Outcome struct {
	EmailID        string `json:"email_id"`
	RecipientEmail string `json:"recipient_email"`
	Sent           bool   `json:"sent"`
	BounceReason   string `json:"bounce_reason,omitempty"`
}

// SendResult summarizes one send batch.
type SendResult struct {
	CampaignID string    `json:"campaign_id"`
	SentCount  int       `json:"sent_count"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Service sends campaigns.
type Service struct {
	store   Store
	mailer  Mailer
	baseURL string
	workers int
}

// NewService creates a dispatcher. baseURL is the public origin tracking
// links point at; workers bounds how many transport sends run in parallel.
func NewService(store Store, mailer Mailer, baseURL string, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{store: store, mailer: mailer, baseURL: baseURL, workers: workers}
}

// Send dispatches the campaign to the given recipients. Each recipient is
// processed independently: a transport failure becomes a bounce on that
// recipient's delivery record and never aborts the batch. When every
// recipient has a terminal outcome the campaign's sent_at and total_sent
// are written together, once.
func (s *Service) Send(ctx context.Context, campaignID string, recipientIDs []string) (*SendResult, error) {
	campaign, err := s.store.CampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	recipients, err := s.store.RecipientsByIDs(ctx, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients to send to")
	}

	// The template is read once here; edits to the campaign mid-send are
	// not observed by in-flight recipients.
	template := campaign.HTMLContent
	subject := campaign.Subject

	jobs := make(chan domain.Recipient)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
		sent     int
	)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				out := s.sendOne(ctx, campaign.ID, subject, template, r)
				mu.Lock()
				outcomes = append(outcomes, out)
				if out.Sent {
					sent++
				}
				mu.Unlock()
			}
		}()
	}

	for _, r := range recipients {
		jobs <- r
	}
	close(jobs)
	wg.Wait()

	if err := s.store.CompleteCampaign(ctx, campaign.ID, time.Now().UTC(), sent); err != nil {
		return nil, fmt.Errorf("complete campaign: %w", err)
	}

	log.Printf("SEND DONE: campaign=%s recipients=%d sent=%d", campaign.ID, len(recipients), sent)
	return &SendResult{CampaignID: campaign.ID, SentCount: sent, Outcomes: outcomes}, nil
}

// sendOne creates the delivery record, rewrites the content for it, and
// attempts exactly one transport send.
func (s *Service) sendOne(ctx context.Context, campaignID, subject, template string, r domain.Recipient) Outcome {
	msg := &domain.EmailMessage{
		ID:             uuid.New().String(),
		CampaignID:     campaignID,
		RecipientEmail: r.Email,
		RecipientName:  r.Name,
		TrackingID:     tracking.NewID(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateEmail(ctx, msg); err != nil {
		log.Printf("ERROR create delivery record for %s: %v", r.Email, err)
		return Outcome{RecipientEmail: r.Email, BounceReason: err.Error()}
	}

	html := tracking.Rewrite(template,
		tracking.OpenURL(s.baseURL, msg.TrackingID),
		tracking.ClickURLPrefix(s.baseURL, msg.TrackingID))

	err := s.mailer.Send(ctx, Message{
		To:       r.Email,
		ToName:   r.Name,
		Subject:  subject,
		TextBody: plainTextFallback,
		HTMLBody: html,
	})
	if err != nil {
		if markErr := s.store.MarkBounced(ctx, msg.ID, time.Now().UTC(), err.Error()); markErr != nil {
			log.Printf("ERROR mark bounced email=%s: %v", msg.ID, markErr)
		}
		log.Printf("BOUNCE: campaign=%s recipient=%s reason=%v", campaignID, r.Email, err)
		return Outcome{EmailID: msg.ID, RecipientEmail: r.Email, BounceReason: err.Error()}
	}

	if err := s.store.MarkSent(ctx, msg.ID, time.Now().UTC()); err != nil {
		log.Printf("ERROR mark sent email=%s: %v", msg.ID, err)
	}
	return Outcome{EmailID: msg.ID, RecipientEmail: r.Email, Sent: true}
}
