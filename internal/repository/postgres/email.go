package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

const emailColumns = `
	id, campaign_id, recipient_email, recipient_name, tracking_id,
	sent, sent_at, opened, opened_at, open_count,
	clicked, clicked_at, click_count,
	bounced, bounced_at, COALESCE(bounce_reason,''), created_at`

func scanEmail(row interface{ Scan(...interface{}) error }) (*domain.EmailMessage, error) {
	m := &domain.EmailMessage{}
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.RecipientEmail, &m.RecipientName, &m.TrackingID,
		&m.Sent, &m.SentAt, &m.Opened, &m.OpenedAt, &m.OpenCount,
		&m.Clicked, &m.ClickedAt, &m.ClickCount,
		&m.Bounced, &m.BouncedAt, &m.BounceReason, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) CreateEmail(ctx context.Context, m *domain.EmailMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emails (id, campaign_id, recipient_email, recipient_name, tracking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.CampaignID, m.RecipientEmail, m.RecipientName, m.TrackingID, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create email: %w", err)
	}
	return nil
}

func (s *Store) EmailByTrackingID(ctx context.Context, trackingID string) (*domain.EmailMessage, error) {
	m, err := scanEmail(s.db.QueryRowContext(ctx, `
		SELECT `+emailColumns+` FROM emails WHERE tracking_id = $1
	`, trackingID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("email by tracking id: %w", err)
	}
	return m, nil
}

func (s *Store) EmailsByCampaign(ctx context.Context, campaignID string) ([]domain.EmailMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailColumns+` FROM emails WHERE campaign_id = $1 ORDER BY created_at DESC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("emails by campaign: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailMessage
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MarkSent sets the sent outcome and appends the "sent" event in one
// transaction.
func (s *Store) MarkSent(ctx context.Context, emailID string, at time.Time) error {
	return s.markOutcome(ctx, emailID, at, domain.EventSent, `
		UPDATE emails SET sent = TRUE, sent_at = $2 WHERE id = $1
	`, nil)
}

// MarkBounced sets the bounced outcome and appends the "bounced" event in
// one transaction.
func (s *Store) MarkBounced(ctx context.Context, emailID string, at time.Time, reason string) error {
	return s.markOutcome(ctx, emailID, at, domain.EventBounced, `
		UPDATE emails SET bounced = TRUE, bounced_at = $2, bounce_reason = $3 WHERE id = $1
	`, []interface{}{reason})
}

func (s *Store) markOutcome(ctx context.Context, emailID string, at time.Time, kind domain.EventType, query string, extra []interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	args := append([]interface{}{emailID, at}, extra...)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}

	var metadata map[string]string
	if kind == domain.EventBounced && len(extra) > 0 {
		metadata = map[string]string{"error": extra[0].(string)}
	}
	if err := insertEvent(ctx, tx, &domain.EmailEvent{
		ID:        uuid.New().String(),
		EmailID:   emailID,
		Type:      kind,
		Timestamp: at,
		Metadata:  metadata,
	}); err != nil {
		return err
	}

	return tx.Commit()
}

// RecordEngagement applies one open or click observation. The UPDATE locks
// the delivery record row, which serializes concurrent observations of the
// same tracking identifier: the latch timestamp is only written on the
// first one (COALESCE) while the counter increments on every one, and the
// event insert commits under the same lock.
func (s *Store) RecordEngagement(ctx context.Context, trackingID string, kind domain.EventType, info domain.ClientInfo, metadata map[string]string) (*domain.EmailMessage, error) {
	var query string
	switch kind {
	case domain.EventOpened:
		query = `
			UPDATE emails
			SET opened = TRUE, opened_at = COALESCE(opened_at, $2), open_count = open_count + 1
			WHERE tracking_id = $1
			RETURNING ` + emailColumns
	case domain.EventClicked:
		query = `
			UPDATE emails
			SET clicked = TRUE, clicked_at = COALESCE(clicked_at, $2), click_count = click_count + 1
			WHERE tracking_id = $1
			RETURNING ` + emailColumns
	default:
		return nil, fmt.Errorf("record engagement: unsupported event type %q", kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	m, err := scanEmail(tx.QueryRowContext(ctx, query, trackingID, now))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", kind, err)
	}

	if err := insertEvent(ctx, tx, &domain.EmailEvent{
		ID:        uuid.New().String(),
		EmailID:   m.ID,
		Type:      kind,
		Timestamp: now,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Metadata:  metadata,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit engagement: %w", err)
	}
	return m, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, evt *domain.EmailEvent) error {
	meta := []byte("{}")
	if len(evt.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(evt.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO email_events (id, email_id, event_type, timestamp, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.ID, evt.EmailID, string(evt.Type), evt.Timestamp, evt.IPAddress, evt.UserAgent, meta)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) EventsByEmail(ctx context.Context, emailID string) ([]domain.EmailEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email_id, event_type, timestamp, COALESCE(ip_address,''), COALESCE(user_agent,''), metadata
		FROM email_events
		WHERE email_id = $1
		ORDER BY timestamp ASC
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("events by email: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailEvent
	for rows.Next() {
		var evt domain.EmailEvent
		var kind string
		var meta []byte
		if err := rows.Scan(&evt.ID, &evt.EmailID, &kind, &evt.Timestamp, &evt.IPAddress, &evt.UserAgent, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Type = domain.EventType(kind)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &evt.Metadata)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}
