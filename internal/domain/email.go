package domain

import "time"

// EmailMessage is the per-recipient, per-campaign delivery record. It carries
// the tracking identifier embedded in the outgoing HTML and the engagement
// state accumulated from tracking callbacks.
//
// Opened and Clicked are latches: once true they never reset. OpenCount and
// ClickCount increment on every observation including the first. Sent and
// Bounced are mutually exclusive terminal outcomes of the dispatch attempt.
type EmailMessage struct {
	ID             string `json:"id" db:"id"`
	CampaignID     string `json:"campaign_id" db:"campaign_id"`
	RecipientEmail string `json:"recipient_email" db:"recipient_email"`
	RecipientName  string `json:"recipient_name" db:"recipient_name"`
	TrackingID     string `json:"tracking_id" db:"tracking_id"`

	Sent   bool       `json:"sent" db:"sent"`
	SentAt *time.Time `json:"sent_at" db:"sent_at"`

	Opened    bool       `json:"opened" db:"opened"`
	OpenedAt  *time.Time `json:"opened_at" db:"opened_at"`
	OpenCount int        `json:"open_count" db:"open_count"`

	Clicked    bool       `json:"clicked" db:"clicked"`
	ClickedAt  *time.Time `json:"clicked_at" db:"clicked_at"`
	ClickCount int        `json:"click_count" db:"click_count"`

	Bounced      bool       `json:"bounced" db:"bounced"`
	BouncedAt    *time.Time `json:"bounced_at" db:"bounced_at"`
	BounceReason string     `json:"bounce_reason" db:"bounce_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
