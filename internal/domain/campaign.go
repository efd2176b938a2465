package domain

import "time"

// Campaign represents a single bulk-email send: shared subject and HTML
// content across every recipient it is dispatched to.
type Campaign struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Subject     string    `json:"subject" db:"subject"`
	HTMLContent string    `json:"html_content" db:"html_content"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// SentAt and TotalSent are written together, exactly once, when a send
	// batch finishes. A nil SentAt means the campaign has never been sent.
	SentAt    *time.Time `json:"sent_at" db:"sent_at"`
	TotalSent int        `json:"total_sent" db:"total_sent"`
}

// Sent reports whether a send batch has completed for this campaign.
func (c *Campaign) Sent() bool { return c.SentAt != nil }
