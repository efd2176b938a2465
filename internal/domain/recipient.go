package domain

import "time"

// Recipient is a directory entry keyed by email address. Delivery records
// copy the email and name at send time rather than referencing this row, so
// later directory edits never rewrite history.
type Recipient struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
