package dispatch

import "context"

// Message is one outbound email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer is the external mail transport. The dispatcher treats it as a black
// box: any returned error is captured as a bounce on the delivery record and
// never aborts the batch.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
