package tracking

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

// Recorder applies inbound tracking callbacks to delivery records. Both
// operations are fail-open: an unknown tracking identifier or a store error
// is logged and swallowed, because the caller must always serve its fixed
// response (pixel or redirect) to the end user.
type Recorder struct {
	store repository.EmailStore
}

// NewRecorder creates a recorder on top of the given store.
func NewRecorder(store repository.EmailStore) *Recorder {
	return &Recorder{store: store}
}

// RecordOpen records one open observation for the delivery record behind
// trackingID. The first observation latches opened/opened_at; every
// observation increments open_count and appends one event.
func (rec *Recorder) RecordOpen(ctx context.Context, trackingID string, info domain.ClientInfo) {
	msg, err := rec.store.RecordEngagement(ctx, trackingID, domain.EventOpened, info, nil)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("ERROR record open tracking=%s: %v", trackingID, err)
		}
		return
	}
	log.Printf("TRACK OPEN: campaign=%s recipient=%s count=%d", msg.CampaignID, msg.RecipientEmail, msg.OpenCount)
}

// RecordClick records one click observation and returns the redirect target.
// The target comes verbatim from the rewritten link's url parameter; absent
// or unsafe values fall back to "/".
func (rec *Recorder) RecordClick(ctx context.Context, trackingID, rawURL string, info domain.ClientInfo) string {
	target := rawURL
	if target == "" {
		target = "/"
	}

	msg, err := rec.store.RecordEngagement(ctx, trackingID, domain.EventClicked, info, map[string]string{"url": target})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("ERROR record click tracking=%s: %v", trackingID, err)
		}
		return safeRedirectTarget(target)
	}
	log.Printf("TRACK CLICK: campaign=%s recipient=%s url=%s count=%d", msg.CampaignID, msg.RecipientEmail, target, msg.ClickCount)

	return safeRedirectTarget(target)
}

// safeRedirectTarget rejects targets whose scheme could execute in the
// browser (javascript:, data:). Anything http(s) or site-relative passes
// through, which keeps this an open redirect for arbitrary web URLs; see
// the hardening note in DESIGN.md.
func safeRedirectTarget(target string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return "/"
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return target
	}
	return "/"
}
