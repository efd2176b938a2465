package tracking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewID issues a fresh tracking identifier: 128 bits from the system CSPRNG,
// hex encoded. The space is large enough that collisions are negligible and
// the value carries no relation to any other field on the delivery record.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// there is no way to issue identifiers without it.
		panic(fmt.Sprintf("tracking: read random: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// OpenURL builds the open-pixel URL for a tracking identifier.
func OpenURL(baseURL, trackingID string) string {
	return baseURL + "/track/open/" + trackingID
}

// ClickURLPrefix builds the click-redirect URL prefix for a tracking
// identifier. The rewriter appends ?url=<original> to it per link.
func ClickURLPrefix(baseURL, trackingID string) string {
	return baseURL + "/track/click/" + trackingID
}
