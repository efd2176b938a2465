package tracking

import (
	"regexp"
	"testing"
)

func TestNewIDFormat(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{32}$`)
	for i := 0; i < 100; i++ {
		id := NewID()
		if !hexPattern.MatchString(id) {
			t.Fatalf("NewID() = %q, want 32 lowercase hex chars", id)
		}
	}
}

func TestNewIDUniqueness(t *testing.T) {
	const n = 100000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate tracking id after %d draws: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestTrackingURLs(t *testing.T) {
	base := "https://track.example.com"
	id := "abc123"

	if got, want := OpenURL(base, id), "https://track.example.com/track/open/abc123"; got != want {
		t.Errorf("OpenURL = %q, want %q", got, want)
	}
	if got, want := ClickURLPrefix(base, id), "https://track.example.com/track/click/abc123"; got != want {
		t.Errorf("ClickURLPrefix = %q, want %q", got, want)
	}
}
