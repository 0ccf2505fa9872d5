package cli

import (
	"testing"
	"time"
)

func TestParseVideoIDs(t *testing.T) {
	ids, err := parseVideoIDs([]string{"3", "1", "3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	for _, bad := range []string{"0", "-2", "abc", ""} {
		if _, err := parseVideoIDs([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(time.Time{}); got != "0s" {
		t.Fatalf("zero time: got %q", got)
	}
	if got := formatElapsed(time.Now().Add(-30 * time.Second)); got != "30s" {
		t.Fatalf("seconds: got %q", got)
	}
	if got := formatElapsed(time.Now().Add(-3*time.Minute - 5*time.Second)); got != "3m05s" {
		t.Fatalf("minutes: got %q", got)
	}
	if got := formatElapsed(time.Now().Add(-2*time.Hour - 7*time.Minute)); got != "2h07m" {
		t.Fatalf("hours: got %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunes("a longer line", 8); got != "a lon..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunes("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}
