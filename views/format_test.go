package views

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	prev := displayLocation
	displayLocation = time.UTC
	t.Cleanup(func() { displayLocation = prev })

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"rfc3339", "2026-10-16T09:05:03Z", "16.10.2026, 09:05:03"},
		{"offset", "2026-10-16T12:05:03+03:00", "16.10.2026, 09:05:03"},
		{"fractional no zone", "2026-10-16T09:05:03.123456", "16.10.2026, 09:05:03"},
		{"space separated", "2026-10-16 09:05:03", "16.10.2026, 09:05:03"},
		{"unparseable", "yesterday", "yesterday"},
		{"empty", "", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimestamp(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	prev := displayLocation
	displayLocation = time.UTC
	t.Cleanup(func() { displayLocation = prev })

	if got := FormatClock("2026-10-16T09:05:03Z"); got != "09:05" {
		t.Errorf("expected 09:05, got %q", got)
	}
	if got := FormatClock("nope"); got != "--" {
		t.Errorf("expected --, got %q", got)
	}
}

func TestFormatCount(t *testing.T) {
	if got := FormatCount(999); got != "999" {
		t.Errorf("expected 999, got %q", got)
	}
	got := FormatCount(1234567)
	if got == "1234567" {
		t.Fatalf("expected digit grouping, got %q", got)
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, got)
	if digits != "1234567" {
		t.Errorf("expected grouping to keep digits, got %q", got)
	}
}

func TestSeverityStyle(t *testing.T) {
	if severityStyle("HIGH").Foreground != severityColors["high"] {
		t.Error("expected case-insensitive severity colour")
	}
	if severityStyle("unknown").Foreground != severityColors["low"] {
		t.Error("expected unknown severity to use the low colour")
	}
}
