package views

import (
	"strings"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// displayLocation is the zone timestamps are shown in.
var displayLocation = time.Local

var ruPrinter = message.NewPrinter(language.Russian)

// timestampLayouts are the forms the server emits event times in.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatCount renders n with Russian digit grouping.
func FormatCount(n int64) string {
	return ruPrinter.Sprintf("%d", n)
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders an event time as "dd.mm.yyyy, hh:mm:ss". Values
// that do not parse are shown as-is, and empty values as "-".
func FormatTimestamp(s string) string {
	t, ok := parseTimestamp(s)
	if !ok {
		if s == "" {
			return "-"
		}
		return s
	}
	return t.In(displayLocation).Format("02.01.2006, 15:04:05")
}

// FormatClock renders only the hour and minute of a timestamp, or "--".
func FormatClock(s string) string {
	t, ok := parseTimestamp(s)
	if !ok {
		return "--"
	}
	return t.In(displayLocation).Format("15:04")
}

// Severity buckets in display order.
var severityOrder = []string{"low", "medium", "high", "critical"}

var severityLabels = map[string]string{
	"low":      "Низкая",
	"medium":   "Средняя",
	"high":     "Высокая",
	"critical": "Критическая",
}

var severityColors = map[string]vaxis.Color{
	"low":      vaxis.IndexColor(2),
	"medium":   vaxis.IndexColor(3),
	"high":     vaxis.IndexColor(1),
	"critical": vaxis.IndexColor(5),
}

// severityStyle colours a severity value; unknown values fall back to low.
func severityStyle(sev string) vaxis.Style {
	c, ok := severityColors[strings.ToLower(sev)]
	if !ok {
		c = severityColors["low"]
	}
	st := vaxis.Style{Foreground: c}
	if strings.EqualFold(sev, "critical") {
		st.Attribute = vaxis.AttrBold
	}
	return st
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
