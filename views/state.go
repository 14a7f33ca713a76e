package views

import "github.com/deevus/siem-tui/events"

// WidgetUpdated is posted when a dashboard widget changes state. An empty
// Name means the whole dashboard changed at once (a new cycle started).
type WidgetUpdated struct {
	Name string
}

// EventsUpdated is posted by the events controller on every transition.
type EventsUpdated struct{}

// SessionExpired is posted once when the server rejects the session.
type SessionExpired struct{}

// NoticesChanged is posted when a notice is added, dismissed or expires.
type NoticesChanged struct{}

// ExportFinished is posted when a background export completes.
type ExportFinished struct {
	Format string
	Result events.ExportResult
	Err    error
}
