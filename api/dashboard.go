package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// maxWidgetBody bounds a single dashboard payload.
const maxWidgetBody = 8 << 20

// DashboardAPI fetches raw widget payloads.
type DashboardAPI interface {
	Widget(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// Agent is an entry of the active-agents widget.
type Agent struct {
	AgentID      string `json:"agent_id"`
	LastActivity string `json:"last_activity"`
}

// Login is an entry of the recent-logins widget.
type Login struct {
	User      string `json:"user"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// HostCount is an entry of the host-list widget.
type HostCount struct {
	Hostname   string `json:"hostname"`
	EventCount int64  `json:"event_count"`
}

// TypeCount is an entry of the events-by-type chart.
type TypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// SeverityCount is an entry of the events-by-severity chart.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// UserCount is an entry of the top-users widget.
type UserCount struct {
	User       string `json:"user"`
	EventCount int64  `json:"event_count"`
}

// ProcessCount is an entry of the top-processes widget.
type ProcessCount struct {
	Process    string `json:"process"`
	EventCount int64  `json:"event_count"`
}

// HourCount is one hourly bucket of the timeline chart.
type HourCount struct {
	Hour       int   `json:"hour"`
	EventCount int64 `json:"event_count"`
}

type ActiveAgents struct {
	Agents []Agent `json:"agents"`
}

type RecentLogins struct {
	Logins []Login `json:"logins"`
}

type Hosts struct {
	Hosts []HostCount `json:"hosts"`
}

type EventsByType struct {
	EventTypes []TypeCount `json:"event_types"`
}

type EventsBySeverity struct {
	Severities []SeverityCount `json:"severities"`
}

type TopUsers struct {
	Users []UserCount `json:"users"`
}

type TopProcesses struct {
	Processes []ProcessCount `json:"processes"`
}

type Timeline struct {
	Timeline []HourCount `json:"timeline"`
}

// errorEnvelope catches {"error": "..."} alongside any domain payload.
type errorEnvelope struct {
	Error string `json:"error"`
}

// Widget fetches one dashboard endpoint and returns its raw JSON body.
// Non-2xx statuses become *HTTPError; a 2xx body carrying an "error" field
// becomes *DomainError.
func (c *Client) Widget(ctx context.Context, endpoint string) (json.RawMessage, error) {
	resp, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWidgetBody))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	if env.Error != "" {
		return nil, &DomainError{Message: env.Error}
	}
	return json.RawMessage(body), nil
}
