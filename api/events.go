package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Event is a single security event record.
type Event struct {
	ID        int64  `json:"_id"`
	Timestamp string `json:"timestamp"`
	Hostname  string `json:"hostname"`
	Source    string `json:"source"`
	EventType string `json:"event_type"`
	Severity  string `json:"severity"`
	User      string `json:"user,omitempty"`
	Process   string `json:"process,omitempty"`
	Command   string `json:"command,omitempty"`
	RawLog    string `json:"raw_log"`
}

// SearchResult is one page of events.
type SearchResult struct {
	Events     []Event `json:"events"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// EventsAPI queries and exports security events.
type EventsAPI interface {
	Search(ctx context.Context, params url.Values) (*SearchResult, error)
	Export(ctx context.Context, params url.Values, w io.Writer) (int64, error)
}

// eventStatusError maps non-2xx statuses for the events endpoints: 502 and
// 503 mean the data tier is down, everything else is a plain HTTPError.
func eventStatusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, statusError(resp))
	}
	return statusError(resp)
}

// Search fetches one page of events matching params.
func (c *Client) Search(ctx context.Context, params url.Values) (*SearchResult, error) {
	resp, err := c.Get(ctx, "events", WithQuery(params))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eventStatusError(resp)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if ctx.Err() != nil {
			return nil, transportError(ctx, err)
		}
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	return &result, nil
}

// Export streams the export payload for params into w and returns the
// number of bytes written.
func (c *Client) Export(ctx context.Context, params url.Values, w io.Writer) (int64, error) {
	resp, err := c.Get(ctx, "events/export", WithQuery(params))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, eventStatusError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return n, transportError(ctx, err)
		}
		return n, fmt.Errorf("reading export: %w", err)
	}
	return n, nil
}
