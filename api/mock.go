package api

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
)

// MockDashboardService is a DashboardAPI whose behaviour is supplied by tests.
type MockDashboardService struct {
	WidgetFunc func(ctx context.Context, endpoint string) (json.RawMessage, error)
}

func (m *MockDashboardService) Widget(ctx context.Context, endpoint string) (json.RawMessage, error) {
	if m.WidgetFunc == nil {
		return json.RawMessage(`{}`), nil
	}
	return m.WidgetFunc(ctx, endpoint)
}

// MockEventService is an EventsAPI whose behaviour is supplied by tests.
type MockEventService struct {
	SearchFunc func(ctx context.Context, params url.Values) (*SearchResult, error)
	ExportFunc func(ctx context.Context, params url.Values, w io.Writer) (int64, error)
}

func (m *MockEventService) Search(ctx context.Context, params url.Values) (*SearchResult, error) {
	if m.SearchFunc == nil {
		return &SearchResult{TotalPages: 1}, nil
	}
	return m.SearchFunc(ctx, params)
}

func (m *MockEventService) Export(ctx context.Context, params url.Values, w io.Writer) (int64, error) {
	if m.ExportFunc == nil {
		return 0, nil
	}
	return m.ExportFunc(ctx, params, w)
}

var (
	_ DashboardAPI = (*Client)(nil)
	_ EventsAPI    = (*Client)(nil)
	_ DashboardAPI = (*MockDashboardService)(nil)
	_ EventsAPI    = (*MockEventService)(nil)
)
