package internal

import "github.com/deevus/siem-tui/api"

// Services holds the API interfaces and session state for one server.
type Services struct {
	Dashboard api.DashboardAPI
	Events    api.EventsAPI
	Session   *api.Session
}

// NewServices creates a Services container from the given service interfaces.
func NewServices(dash api.DashboardAPI, ev api.EventsAPI, session *api.Session) *Services {
	if session == nil {
		session = api.NewSession(nil)
	}
	return &Services{
		Dashboard: dash,
		Events:    ev,
		Session:   session,
	}
}

// FromClient binds every service to one client and its session.
func FromClient(c *api.Client) *Services {
	return NewServices(c, c, c.Session())
}
