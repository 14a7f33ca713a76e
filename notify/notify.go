// Package notify implements transient, user-visible status messages.
package notify

import (
	"sync"
	"time"

	"github.com/deevus/siem-tui/schedule"
	"github.com/google/uuid"
)

// DefaultTTL is how long a notice stays visible unless dismissed.
const DefaultTTL = 3 * time.Second

// Level is the notice severity; it selects the toast colour.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one visible message.
type Notice struct {
	ID      uuid.UUID
	Level   Level
	Message string
	Posted  time.Time
}

// Channel holds active notices and expires them after a fixed lifetime.
type Channel struct {
	mu       sync.Mutex
	clock    schedule.Clock
	ttl      time.Duration
	notices  []Notice
	timers   map[uuid.UUID]schedule.Timer
	onChange func()
}

// ChannelParams holds configuration for creating a Channel.
type ChannelParams struct {
	TTL   time.Duration
	Clock schedule.Clock
	// OnChange runs after every post, dismissal and expiry, outside the lock.
	OnChange func()
}

// NewChannel creates an empty Channel.
func NewChannel(p ChannelParams) *Channel {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	clock := p.Clock
	if clock == nil {
		clock = schedule.RealClock()
	}
	return &Channel{
		clock:    clock,
		ttl:      ttl,
		timers:   make(map[uuid.UUID]schedule.Timer),
		onChange: p.OnChange,
	}
}

// SetOnChange replaces the change hook.
func (c *Channel) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Post adds a notice and schedules its expiry.
func (c *Channel) Post(level Level, message string) uuid.UUID {
	id := uuid.New()
	c.mu.Lock()
	c.notices = append(c.notices, Notice{
		ID:      id,
		Level:   level,
		Message: message,
		Posted:  c.clock.Now(),
	})
	c.timers[id] = c.clock.AfterFunc(c.ttl, func() { c.Dismiss(id) })
	hook := c.onChange
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return id
}

// Dismiss removes a notice early. It reports whether the notice was active.
func (c *Channel) Dismiss(id uuid.UUID) bool {
	c.mu.Lock()
	idx := -1
	for i, n := range c.notices {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.notices = append(c.notices[:idx], c.notices[idx+1:]...)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	hook := c.onChange
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// DismissLatest removes the most recently posted notice.
func (c *Channel) DismissLatest() bool {
	c.mu.Lock()
	if len(c.notices) == 0 {
		c.mu.Unlock()
		return false
	}
	id := c.notices[len(c.notices)-1].ID
	c.mu.Unlock()
	return c.Dismiss(id)
}

// Clear removes every notice and cancels pending expiries.
func (c *Channel) Clear() {
	c.mu.Lock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	had := len(c.notices) > 0
	c.notices = nil
	hook := c.onChange
	c.mu.Unlock()

	if had && hook != nil {
		hook()
	}
}

// Active returns a snapshot of visible notices, oldest first.
func (c *Channel) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}
