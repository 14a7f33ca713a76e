package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deevus/siem-tui/api"
	"golang.org/x/sync/errgroup"
)

// Status is a widget's last settled outcome.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the per-widget status read by the UI for badges and spinners.
type State struct {
	Status    Status
	Message   string
	Loading   bool
	UpdatedAt time.Time
}

// cycle is one refresh batch. Requests hold a back-reference to their cycle
// and check it is still current before applying anything.
type cycle struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc
	// unsettled holds the widgets this cycle marked Loading and has not
	// yet applied.
	unsettled map[string]bool
}

// DispatcherParams holds configuration for creating a Dispatcher.
type DispatcherParams struct {
	Registry *Registry
	Service  api.DashboardAPI
	Logger   *slog.Logger
	// MaxConcurrent caps in-flight widget fetches per cycle; zero means no cap.
	MaxConcurrent int
	// OnChange runs after a widget's state changes, outside the lock.
	// An empty name means several widgets changed at once.
	OnChange func(name string)
}

// Dispatcher runs refresh cycles over a Registry.
type Dispatcher struct {
	registry *Registry
	svc      api.DashboardAPI
	logger   *slog.Logger
	limit    int
	onChange func(string)
	now      func() time.Time

	mu        sync.Mutex
	states    map[string]State
	current   *cycle
	nextID    uint64
	lastCycle time.Time
}

// NewDispatcher creates a Dispatcher with every widget in StatusUnknown.
func NewDispatcher(p DispatcherParams) *Dispatcher {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	states := make(map[string]State, p.Registry.Len())
	for _, name := range p.Registry.Names() {
		states[name] = State{}
	}
	return &Dispatcher{
		registry: p.Registry,
		svc:      p.Service,
		logger:   logger,
		limit:    p.MaxConcurrent,
		onChange: p.OnChange,
		now:      time.Now,
		states:   states,
	}
}

// SetOnChange replaces the change hook. Must be called before the first cycle.
func (d *Dispatcher) SetOnChange(fn func(string)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Registry returns the widget registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// RefreshAll cancels any in-flight cycle, starts a new one and blocks until
// every widget in it has settled. Each widget is applied as soon as its own
// response arrives.
func (d *Dispatcher) RefreshAll(ctx context.Context) {
	d.RefreshAllIf(ctx, nil)
}

// RefreshAllIf is RefreshAll gated on ok, which is evaluated under the
// dispatcher lock immediately before the cycle begins. A Cancel that
// follows a false ok therefore never races a cycle it could not see.
// It reports whether a cycle ran.
func (d *Dispatcher) RefreshAllIf(ctx context.Context, ok func() bool) bool {
	c := d.begin(ctx, ok)
	if c == nil {
		return false
	}

	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for _, desc := range d.registry.All() {
		g.Go(func() error {
			d.refreshInCycle(c, desc)
			return nil
		})
	}
	_ = g.Wait()

	d.finish(c)
	return true
}

func (d *Dispatcher) begin(parent context.Context, ok func() bool) *cycle {
	d.mu.Lock()
	if ok != nil && !ok() {
		d.mu.Unlock()
		return nil
	}
	if d.current != nil {
		d.current.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	d.nextID++
	c := &cycle{id: d.nextID, ctx: ctx, cancel: cancel, unsettled: make(map[string]bool)}
	d.current = c
	d.lastCycle = d.now()
	for _, desc := range d.registry.All() {
		if !desc.Chart {
			st := d.states[desc.Name]
			st.Loading = true
			d.states[desc.Name] = st
			c.unsettled[desc.Name] = true
		}
	}
	hook := d.onChange
	d.mu.Unlock()

	d.logger.Debug("refresh cycle started", "cycle", c.id)
	if hook != nil {
		hook("")
	}
	return c
}

func (d *Dispatcher) finish(c *cycle) {
	d.mu.Lock()
	if d.current == c {
		d.current = nil
	}
	d.mu.Unlock()
	c.cancel()
}

// isCurrentLocked reports whether c may still apply side effects.
func (d *Dispatcher) isCurrentLocked(c *cycle) bool {
	return d.current == c && c.ctx.Err() == nil
}

func (d *Dispatcher) refreshInCycle(c *cycle, desc Descriptor) {
	payload, err := d.svc.Widget(c.ctx, desc.Endpoint)

	d.mu.Lock()
	if !d.isCurrentLocked(c) {
		// A newer cycle owns Loading; otherwise nothing will settle it.
		cleared := false
		if d.current == nil || d.current == c {
			cleared = d.settleLocked(c, desc.Name)
		}
		hook := d.onChange
		d.mu.Unlock()
		d.logger.Debug("dropping superseded widget response", "widget", desc.Name, "cycle", c.id)
		if cleared && hook != nil {
			hook(desc.Name)
		}
		return
	}
	delete(c.unsettled, desc.Name)
	d.applyLocked(desc, payload, err)
	hook := d.onChange
	d.mu.Unlock()

	if hook != nil {
		hook(desc.Name)
	}
}

// settleLocked clears Loading on name if c still owes it a response.
// Status and Message are left as they were.
func (d *Dispatcher) settleLocked(c *cycle, name string) bool {
	if !c.unsettled[name] {
		return false
	}
	delete(c.unsettled, name)
	st := d.states[name]
	st.Loading = false
	d.states[name] = st
	return true
}

// applyLocked settles one widget. Render runs under the lock so a cycle
// cannot be superseded between the currency check and the render.
func (d *Dispatcher) applyLocked(desc Descriptor, payload []byte, err error) {
	st := d.states[desc.Name]
	st.Loading = false

	if err == nil {
		if rerr := desc.Render(payload); rerr != nil {
			d.logger.Error("widget render failed", "widget", desc.Name, "error", rerr)
			st.Status = StatusError
			st.Message = rerr.Error()
		} else {
			st.Status = StatusOK
			st.Message = ""
			st.UpdatedAt = d.now()
		}
		d.states[desc.Name] = st
		return
	}

	switch api.KindOf(err) {
	case api.KindCanceled:
		// Superseded or torn down: not a failure.
	case api.KindAuthRequired:
		d.logger.Info("widget fetch abandoned, authentication required", "widget", desc.Name)
	default:
		d.logger.Error("widget load failed", "widget", desc.Name, "error", err)
		st.Status = StatusError
		st.Message = err.Error()
	}
	d.states[desc.Name] = st
}

// Retry re-fetches a single widget outside any cycle's cancellation scope.
func (d *Dispatcher) Retry(ctx context.Context, name string) error {
	desc, ok := d.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown widget %q", name)
	}

	d.mu.Lock()
	if !desc.Chart {
		st := d.states[name]
		st.Loading = true
		d.states[name] = st
	}
	hook := d.onChange
	d.mu.Unlock()
	if hook != nil {
		hook(name)
	}

	payload, err := d.svc.Widget(ctx, desc.Endpoint)

	d.mu.Lock()
	d.applyLocked(desc, payload, err)
	st := d.states[name]
	d.mu.Unlock()
	if hook != nil {
		hook(name)
	}

	if err != nil {
		return err
	}
	if st.Status == StatusError {
		return fmt.Errorf("widget %q: %s", name, st.Message)
	}
	return nil
}

// Cancel aborts the in-flight cycle, if any. Its late responses are dropped
// and widgets it had not settled stop loading with their last status.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	c := d.current
	d.current = nil
	cleared := false
	if c != nil {
		for name := range c.unsettled {
			cleared = d.settleLocked(c, name) || cleared
		}
	}
	hook := d.onChange
	d.mu.Unlock()
	if c == nil {
		return
	}
	c.cancel()
	d.logger.Debug("refresh cycle cancelled", "cycle", c.id)
	if cleared && hook != nil {
		hook("")
	}
}

// ActiveCycle returns the id of the in-flight cycle, or 0.
func (d *Dispatcher) ActiveCycle() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return 0
	}
	return d.current.id
}

// LastCycle returns when the most recent cycle started.
func (d *Dispatcher) LastCycle() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCycle
}

// State returns the state of one widget.
func (d *Dispatcher) State(name string) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[name]
}

// States returns a snapshot of every widget's state.
func (d *Dispatcher) States() map[string]State {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]State, len(d.states))
	for k, v := range d.states {
		out[k] = v
	}
	return out
}

// Failed returns the names of widgets currently in StatusError, in
// registration order.
func (d *Dispatcher) Failed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, name := range d.registry.Names() {
		if d.states[name].Status == StatusError {
			out = append(out, name)
		}
	}
	return out
}
