package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deevus/siem-tui/api"
	"github.com/deevus/siem-tui/schedule"
)

const (
	DefaultSearchTimeout = 10 * time.Second
	DefaultDebounceDelay = 500 * time.Millisecond
)

// Outcome is how a query settled.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeRendered
	OutcomeAuthRequired
	OutcomeBackendUnavailable
	OutcomeTimedOut
	OutcomeNetworkError
	OutcomeError
	OutcomeCanceled
	// OutcomeDropped means the query was not issued because another was in flight.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeAuthRequired:
		return "auth_required"
	case OutcomeBackendUnavailable:
		return "backend_unavailable"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeError:
		return "error"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeDropped:
		return "dropped"
	default:
		return "none"
	}
}

// Retryable reports whether a retry control makes sense for o.
func (o Outcome) Retryable() bool {
	switch o {
	case OutcomeBackendUnavailable, OutcomeTimedOut, OutcomeNetworkError, OutcomeError:
		return true
	}
	return false
}

// RecordSet is the last successfully fetched page.
type RecordSet struct {
	Events     []api.Event
	Total      int
	TotalPages int
	Page       int
	PageSize   int
}

// Status is a snapshot of the controller for rendering.
type Status struct {
	Loading bool
	Outcome Outcome
	// Title and Detail describe a failed outcome.
	Title  string
	Detail string
	Filter Filter
	Loaded bool
}

// ControllerParams holds configuration for creating a Controller.
type ControllerParams struct {
	Service       api.EventsAPI
	Clock         schedule.Clock
	Logger        *slog.Logger
	PageSize      int
	DebounceDelay time.Duration
	SearchTimeout time.Duration
	Exporter      *Exporter
	// OnChange runs after every state transition, outside the lock.
	OnChange func()
}

// Controller owns the event table's filter, record set and query lifecycle.
// At most one query is in flight; a query requested meanwhile is dropped.
type Controller struct {
	svc      api.EventsAPI
	logger   *slog.Logger
	timeout  time.Duration
	exporter *Exporter
	debounce *schedule.Debouncer

	mu        sync.Mutex
	filter    Filter
	pending   Filter
	pendingCt context.Context
	loading   bool
	records   RecordSet
	loaded    bool
	outcome   Outcome
	title     string
	detail    string
	onChange  func()
}

// NewController creates an idle Controller on page 1.
func NewController(p ControllerParams) *Controller {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := p.Clock
	if clock == nil {
		clock = schedule.RealClock()
	}
	timeout := p.SearchTimeout
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	delay := p.DebounceDelay
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	c := &Controller{
		svc:      p.Service,
		logger:   logger,
		timeout:  timeout,
		exporter: p.Exporter,
		filter:   Filter{Page: 1, PageSize: ClampPageSize(p.PageSize)},
		onChange: p.OnChange,
	}
	c.debounce = schedule.NewDebouncer(delay, clock, c.fireDebounced)
	return c
}

// SetOnChange replaces the change hook.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Filter returns the last issued filter.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Records returns the last successfully fetched page.
func (c *Controller) Records() RecordSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}

// Status returns a rendering snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Loading: c.loading,
		Outcome: c.outcome,
		Title:   c.title,
		Detail:  c.detail,
		Filter:  c.filter,
		Loaded:  c.loaded,
	}
}

// Summary returns the results line for the last rendered page.
func (c *Controller) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary(c.records.Page, c.records.PageSize, c.records.Total)
}

// Pagination returns the pagination control for the last rendered page.
func (c *Controller) Pagination() (Pagination, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Paginate(c.records.Page, c.records.TotalPages)
}

// Lookup finds an event in the last fetched page by id. No request is made.
func (c *Controller) Lookup(id int64) (api.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.records.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return api.Event{}, false
}

// Submit searches with criteria from f on page 1, keeping the page size.
func (c *Controller) Submit(ctx context.Context, f Filter) Outcome {
	c.debounce.Cancel()
	return c.Load(ctx, c.withPaging(f, 1))
}

// Input records free-text search input. The query runs once input has been
// idle for the debounce delay, using the latest value.
func (c *Controller) Input(ctx context.Context, f Filter) {
	c.mu.Lock()
	c.pending = f
	c.pendingCt = ctx
	c.mu.Unlock()
	c.debounce.Trigger()
}

// DebouncePending reports whether typed input is waiting to be searched.
func (c *Controller) DebouncePending() bool {
	return c.debounce.State() == schedule.DebouncePending
}

func (c *Controller) fireDebounced() {
	c.mu.Lock()
	f, ctx := c.pending, c.pendingCt
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	c.Load(ctx, c.withPaging(f, 1))
}

// ClearFilters drops every criterion and reloads page 1.
func (c *Controller) ClearFilters(ctx context.Context) Outcome {
	c.debounce.Cancel()
	return c.Load(ctx, c.withPaging(Filter{}, 1))
}

// SetPageSize changes the page size and reloads page 1.
func (c *Controller) SetPageSize(ctx context.Context, size int) Outcome {
	f := c.Filter()
	f.PageSize = ClampPageSize(size)
	f.Page = 1
	return c.Load(ctx, f)
}

// GoToPage loads page of the current filter. Out-of-range pages are clamped
// to the last known page count.
func (c *Controller) GoToPage(ctx context.Context, page int) Outcome {
	c.mu.Lock()
	f := c.filter
	if tp := c.records.TotalPages; tp > 0 && page > tp {
		page = tp
	}
	c.mu.Unlock()
	f.Page = max(1, page)
	return c.Load(ctx, f)
}

// Reload re-issues the last filter unchanged.
func (c *Controller) Reload(ctx context.Context) Outcome {
	return c.Load(ctx, c.Filter())
}

func (c *Controller) withPaging(f Filter, page int) Filter {
	c.mu.Lock()
	size := c.filter.PageSize
	c.mu.Unlock()
	f.Page = page
	f.PageSize = size
	return f
}

// Load issues f. If a query is already in flight it returns OutcomeDropped
// without doing anything.
func (c *Controller) Load(ctx context.Context, f Filter) Outcome {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		c.logger.Debug("events query already in flight, dropping", "page", f.Page)
		return OutcomeDropped
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	f.PageSize = ClampPageSize(f.PageSize)
	c.loading = true
	c.filter = f
	c.mu.Unlock()
	c.changed()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	res, err := c.svc.Search(reqCtx, f.Values())
	timedOut := errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	c.mu.Lock()
	outcome := c.settleLocked(f, res, err, timedOut)
	c.loading = false
	c.mu.Unlock()
	c.changed()
	return outcome
}

func (c *Controller) settleLocked(f Filter, res *api.SearchResult, err error, timedOut bool) Outcome {
	if err == nil {
		total := res.Total
		totalPages := res.TotalPages
		if totalPages <= 0 {
			totalPages = 1
		}
		events := res.Events
		if events == nil {
			events = []api.Event{}
		}
		c.records = RecordSet{
			Events:     events,
			Total:      total,
			TotalPages: totalPages,
			Page:       f.Page,
			PageSize:   f.PageSize,
		}
		c.loaded = true
		c.setOutcomeLocked(OutcomeRendered, "", "")
		return OutcomeRendered
	}

	kind := api.KindOf(err)
	if timedOut && kind != api.KindAuthRequired {
		kind = api.KindTimeout
	}

	switch kind {
	case api.KindCanceled:
		c.setOutcomeLocked(OutcomeCanceled, "", "")
		return OutcomeCanceled
	case api.KindAuthRequired:
		c.logger.Info("events query requires authentication")
		c.setOutcomeLocked(OutcomeAuthRequired, "Требуется аутентификация",
			"Ваша сессия могла истечь. Пожалуйста, войдите снова.")
		return OutcomeAuthRequired
	case api.KindBackendUnavailable:
		c.logger.Error("events backend unavailable", "error", err)
		c.setOutcomeLocked(OutcomeBackendUnavailable, "Ошибка подключения к базе данных",
			"Не удалось подключиться к серверу базы данных. Попробуйте позже.")
		return OutcomeBackendUnavailable
	case api.KindTimeout:
		c.logger.Error("events query timed out", "timeout", c.timeout)
		c.setOutcomeLocked(OutcomeTimedOut, "Превышено время ожидания",
			"Сервер слишком долго отвечает. Попробуйте снова.")
		return OutcomeTimedOut
	case api.KindNetwork:
		c.logger.Error("events query network failure", "error", err)
		c.setOutcomeLocked(OutcomeNetworkError, "Ошибка сети",
			"Не удалось подключиться к серверу. Проверьте соединение.")
		return OutcomeNetworkError
	default:
		c.logger.Error("events query failed", "error", err)
		c.setOutcomeLocked(OutcomeError, "Ошибка загрузки событий", err.Error())
		return OutcomeError
	}
}

func (c *Controller) setOutcomeLocked(o Outcome, title, detail string) {
	c.outcome = o
	c.title = title
	c.detail = detail
}

// Export saves events matching the last issued filter, without pagination.
func (c *Controller) Export(ctx context.Context, format string) (ExportResult, error) {
	if c.exporter == nil {
		return ExportResult{}, fmt.Errorf("export is not configured")
	}
	return c.exporter.Export(ctx, c.Filter(), format)
}

// Close cancels any pending debounced search.
func (c *Controller) Close() {
	c.debounce.Cancel()
}

func (c *Controller) changed() {
	c.mu.Lock()
	hook := c.onChange
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}
