package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/siem-tui/config"
	"github.com/deevus/siem-tui/dashboard"
	"github.com/deevus/siem-tui/events"
	"github.com/deevus/siem-tui/internal"
	"github.com/deevus/siem-tui/notify"
	"github.com/deevus/siem-tui/schedule"
	"github.com/deevus/siem-tui/views"
	"github.com/deevus/siem-tui/widgets"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// Tab indexes.
const (
	TabDashboard = iota
	TabEvents
)

// manualRefreshInterval throttles the refresh key.
const manualRefreshInterval = time.Second

// Params holds configuration for creating an App.
type Params struct {
	Services   *internal.Services
	ServerName string
	Console    config.ConsoleConfig
	Logger     *slog.Logger
	Clock      schedule.Clock
	// NewTicker builds the periodic refresh timer; defaults to schedule.NewTicker.
	NewTicker func(interval time.Duration, job func()) dashboard.Ticker
}

// App is the root vxfw widget for siem-tui.
type App struct {
	services   *internal.Services
	serverName string
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	tabBar     *widgets.TabBar
	dashboard  *views.DashboardView
	events     *views.EventsView
	controller *events.Controller
	poller     *dashboard.Poller
	notices    *notify.Channel
	refresh    *rate.Limiter
	postEvent  func(vaxis.Event)

	expired bool
	closed  bool
}

// New creates the root App widget connected to the given services.
func New(p Params) (*App, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := p.Clock
	if clock == nil {
		clock = schedule.RealClock()
	}
	newTicker := p.NewTicker
	if newTicker == nil {
		newTicker = func(d time.Duration, job func()) dashboard.Ticker {
			return schedule.NewTicker(d, job)
		}
	}
	interval := p.Console.RefreshInterval.Duration
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		services:   p.Services,
		serverName: p.ServerName,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		tabBar:     widgets.NewTabBar([]string{"Панель", "События"}),
		refresh:    rate.NewLimiter(rate.Every(manualRefreshInterval), 1),
	}

	dv, err := views.NewDashboardView(views.DashboardViewParams{
		Service:       p.Services.Dashboard,
		Logger:        logger,
		MaxConcurrent: p.Console.MaxConcurrentWidgets,
		PostEvent:     a.post,
		Context:       ctx,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	a.dashboard = dv

	a.controller = events.NewController(events.ControllerParams{
		Service:       p.Services.Events,
		Clock:         clock,
		Logger:        logger,
		PageSize:      p.Console.PageSize,
		DebounceDelay: p.Console.DebounceDelay.Duration,
		SearchTimeout: p.Console.SearchTimeout.Duration,
		Exporter: events.NewExporter(events.ExporterParams{
			Service: p.Services.Events,
			Dir:     p.Console.DownloadDir,
			Timeout: p.Console.ExportTimeout.Duration,
			Logger:  logger,
		}),
		OnChange: func() { a.post(views.EventsUpdated{}) },
	})
	a.events = views.NewEventsView(views.EventsViewParams{
		Controller: a.controller,
		Logger:     logger,
		PostEvent:  a.post,
		Context:    ctx,
		StaleTTL:   interval,
	})

	a.notices = notify.NewChannel(notify.ChannelParams{
		TTL:      p.Console.NotificationTTL.Duration,
		Clock:    clock,
		OnChange: func() { a.post(views.NoticesChanged{}) },
	})

	ticker := newTicker(interval, func() { a.poller.Tick() })
	a.poller = dashboard.NewPoller(ctx, dv.Dispatcher(), ticker, logger)

	p.Services.Session.SetOnExpired(func() { a.post(views.SessionExpired{}) })
	return a, nil
}

// SetPostEvent sets the function used to post events to the vaxis event loop.
// Must be called before LoadAll.
func (a *App) SetPostEvent(fn func(vaxis.Event)) {
	a.postEvent = fn
}

func (a *App) post(ev vaxis.Event) {
	if a.postEvent != nil {
		a.postEvent(ev)
	}
}

// ActiveTab returns the current tab index.
func (a *App) ActiveTab() int {
	return a.tabBar.Active()
}

// SetTab switches to the given tab index.
func (a *App) SetTab(i int) {
	a.tabBar.SetActive(i)
}

// ServerName returns the connected server profile name.
func (a *App) ServerName() string {
	return a.serverName
}

// Expired reports whether the login-required screen is showing.
func (a *App) Expired() bool {
	return a.expired
}

// Notices returns the notification channel.
func (a *App) Notices() *notify.Channel {
	return a.notices
}

// Dashboard returns the dashboard view.
func (a *App) Dashboard() *views.DashboardView {
	return a.dashboard
}

// Events returns the events view.
func (a *App) Events() *views.EventsView {
	return a.events
}

// Poller returns the dashboard poller.
func (a *App) Poller() *dashboard.Poller {
	return a.poller
}

// LoadAll starts dashboard polling and loads the first page of events.
func (a *App) LoadAll() {
	a.poller.Start()
	a.events.Load()
}

// Refresh reloads the active view unless the refresh key is being
// hammered. It reports whether a refresh was issued.
func (a *App) Refresh() bool {
	if !a.refresh.Allow() {
		a.logger.Debug("manual refresh throttled")
		return false
	}
	switch a.tabBar.Active() {
	case TabEvents:
		a.events.Load()
	default:
		a.poller.RefreshNow()
	}
	return true
}

// Reauthenticate clears the expiry latch and reloads everything.
func (a *App) Reauthenticate() {
	a.services.Session.Reset()
	a.expired = false
	a.poller.SetVisible(true)
	a.events.Load()
}

// Close stops polling, cancels pending work and clears notices.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.poller.Close()
	a.controller.Close()
	a.cancel()
	a.dashboard.Wait()
	a.events.Wait()
	a.notices.Clear()
}

func (a *App) activeView() vxfw.Widget {
	switch a.tabBar.Active() {
	case TabEvents:
		return a.events
	default:
		return a.dashboard
	}
}

// Draw renders the tab bar, the active view, a status line and notices.
// While the session is expired only the login-required screen is shown.
func (a *App) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	if a.expired {
		return a.drawLoginRequired(ctx)
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, a)

	// Tab bar (1 row)
	tabCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1})
	tabSurf, err := a.tabBar.Draw(tabCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, tabSurf)

	if ctx.Max.Height < 3 {
		return s, nil
	}

	// Active view (remaining space minus the status line)
	viewCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - 2})
	viewSurf, err := a.activeView().Draw(viewCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 1, viewSurf)

	status := vxfw.NewSurface(ctx.Max.Width, 1, a)
	writeLine(&status, 0, a.statusLine(), vaxis.Style{Attribute: vaxis.AttrDim})
	s.AddChild(0, int(ctx.Max.Height)-1, status)

	if active := a.notices.Active(); len(active) > 0 {
		width := min(int(ctx.Max.Width), 60)
		items := make([]widgets.Toast, 0, len(active))
		for _, n := range active {
			items = append(items, widgets.Toast{Message: n.Message, Color: noticeColor(n.Level)})
		}
		toasts := &widgets.Toasts{Items: items, Width: width}
		surf, err := toasts.Draw(ctx.WithMax(vxfw.Size{Width: uint16(width), Height: ctx.Max.Height / 3}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(int(ctx.Max.Width)-width, 1, surf)
	}
	return s, nil
}

func (a *App) statusLine() string {
	help := "1/2 вкладки · r обновить · q выход"
	switch a.tabBar.Active() {
	case TabDashboard:
		help = "↑↓ выбор · Enter повторить · " + help
	case TabEvents:
		help = "/ поиск · f фильтры · n/p страницы · +/- размер · Enter детали · e/x экспорт · " + help
	}
	return fmt.Sprintf(" %s · %s", a.serverName, help)
}

func (a *App) drawLoginRequired(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, a)
	lines := []struct {
		text  string
		style vaxis.Style
	}{
		{"Требуется аутентификация", vaxis.Style{Foreground: vaxis.IndexColor(1), Attribute: vaxis.AttrBold}},
		{fmt.Sprintf("Сессия на сервере %s истекла.", a.serverName), vaxis.Style{}},
		{"", vaxis.Style{}},
		{"[Enter] войти снова   [q] выход", vaxis.Style{Foreground: vaxis.IndexColor(4)}},
	}
	top := max(int(ctx.Max.Height)/2-len(lines)/2, 0)
	for i, l := range lines {
		row := top + i
		if row >= int(ctx.Max.Height) {
			break
		}
		line := vxfw.NewSurface(ctx.Max.Width, 1, a)
		col := max((int(ctx.Max.Width)-len([]rune(l.text)))/2, 0)
		writeLine(&line, col, l.text, l.style)
		s.AddChild(0, row, line)
	}
	return s, nil
}

func writeLine(s *vxfw.Surface, col int, text string, style vaxis.Style) {
	for _, ch := range vaxis.Characters(text) {
		if col+ch.Width > int(s.Size.Width) {
			return
		}
		s.WriteCell(uint16(col), 0, vaxis.Cell{Character: ch, Style: style})
		col += ch.Width
	}
}

func noticeColor(l notify.Level) vaxis.Color {
	switch l {
	case notify.Success:
		return vaxis.IndexColor(2)
	case notify.Warning:
		return vaxis.IndexColor(3)
	case notify.Error:
		return vaxis.IndexColor(1)
	default:
		return vaxis.IndexColor(4)
	}
}

type keyCapturer interface {
	CapturesKeys() bool
}

// CaptureEvent handles global keybindings before views process them.
func (a *App) CaptureEvent(ev vaxis.Event) (vxfw.Command, error) {
	key, ok := ev.(vaxis.Key)
	if !ok {
		return nil, nil
	}
	if key.Matches('c', vaxis.ModCtrl) {
		return vxfw.QuitCmd{}, nil
	}

	if a.expired {
		switch {
		case key.Matches('q'):
			return vxfw.QuitCmd{}, nil
		case key.Matches(vaxis.KeyEnter):
			a.Reauthenticate()
		}
		return vxfw.ConsumeAndRedraw(), nil
	}

	if c, ok := a.activeView().(keyCapturer); ok && c.CapturesKeys() {
		return nil, nil
	}

	prev := a.tabBar.Active()
	switch {
	case key.Matches('q'):
		return vxfw.QuitCmd{}, nil
	case key.Matches('r'):
		a.Refresh()
		return vxfw.ConsumeAndRedraw(), nil
	case key.Matches(vaxis.KeyEsc):
		if !a.notices.DismissLatest() {
			return nil, nil
		}
		return vxfw.ConsumeAndRedraw(), nil
	case key.Matches('1'):
		a.tabBar.SetActive(TabDashboard)
	case key.Matches('2'):
		a.tabBar.SetActive(TabEvents)
	case key.Matches(vaxis.KeyTab):
		a.tabBar.Next()
	case key.Matches(vaxis.KeyTab, vaxis.ModShift):
		a.tabBar.Prev()
	default:
		return nil, nil
	}
	if a.tabBar.Active() != prev {
		a.refetchIfStale()
	}
	return vxfw.ConsumeAndRedraw(), nil
}

// refetchIfStale reloads the events table if it has become stale.
func (a *App) refetchIfStale() {
	if a.tabBar.Active() == TabEvents && a.events.Stale() {
		a.events.Load()
	}
}

// HandleEvent reacts to focus changes and background updates, and
// delegates everything else to the active view.
func (a *App) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	switch ev := ev.(type) {
	case vaxis.FocusIn:
		if !a.expired {
			a.poller.SetVisible(true)
		}
		return nil, nil
	case vaxis.FocusOut:
		a.poller.SetVisible(false)
		return nil, nil
	case views.WidgetUpdated:
		badge := ""
		if n := len(a.dashboard.Dispatcher().Failed()); n > 0 {
			badge = fmt.Sprintf("!%d", n)
		}
		a.tabBar.SetBadge(TabDashboard, badge)
		return vxfw.RedrawCmd{}, nil
	case views.EventsUpdated, views.NoticesChanged:
		return vxfw.RedrawCmd{}, nil
	case views.SessionExpired:
		if !a.expired {
			a.logger.Info("session expired, login required", "server", a.serverName)
			a.expired = true
			a.poller.SetVisible(false)
		}
		return vxfw.RedrawCmd{}, nil
	case views.ExportFinished:
		if ev.Err != nil {
			a.notices.Post(notify.Error, events.ExportMessage(ev.Err))
		} else {
			a.notices.Post(notify.Success, fmt.Sprintf("Экспорт сохранён: %s (%s)",
				ev.Result.Path, humanize.Bytes(uint64(ev.Result.Bytes))))
		}
		return vxfw.RedrawCmd{}, nil
	default:
		type handler interface {
			HandleEvent(vaxis.Event, vxfw.EventPhase) (vxfw.Command, error)
		}
		if h, ok := a.activeView().(handler); ok {
			return h.HandleEvent(ev, phase)
		}
	}
	return nil, nil
}
