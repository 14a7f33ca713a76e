package views

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/siem-tui/api"
	"github.com/deevus/siem-tui/dashboard"
	"github.com/deevus/siem-tui/widgets"
)

// Dashboard widget names, in display order.
const (
	WidgetActiveAgents     = "active-agents"
	WidgetRecentLogins     = "recent-logins"
	WidgetHostList         = "host-list"
	WidgetEventsByType     = "events-by-type"
	WidgetEventsBySeverity = "events-by-severity"
	WidgetTopUsers         = "top-users"
	WidgetTopProcesses     = "top-processes"
	WidgetEventTimeline    = "event-timeline"
)

// maxRecentLogins caps the recent-logins list.
const maxRecentLogins = 10

// typePalette colours the events-by-type bars in turn.
var typePalette = []vaxis.Color{
	vaxis.IndexColor(4),
	vaxis.IndexColor(2),
	vaxis.IndexColor(3),
	vaxis.IndexColor(1),
	vaxis.IndexColor(5),
	vaxis.IndexColor(6),
}

// DashboardViewParams holds configuration for creating a DashboardView.
type DashboardViewParams struct {
	Service       api.DashboardAPI
	Logger        *slog.Logger
	MaxConcurrent int
	PostEvent     func(vaxis.Event)
	// Context scopes per-widget retries.
	Context context.Context
}

// DashboardView shows the security dashboard: one panel per registered
// widget, refreshed by a Dispatcher.
type DashboardView struct {
	dispatcher *dashboard.Dispatcher
	logger     *slog.Logger
	ctx        context.Context
	postEvent  func(vaxis.Event)
	retries    sync.WaitGroup

	// Rendered payloads (protected by mu)
	mu         sync.Mutex
	rendered   map[string]bool
	agents     []api.Agent
	logins     []api.Login
	hosts      []api.HostCount
	types      []api.TypeCount
	severities map[string]int64
	users      []api.UserCount
	processes  []api.ProcessCount
	timeline   *widgets.Sparkline

	// UI
	panels   []panel
	selected int
}

// panel binds a registered widget to its title and content renderer.
type panel struct {
	desc  dashboard.Descriptor
	title string
	// draw renders the last payload. Caller holds mu.
	draw func(vxfw.DrawContext) (vxfw.Surface, error)
}

// NewDashboardView creates a DashboardView and the Dispatcher that feeds it.
func NewDashboardView(p DashboardViewParams) (*DashboardView, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}
	dv := &DashboardView{
		logger:     logger,
		ctx:        ctx,
		postEvent:  p.PostEvent,
		rendered:   make(map[string]bool),
		severities: make(map[string]int64, len(severityOrder)),
		timeline:   widgets.NewSparkline(24),
	}

	dv.panels = dv.newPanels()
	descs := make([]dashboard.Descriptor, len(dv.panels))
	for i, pn := range dv.panels {
		descs[i] = pn.desc
	}
	reg, err := dashboard.NewRegistry(descs...)
	if err != nil {
		return nil, fmt.Errorf("building widget registry: %w", err)
	}
	dv.dispatcher = dashboard.NewDispatcher(dashboard.DispatcherParams{
		Registry:      reg,
		Service:       p.Service,
		Logger:        logger,
		MaxConcurrent: p.MaxConcurrent,
		OnChange: func(name string) {
			if dv.postEvent != nil {
				dv.postEvent(WidgetUpdated{Name: name})
			}
		},
	})
	return dv, nil
}

// newPanels lists the dashboard in display order.
func (dv *DashboardView) newPanels() []panel {
	return []panel{
		{
			desc:  dashboard.Descriptor{Name: WidgetActiveAgents, Endpoint: "dashboard/active-agents", Render: dashboard.Bind(dv.renderAgents)},
			title: "Активные агенты",
			draw:  dv.drawAgents,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetRecentLogins, Endpoint: "dashboard/recent-logins", Render: dashboard.Bind(dv.renderLogins)},
			title: "Последние входы",
			draw:  dv.drawLogins,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetHostList, Endpoint: "dashboard/hosts", Render: dashboard.Bind(dv.renderHosts)},
			title: "Хосты",
			draw:  dv.drawHosts,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetEventsByType, Endpoint: "dashboard/events-by-type", Chart: true, Render: dashboard.Bind(dv.renderTypes)},
			title: "События по типам",
			draw:  dv.drawTypes,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetEventsBySeverity, Endpoint: "dashboard/events-by-severity", Chart: true, Render: dashboard.Bind(dv.renderSeverities)},
			title: "События по критичности",
			draw:  dv.drawSeverities,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetTopUsers, Endpoint: "dashboard/top-users", Render: dashboard.Bind(dv.renderUsers)},
			title: "Топ пользователей",
			draw:  dv.drawUsers,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetTopProcesses, Endpoint: "dashboard/top-processes", Render: dashboard.Bind(dv.renderProcesses)},
			title: "Топ процессов",
			draw:  dv.drawProcesses,
		},
		{
			desc:  dashboard.Descriptor{Name: WidgetEventTimeline, Endpoint: "dashboard/timeline", Chart: true, Render: dashboard.Bind(dv.renderTimeline)},
			title: "События за сутки",
			draw:  dv.drawTimeline,
		},
	}
}

// Dispatcher returns the dispatcher driving this view.
func (dv *DashboardView) Dispatcher() *dashboard.Dispatcher {
	return dv.dispatcher
}

func (dv *DashboardView) renderAgents(v api.ActiveAgents) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	dv.agents = v.Agents
	dv.rendered[WidgetActiveAgents] = true
}

func (dv *DashboardView) renderLogins(v api.RecentLogins) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	logins := v.Logins
	if len(logins) > maxRecentLogins {
		logins = logins[:maxRecentLogins]
	}
	dv.logins = logins
	dv.rendered[WidgetRecentLogins] = true
}

func (dv *DashboardView) renderHosts(v api.Hosts) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	dv.hosts = v.Hosts
	dv.rendered[WidgetHostList] = true
}

func (dv *DashboardView) renderTypes(v api.EventsByType) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	dv.types = v.EventTypes
	dv.rendered[WidgetEventsByType] = true
}

// renderSeverities keeps the four fixed buckets; unknown severities are ignored.
func (dv *DashboardView) renderSeverities(v api.EventsBySeverity) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	counts := make(map[string]int64, len(severityOrder))
	for _, s := range v.Severities {
		k := strings.ToLower(s.Severity)
		if _, ok := severityLabels[k]; ok {
			counts[k] = s.Count
		}
	}
	dv.severities = counts
	dv.rendered[WidgetEventsBySeverity] = true
}

func (dv *DashboardView) renderUsers(v api.TopUsers) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	dv.users = v.Users
	dv.rendered[WidgetTopUsers] = true
}

func (dv *DashboardView) renderProcesses(v api.TopProcesses) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	dv.processes = v.Processes
	dv.rendered[WidgetTopProcesses] = true
}

// renderTimeline fills 24 hourly buckets; hours outside 0..23 are ignored.
func (dv *DashboardView) renderTimeline(v api.Timeline) {
	hourly := make([]float64, 24)
	for _, h := range v.Timeline {
		if h.Hour >= 0 && h.Hour < 24 {
			hourly[h.Hour] = float64(h.EventCount)
		}
	}
	dv.mu.Lock()
	defer dv.mu.Unlock()
	dv.timeline.SetValues(hourly)
	dv.rendered[WidgetEventTimeline] = true
}

// Timeline returns the hourly buckets currently charted.
func (dv *DashboardView) Timeline() []float64 {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	return dv.timeline.Values()
}

// Selected returns the name of the highlighted panel.
func (dv *DashboardView) Selected() string {
	names := dv.dispatcher.Registry().Names()
	return names[dv.selected]
}

// Retry re-fetches one widget in the background.
func (dv *DashboardView) Retry(name string) {
	dv.retries.Add(1)
	go func() {
		defer dv.retries.Done()
		if err := dv.dispatcher.Retry(dv.ctx, name); err != nil {
			dv.logger.Debug("widget retry failed", "widget", name, "error", err)
		}
	}()
}

// Wait blocks until background retries have finished.
func (dv *DashboardView) Wait() {
	dv.retries.Wait()
}

// HandleEvent moves the panel selection and retries failed widgets.
func (dv *DashboardView) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	key, ok := ev.(vaxis.Key)
	if !ok {
		return nil, nil
	}
	n := dv.dispatcher.Registry().Len()
	switch {
	case key.Matches(vaxis.KeyDown), key.Matches('j'):
		dv.selected = (dv.selected + 1) % n
		return vxfw.RedrawCmd{}, nil
	case key.Matches(vaxis.KeyUp), key.Matches('k'):
		dv.selected = (dv.selected - 1 + n) % n
		return vxfw.RedrawCmd{}, nil
	case key.Matches(vaxis.KeyEnter):
		name := dv.Selected()
		if dv.dispatcher.State(name).Status == dashboard.StatusError {
			dv.Retry(name)
		}
		return vxfw.RedrawCmd{}, nil
	}
	return nil, nil
}

// Draw renders the header line and a grid of widget panels.
func (dv *DashboardView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	// Dispatcher state is read before taking mu: renderers hold the
	// dispatcher lock while they take ours.
	states := dv.dispatcher.States()
	last := dv.dispatcher.LastCycle()
	failed := dv.dispatcher.Failed()

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, dv)

	header := []vaxis.Segment{{Text: " "}}
	if !last.IsZero() {
		header = append(header, vaxis.Segment{
			Text:  "Последнее обновление: " + last.In(displayLocation).Format("15:04:05"),
			Style: dimStyle,
		})
	}
	if len(failed) > 0 {
		header = append(header, vaxis.Segment{
			Text:  fmt.Sprintf("  ● ошибок: %d", len(failed)),
			Style: errStyle,
		})
	}
	headerSurf, err := drawSegments(ctx, header...)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, headerSurf)

	if ctx.Max.Height < 2 {
		return s, nil
	}

	cols := 1
	if ctx.Max.Width >= 80 {
		cols = 2
	}
	rows := (len(dv.panels) + cols - 1) / cols
	avail := int(ctx.Max.Height) - 1
	panelH := max(avail/rows, 3)
	panelW := int(ctx.Max.Width) / cols

	dv.mu.Lock()
	defer dv.mu.Unlock()
	for i, pn := range dv.panels {
		r, c := i/cols, i%cols
		top := 1 + r*panelH
		if top >= int(ctx.Max.Height) {
			break
		}
		h := min(panelH, int(ctx.Max.Height)-top)
		pctx := ctx.WithMax(vxfw.Size{Width: uint16(panelW), Height: uint16(h)})
		surf, err := dv.drawPanel(pctx, pn, states[pn.desc.Name], i == dv.selected)
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(c*panelW, top, surf)
	}
	return s, nil
}

// panelWidget is the owner of a panel surface.
type panelWidget struct{}

func (panelWidget) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	return vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, panelWidget{}), nil
}

// drawPanel renders one widget: a title row, then loading, error or content.
// Caller holds mu.
func (dv *DashboardView) drawPanel(ctx vxfw.DrawContext, pn panel, st dashboard.State, selected bool) (vxfw.Surface, error) {
	desc := pn.desc
	w, h := ctx.Max.Width, ctx.Max.Height
	s := vxfw.NewSurface(w, h, panelWidget{})
	if w < 4 || h < 1 {
		return s, nil
	}
	inner := int(w) - 2

	titleStyle := boldStyle
	if selected {
		titleStyle.Attribute |= vaxis.AttrReverse
	}
	writeCell(&s, 0, 0, inner, " "+pn.title+" ", titleStyle, false)
	if st.Status == dashboard.StatusError {
		tw := len([]rune(pn.title)) + 2
		writeCell(&s, uint16(min(tw+1, inner)), 0, 2, "●", errStyle, false)
	}
	if h < 2 {
		return s, nil
	}

	body := ctx.WithMax(vxfw.Size{Width: uint16(inner), Height: h - 1})
	var content vxfw.Surface
	var err error
	switch {
	case st.Status == dashboard.StatusError:
		content = dv.drawError(body, st.Message)
	case st.Loading && !desc.Chart:
		content, err = drawLoadingState(body, panelWidget{})
	case !dv.rendered[desc.Name] && !desc.Chart:
		content = drawNote(body, "Нет данных")
	default:
		content, err = pn.draw(body)
	}
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(1, 1, content)
	return s, nil
}

func (dv *DashboardView) drawError(ctx vxfw.DrawContext, message string) vxfw.Surface {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, panelWidget{})
	lines := []struct {
		text  string
		style vaxis.Style
	}{
		{"Ошибка загрузки данных", errStyle},
		{message, dimStyle},
		{"[Enter] Повторить", linkStyle},
	}
	for i, l := range lines {
		if i >= int(ctx.Max.Height) {
			break
		}
		writeCell(&s, 0, uint16(i), int(ctx.Max.Width), l.text, l.style, false)
	}
	return s
}

func drawNote(ctx vxfw.DrawContext, text string) vxfw.Surface {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, panelWidget{})
	writeCell(&s, 0, 0, int(ctx.Max.Width), text, dimStyle, false)
	return s
}

func (dv *DashboardView) drawAgents(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	rows := make([][]string, len(dv.agents))
	for i, a := range dv.agents {
		rows[i] = []string{a.AgentID, FormatClock(a.LastActivity)}
	}
	return listTable(rows, int(ctx.Max.Width), "Нет активных агентов", nil).Draw(ctx)
}

// drawLogins marks each login with a coloured success or failure glyph.
func (dv *DashboardView) drawLogins(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	rows := make([][]string, len(dv.logins))
	for i, l := range dv.logins {
		mark := "✓ "
		if !l.Success {
			mark = "✗ "
		}
		rows[i] = []string{mark + l.User, FormatClock(l.Timestamp)}
	}
	logins := dv.logins
	style := func(row, col int) (vaxis.Style, bool) {
		if col != 0 || row >= len(logins) {
			return vaxis.Style{}, false
		}
		if logins[row].Success {
			return okStyle, true
		}
		return errStyle, true
	}
	return listTable(rows, int(ctx.Max.Width), "Нет последних входов", style).Draw(ctx)
}

func (dv *DashboardView) drawHosts(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	rows := make([][]string, len(dv.hosts))
	for i, h := range dv.hosts {
		rows[i] = []string{h.Hostname, FormatCount(h.EventCount) + " событий"}
	}
	return listTable(rows, int(ctx.Max.Width), "Хосты не найдены", nil).Draw(ctx)
}

func (dv *DashboardView) drawUsers(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	rows := make([][]string, len(dv.users))
	for i, u := range dv.users {
		rows[i] = []string{fmt.Sprintf("#%d %s", i+1, u.User), FormatCount(u.EventCount)}
	}
	return listTable(rows, int(ctx.Max.Width), "Нет активности пользователей", nil).Draw(ctx)
}

func (dv *DashboardView) drawProcesses(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	rows := make([][]string, len(dv.processes))
	for i, p := range dv.processes {
		rows[i] = []string{fmt.Sprintf("#%d %s", i+1, p.Process), FormatCount(p.EventCount)}
	}
	return listTable(rows, int(ctx.Max.Width), "Нет данных о процессах", nil).Draw(ctx)
}

// drawTypes scales every bar against the most frequent type.
func (dv *DashboardView) drawTypes(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	var peak int64
	for _, t := range dv.types {
		peak = max(peak, t.Count)
	}
	gauges := make([]*widgets.BarGauge, 0, len(dv.types))
	for i, t := range dv.types {
		gauges = append(gauges, &widgets.BarGauge{
			Label:  t.EventType,
			Value:  float64(t.Count),
			Max:    float64(peak),
			Suffix: FormatCount(t.Count),
			Color:  typePalette[i%len(typePalette)],
		})
	}
	if len(gauges) == 0 {
		return drawNote(ctx, "Нет данных"), nil
	}
	return drawGauges(ctx, gauges)
}

// drawSeverities always shows the four buckets, including empty ones.
func (dv *DashboardView) drawSeverities(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	var peak int64
	for _, k := range severityOrder {
		peak = max(peak, dv.severities[k])
	}
	gauges := make([]*widgets.BarGauge, 0, len(severityOrder))
	for _, k := range severityOrder {
		gauges = append(gauges, &widgets.BarGauge{
			Label:      severityLabels[k],
			LabelWidth: 12,
			Value:      float64(dv.severities[k]),
			Max:        float64(peak),
			Suffix:     FormatCount(dv.severities[k]),
			Color:      severityColors[k],
		})
	}
	return drawGauges(ctx, gauges)
}

// listTable lays out a name column that fills the width and a right-aligned
// value column.
func listTable(rows [][]string, width int, empty string, style func(row, col int) (vaxis.Style, bool)) *widgets.Table {
	const valueWidth = 14
	return &widgets.Table{
		Columns: []widgets.TableColumn{
			{Width: max(width-valueWidth-1, 8)},
			{Width: valueWidth, AlignRight: true, Style: dimStyle},
		},
		Rows:      rows,
		CellStyle: style,
		Empty:     empty,
	}
}

func drawGauges(ctx vxfw.DrawContext, gauges []*widgets.BarGauge) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, panelWidget{})
	barWidth := max(int(ctx.Max.Width)-13-12, 4)
	for i, g := range gauges {
		if i >= int(ctx.Max.Height) {
			break
		}
		g.BarWidth = barWidth
		surf, err := g.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, i, surf)
	}
	return s, nil
}

// drawTimeline renders the hourly column chart with an hour axis below.
// Caller holds mu.
func (dv *DashboardView) drawTimeline(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, panelWidget{})
	colWidth := max(int(ctx.Max.Width)/24, 1)
	chartH := max(int(ctx.Max.Height)-1, 1)

	dv.timeline.Height = chartH
	dv.timeline.ColumnWidth = colWidth
	dv.timeline.Style = linkStyle
	chart, err := dv.timeline.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: uint16(chartH)}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, chart)

	if int(ctx.Max.Height) > chartH {
		for _, hour := range []int{0, 6, 12, 18} {
			col := hour * colWidth
			if col >= int(ctx.Max.Width) {
				break
			}
			writeCell(&s, uint16(col), uint16(chartH), 5, fmt.Sprintf("%d:00", hour), dimStyle, false)
		}
	}
	return s, nil
}
