package views

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/list"
	"github.com/deevus/siem-tui/api"
	"github.com/deevus/siem-tui/events"
	"github.com/deevus/siem-tui/widgets"
)

// Filter form fields, in tab order.
const (
	fieldQuery = iota
	fieldHostname
	fieldStartDate
	fieldEndDate
	fieldSeverity
	fieldEventType
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Поиск", "Хост", "С даты", "По дату", "Критичность", "Тип события",
}

// severityChoices are the values the severity field cycles through.
var severityChoices = []string{"", "low", "medium", "high", "critical"}

// EventsViewParams holds configuration for creating an EventsView.
type EventsViewParams struct {
	Controller *events.Controller
	Logger     *slog.Logger
	PostEvent  func(vaxis.Event)
	// Context scopes background queries and exports.
	Context  context.Context
	StaleTTL time.Duration
}

// EventsView is the searchable, paginated event table with a detail modal.
type EventsView struct {
	ctrl      *events.Controller
	logger    *slog.Logger
	postEvent func(vaxis.Event)
	ctx       context.Context
	staleTTL  time.Duration
	jobs      sync.WaitGroup

	mu       sync.Mutex
	loadedAt time.Time

	// UI state, owned by the event loop
	form    events.Filter
	editing bool
	field   int
	detail  *api.Event
	list    list.Dynamic
	rows    []api.Event
	rowsKey string
}

// NewEventsView creates an EventsView driving the given controller.
func NewEventsView(p EventsViewParams) *EventsView {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ev := &EventsView{
		ctrl:      p.Controller,
		logger:    logger,
		postEvent: p.PostEvent,
		ctx:       ctx,
		staleTTL:  p.StaleTTL,
	}
	ev.resetList()
	return ev
}

func (ev *EventsView) resetList() {
	ev.list = list.Dynamic{DrawCursor: true, Builder: ev.buildRow}
}

// run executes a controller operation in the background.
func (ev *EventsView) run(op func(ctx context.Context) events.Outcome) {
	ev.jobs.Add(1)
	go func() {
		defer ev.jobs.Done()
		if op(ev.ctx) == events.OutcomeRendered {
			ev.mu.Lock()
			ev.loadedAt = time.Now()
			ev.mu.Unlock()
		}
	}()
}

// Load reloads the current filter in the background.
func (ev *EventsView) Load() {
	ev.run(ev.ctrl.Reload)
}

// Wait blocks until background queries and exports have finished.
func (ev *EventsView) Wait() {
	ev.jobs.Wait()
}

// Stale reports whether the table is older than the configured TTL.
func (ev *EventsView) Stale() bool {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.loadedAt.IsZero() {
		return true
	}
	return time.Since(ev.loadedAt) > ev.staleTTL
}

// CapturesKeys reports whether the view wants every key, so global
// bindings must not intercept them.
func (ev *EventsView) CapturesKeys() bool {
	return ev.editing || ev.detail != nil
}

// Editing reports whether the filter form has focus.
func (ev *EventsView) Editing() bool {
	return ev.editing
}

// Form returns the filter being edited.
func (ev *EventsView) Form() events.Filter {
	return ev.form
}

// Detail returns the event shown in the detail modal, if open.
func (ev *EventsView) Detail() (api.Event, bool) {
	if ev.detail == nil {
		return api.Event{}, false
	}
	return *ev.detail, true
}

// OpenDetail shows the event with id from the current page. Nothing is
// fetched; an id not on the page is ignored.
func (ev *EventsView) OpenDetail(id int64) bool {
	e, ok := ev.ctrl.Lookup(id)
	if !ok {
		return false
	}
	ev.detail = &e
	return true
}

// CloseDetail hides the detail modal.
func (ev *EventsView) CloseDetail() {
	ev.detail = nil
}

// Export saves the current result set in the background and posts
// ExportFinished when done.
func (ev *EventsView) Export(format string) {
	ev.jobs.Add(1)
	go func() {
		defer ev.jobs.Done()
		res, err := ev.ctrl.Export(ev.ctx, format)
		if ev.postEvent != nil {
			ev.postEvent(ExportFinished{Format: format, Result: res, Err: err})
		}
	}()
}

func (ev *EventsView) formValue(i int) *string {
	switch i {
	case fieldQuery:
		return &ev.form.Query
	case fieldHostname:
		return &ev.form.Hostname
	case fieldStartDate:
		return &ev.form.StartDate
	case fieldEndDate:
		return &ev.form.EndDate
	case fieldSeverity:
		return &ev.form.Severity
	default:
		return &ev.form.EventType
	}
}

func (ev *EventsView) cycleSeverity(step int) {
	idx := 0
	for i, s := range severityChoices {
		if s == ev.form.Severity {
			idx = i
		}
	}
	n := len(severityChoices)
	ev.form.Severity = severityChoices[(idx+step+n)%n]
}

func (ev *EventsView) submit() {
	f := ev.form
	ev.run(func(ctx context.Context) events.Outcome { return ev.ctrl.Submit(ctx, f) })
}

func (ev *EventsView) cyclePageSize(step int) {
	size := ev.ctrl.Filter().PageSize
	idx := 0
	for i, s := range events.PageSizes {
		if s == size {
			idx = i
		}
	}
	idx = max(0, min(idx+step, len(events.PageSizes)-1))
	next := events.PageSizes[idx]
	if next == size {
		return
	}
	ev.run(func(ctx context.Context) events.Outcome { return ev.ctrl.SetPageSize(ctx, next) })
}

func (ev *EventsView) goToPage(page int) {
	ev.run(func(ctx context.Context) events.Outcome { return ev.ctrl.GoToPage(ctx, page) })
}

// handleFormKey edits the focused filter field.
func (ev *EventsView) handleFormKey(key vaxis.Key) (vxfw.Command, error) {
	switch {
	case key.Matches(vaxis.KeyEsc):
		ev.editing = false
	case key.Matches(vaxis.KeyEnter):
		ev.editing = false
		ev.submit()
	case key.Matches(vaxis.KeyTab), key.Matches(vaxis.KeyDown):
		ev.field = (ev.field + 1) % fieldCount
	case key.Matches(vaxis.KeyTab, vaxis.ModShift), key.Matches(vaxis.KeyUp):
		ev.field = (ev.field - 1 + fieldCount) % fieldCount
	case ev.field == fieldSeverity && (key.Matches(vaxis.KeyRight) || key.Matches(' ')):
		ev.cycleSeverity(1)
	case ev.field == fieldSeverity && key.Matches(vaxis.KeyLeft):
		ev.cycleSeverity(-1)
	case ev.field == fieldSeverity:
		// Fixed choices only.
	case key.Matches(vaxis.KeyBackspace):
		v := ev.formValue(ev.field)
		if r := []rune(*v); len(r) > 0 {
			*v = string(r[:len(r)-1])
			ev.typed()
		}
	case key.Matches('u', vaxis.ModCtrl):
		*ev.formValue(ev.field) = ""
		ev.typed()
	case key.Text != "" && key.Modifiers&(vaxis.ModCtrl|vaxis.ModAlt) == 0:
		v := ev.formValue(ev.field)
		*v += key.Text
		ev.typed()
	default:
		return nil, nil
	}
	return vxfw.ConsumeAndRedraw(), nil
}

// typed feeds free-text search input to the debounced query.
func (ev *EventsView) typed() {
	if ev.field == fieldQuery {
		ev.ctrl.Input(ev.ctx, ev.form)
	}
}

// HandleEvent routes keys to the modal, the filter form or the table.
func (ev *EventsView) HandleEvent(e vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	key, ok := e.(vaxis.Key)
	if !ok {
		return nil, nil
	}

	if ev.detail != nil {
		if key.Matches(vaxis.KeyEsc) || key.Matches(vaxis.KeyEnter) || key.Matches('q') {
			ev.CloseDetail()
		}
		return vxfw.ConsumeAndRedraw(), nil
	}
	if ev.editing {
		return ev.handleFormKey(key)
	}

	pg, _ := ev.ctrl.Pagination()
	switch {
	case key.Matches('/'):
		ev.editing = true
		ev.field = fieldQuery
	case key.Matches('f'):
		ev.editing = true
	case key.Matches(vaxis.KeyEnter):
		idx := int(ev.list.Cursor())
		if idx < len(ev.rows) {
			ev.OpenDetail(ev.rows[idx].ID)
		}
	case key.Matches('n'), key.Matches(vaxis.KeyRight), key.Matches(vaxis.KeyPgDown):
		if pg.Total > 1 && !pg.NextDisabled {
			ev.goToPage(pg.Current + 1)
		}
	case key.Matches('p'), key.Matches(vaxis.KeyLeft), key.Matches(vaxis.KeyPgUp):
		if pg.Total > 1 && !pg.PrevDisabled {
			ev.goToPage(pg.Current - 1)
		}
	case key.Matches('g'):
		if pg.Total > 1 && pg.Current != 1 {
			ev.goToPage(1)
		}
	case key.Matches('G'):
		if pg.Total > 1 && pg.Current != pg.Total {
			ev.goToPage(pg.Total)
		}
	case key.Matches('+'):
		ev.cyclePageSize(1)
	case key.Matches('-'):
		ev.cyclePageSize(-1)
	case key.Matches('c'):
		ev.form = events.Filter{}
		ev.run(ev.ctrl.ClearFilters)
	case key.Matches('R'):
		ev.Load()
	case key.Matches('e'):
		ev.Export("json")
	case key.Matches('x'):
		ev.Export("csv")
	default:
		return ev.list.HandleEvent(e, phase)
	}
	return vxfw.ConsumeAndRedraw(), nil
}

// Event table column widths; the raw text columns share what is left.
const (
	colTimeWidth     = 20
	colSeverityWidth = 9
	colGap           = 1
)

func eventColumns(width int) []widgets.TableColumn {
	fixed := colTimeWidth + colSeverityWidth + 6*colGap
	flex := max((width-fixed)/5, 6)
	return []widgets.TableColumn{
		{Width: colTimeWidth},
		{Width: flex},
		{Width: flex},
		{Width: flex},
		{Width: colSeverityWidth},
		{Width: flex},
		{Width: flex},
	}
}

var eventHeader = []string{"Время", "Хост", "Источник", "Тип", "Уровень", "Пользователь", "Процесс"}

func eventCells(e api.Event) []string {
	return []string{
		FormatTimestamp(e.Timestamp),
		orDash(e.Hostname),
		orDash(e.Source),
		orDash(e.EventType),
		orDash(e.Severity),
		orDash(e.User),
		orDash(e.Process),
	}
}

// eventRowWidget renders one event row with fixed-width columns.
type eventRowWidget struct {
	cells    []string
	severity string
}

func (w *eventRowWidget) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, w)
	col := 0
	for i, c := range eventColumns(int(ctx.Max.Width)) {
		if col >= int(ctx.Max.Width) {
			break
		}
		style := vaxis.Style{}
		if i == 0 {
			style = dimStyle
		}
		if i == 4 {
			style = severityStyle(w.severity)
		}
		writeCell(&s, uint16(col), 0, min(c.Width, int(ctx.Max.Width)-col), w.cells[i], style, false)
		col += c.Width + colGap
	}
	return s, nil
}

func (w *eventRowWidget) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	return nil, nil
}

func (ev *EventsView) buildRow(i uint, cursor uint) vxfw.Widget {
	if int(i) >= len(ev.rows) {
		return nil
	}
	e := ev.rows[i]
	return &eventRowWidget{cells: eventCells(e), severity: e.Severity}
}

// syncRows picks up a new record set, moving the cursor back to the top
// when the page changed.
func (ev *EventsView) syncRows(rs events.RecordSet) {
	key := fmt.Sprintf("%p:%d:%d", rs.Events, rs.Page, rs.Total)
	if key == ev.rowsKey {
		return
	}
	ev.rowsKey = key
	ev.rows = rs.Events
	ev.resetList()
}

// Draw renders the filter form, status line, table, summary and pager,
// with the detail modal on top when open.
func (ev *EventsView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	st := ev.ctrl.Status()
	rs := ev.ctrl.Records()
	ev.syncRows(rs)

	if !st.Loaded && st.Loading {
		return drawLoadingState(ctx, ev)
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, ev)
	width := int(ctx.Max.Width)
	row := 0

	form := ev.drawForm(width)
	s.AddChild(0, row, form)
	row += int(form.Size.Height)

	status := ev.drawStatus(width, st)
	s.AddChild(0, row, status)
	row += int(status.Size.Height)

	// Footer: summary + pager, bottom-aligned.
	footer, err := ev.drawFooter(ctx, st)
	if err != nil {
		return vxfw.Surface{}, err
	}
	footerTop := int(ctx.Max.Height) - int(footer.Size.Height)

	if row < footerTop {
		header := vxfw.NewSurface(ctx.Max.Width, 1, ev)
		col := 0
		for i, c := range eventColumns(width) {
			if col >= width {
				break
			}
			writeCell(&header, uint16(col), 0, min(c.Width, width-col), eventHeader[i], vaxis.Style{Attribute: vaxis.AttrDim | vaxis.AttrBold}, false)
			col += c.Width + colGap
		}
		s.AddChild(0, row, header)
		row++
	}

	if bodyH := footerTop - row; bodyH > 0 {
		if len(ev.rows) == 0 {
			if st.Loaded {
				note := "Событий пока нет."
				if st.Filter.HasCriteria() {
					note = "События не найдены по заданным критериям."
				}
				s.AddChild(0, row, drawNote(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}), note))
			}
		} else {
			listSurf, err := ev.list.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: uint16(bodyH)}))
			if err != nil {
				return vxfw.Surface{}, err
			}
			s.AddChild(0, row, listSurf)
		}
	}
	if footerTop >= row {
		s.AddChild(0, footerTop, footer)
	}

	if ev.detail != nil {
		if err := ev.drawDetail(ctx, &s); err != nil {
			return vxfw.Surface{}, err
		}
	}
	return s, nil
}

// drawForm renders the filter fields, three per line.
func (ev *EventsView) drawForm(width int) vxfw.Surface {
	const perRow = 3
	rows := (fieldCount + perRow - 1) / perRow
	s := vxfw.NewSurface(uint16(width), uint16(rows), ev)
	cell := width / perRow
	for i := 0; i < fieldCount; i++ {
		r, c := i/perRow, i%perRow
		col := c * cell
		focused := ev.editing && i == ev.field

		labelStyle := dimStyle
		if focused {
			labelStyle = boldStyle
		}
		label := fieldLabels[i] + ": "
		writeCell(&s, uint16(col), uint16(r), cell, label, labelStyle, false)

		value := *ev.formValue(i)
		if i == fieldSeverity {
			value = severityLabels[value]
			if value == "" {
				value = "Все"
			}
		}
		valueStyle := vaxis.Style{}
		if focused {
			valueStyle.UnderlineStyle = vaxis.UnderlineSingle
			if i != fieldSeverity {
				value += "▏"
			}
		}
		lw := len([]rune(label))
		writeCell(&s, uint16(col+lw), uint16(r), max(cell-lw-1, 0), value, valueStyle, false)
	}
	return s
}

// drawStatus renders the loading or error banner, or nothing.
func (ev *EventsView) drawStatus(width int, st events.Status) vxfw.Surface {
	switch {
	case st.Loading:
		s := vxfw.NewSurface(uint16(width), 1, ev)
		writeCell(&s, 0, 0, width, "Загрузка событий...", dimStyle, false)
		return s
	case st.Outcome == events.OutcomeNone || st.Outcome == events.OutcomeRendered ||
		st.Outcome == events.OutcomeCanceled || st.Outcome == events.OutcomeDropped:
		return vxfw.NewSurface(uint16(width), 0, ev)
	}

	s := vxfw.NewSurface(uint16(width), 2, ev)
	writeCell(&s, 0, 0, width, st.Title, vaxis.Style{Foreground: vaxis.IndexColor(1), Attribute: vaxis.AttrBold}, false)
	detail := st.Detail
	if st.Outcome.Retryable() {
		detail += "  [R] Повторить"
	}
	writeCell(&s, 0, 1, width, detail, errStyle, false)
	return s
}

func (ev *EventsView) drawFooter(ctx vxfw.DrawContext, st events.Status) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 0, ev)
	if !st.Loaded {
		return s, nil
	}
	summary := ev.ctrl.Summary()
	pg, show := ev.ctrl.Pagination()
	height := uint16(1)
	if show {
		height++
	}
	s = vxfw.NewSurface(ctx.Max.Width, height, ev)
	writeCell(&s, 0, 0, int(ctx.Max.Width), fmt.Sprintf("%s  ·  по %d на странице", summary, st.Filter.PageSize), dimStyle, false)

	if show {
		items := make([]widgets.PagerItem, 0, len(pg.Items))
		for _, it := range pg.Items {
			items = append(items, widgets.PagerItem{
				Label:   it.Label(),
				Current: it.Current,
				Gap:     it.Kind == events.ItemEllipsis,
			})
		}
		pager := &widgets.Pager{Items: items, PrevDisabled: pg.PrevDisabled, NextDisabled: pg.NextDisabled}
		surf, err := pager.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, 1, surf)
	}
	return s, nil
}

// detailFields lists the modal rows; the command is shown only when set.
func detailFields(e api.Event) []widgets.ModalField {
	fields := []widgets.ModalField{
		{Label: "ID", Value: fmt.Sprintf("%d", e.ID)},
		{Label: "Время", Value: FormatTimestamp(e.Timestamp)},
		{Label: "Хост", Value: orDash(e.Hostname)},
		{Label: "Источник", Value: orDash(e.Source)},
		{Label: "Тип события", Value: orDash(e.EventType)},
		{Label: "Критичность", Value: orDash(e.Severity), Style: severityStyle(e.Severity)},
		{Label: "Пользователь", Value: orDash(e.User)},
		{Label: "Процесс", Value: orDash(e.Process)},
	}
	if strings.TrimSpace(e.Command) != "" {
		fields = append(fields, widgets.ModalField{Label: "Команда", Value: e.Command, Block: true})
	}
	return append(fields, widgets.ModalField{Label: "Исходный лог", Value: orDash(e.RawLog), Block: true})
}

func (ev *EventsView) drawDetail(ctx vxfw.DrawContext, s *vxfw.Surface) error {
	w := min(max(int(ctx.Max.Width)*3/4, 40), int(ctx.Max.Width))
	h := min(max(int(ctx.Max.Height)*3/4, 12), int(ctx.Max.Height))
	modal := &widgets.Modal{
		Title:  fmt.Sprintf("Событие #%d", ev.detail.ID),
		Fields: detailFields(*ev.detail),
		Footer: "Esc закрыть",
	}
	surf, err := modal.Draw(ctx.WithMax(vxfw.Size{Width: uint16(w), Height: uint16(h)}))
	if err != nil {
		return err
	}
	s.AddChild((int(ctx.Max.Width)-w)/2, (int(ctx.Max.Height)-h)/2, surf)
	return nil
}
