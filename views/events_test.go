package views_test

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"github.com/deevus/siem-tui/api"
	"github.com/deevus/siem-tui/events"
	"github.com/deevus/siem-tui/schedule"
	"github.com/deevus/siem-tui/views"
)

func sampleEvents(n int) []api.Event {
	out := make([]api.Event, n)
	for i := range out {
		out[i] = api.Event{
			ID:        int64(100 + i),
			Timestamp: "2026-10-16T09:00:00Z",
			Hostname:  fmt.Sprintf("host-%02d", i),
			Source:    "auth.log",
			EventType: "ssh_login",
			Severity:  "high",
			User:      "root",
			Process:   "sshd",
			RawLog:    "Accepted publickey for root",
		}
	}
	return out
}

type eventsBackend struct {
	mu      sync.Mutex
	params  []url.Values
	result  *api.SearchResult
	err     error
	exports []url.Values
}

func (b *eventsBackend) service() *api.MockEventService {
	return &api.MockEventService{
		SearchFunc: func(ctx context.Context, params url.Values) (*api.SearchResult, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.params = append(b.params, params)
			if b.err != nil {
				return nil, b.err
			}
			res := *b.result
			return &res, nil
		},
		ExportFunc: func(ctx context.Context, params url.Values, w io.Writer) (int64, error) {
			b.mu.Lock()
			b.exports = append(b.exports, params)
			b.mu.Unlock()
			n, err := io.WriteString(w, "timestamp,hostname\n")
			return int64(n), err
		},
	}
}

func (b *eventsBackend) last() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.params) == 0 {
		return nil
	}
	return b.params[len(b.params)-1]
}

func (b *eventsBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.params)
}

type eventsFixture struct {
	backend *eventsBackend
	clock   *schedule.FakeClock
	ctrl    *events.Controller
	view    *views.EventsView
	dir     string

	mu     sync.Mutex
	posted []vaxis.Event
}

func newEventsFixture(t *testing.T, result *api.SearchResult) *eventsFixture {
	t.Helper()
	f := &eventsFixture{
		backend: &eventsBackend{result: result},
		clock:   schedule.NewFakeClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)),
		dir:     t.TempDir(),
	}
	svc := f.backend.service()
	f.ctrl = events.NewController(events.ControllerParams{
		Service: svc,
		Clock:   f.clock,
		Exporter: events.NewExporter(events.ExporterParams{
			Service: svc,
			Dir:     f.dir,
		}),
	})
	f.view = views.NewEventsView(views.EventsViewParams{
		Controller: f.ctrl,
		StaleTTL:   time.Minute,
		PostEvent: func(ev vaxis.Event) {
			f.mu.Lock()
			f.posted = append(f.posted, ev)
			f.mu.Unlock()
		},
	})
	return f
}

func (f *eventsFixture) press(t *testing.T, keys ...vaxis.Key) {
	t.Helper()
	for _, k := range keys {
		if _, err := f.view.HandleEvent(k, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	f.view.Wait()
}

func (f *eventsFixture) screen(t *testing.T) string {
	t.Helper()
	s, err := f.view.Draw(testDrawContext(140, 40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return screenText(s)
}

func typeText(s string) []vaxis.Key {
	keys := make([]vaxis.Key, 0, len(s))
	for _, r := range s {
		keys = append(keys, key(r))
	}
	return keys
}

func TestEventsView_LoadRendersTable(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(3), Total: 3, TotalPages: 1})
	if !f.view.Stale() {
		t.Error("expected stale before the first load")
	}
	f.view.Load()
	f.view.Wait()

	text := f.screen(t)
	for _, want := range []string{"Поиск:", "host-00", "host-02", "sshd", "Показано 1-3 из 3 событий"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q on screen:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Вперёд") {
		t.Error("expected no pager for a single page")
	}
	if f.view.Stale() {
		t.Error("expected fresh after a successful load")
	}
}

func TestEventsView_EmptyResult(t *testing.T) {
	tests := []struct {
		name  string
		query string
		note  string
	}{
		{"no criteria", "", "Событий пока нет."},
		{"with criteria", "sshd", "События не найдены по заданным критериям."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventsFixture(t, &api.SearchResult{Events: nil, Total: 0, TotalPages: 0})
			if tt.query == "" {
				f.view.Load()
				f.view.Wait()
			} else {
				f.press(t, key('/'))
				f.press(t, typeText(tt.query)...)
				f.press(t, vaxis.Key{Keycode: vaxis.KeyEnter})
			}

			text := f.screen(t)
			if !strings.Contains(text, tt.note) {
				t.Errorf("expected note %q:\n%s", tt.note, text)
			}
			if !strings.Contains(text, "События не найдены") {
				t.Errorf("expected empty summary:\n%s", text)
			}
		})
	}
}

func TestEventsView_DetailModal(t *testing.T) {
	evs := sampleEvents(2)
	evs[1].Command = "sudo rm -rf /tmp/x"
	f := newEventsFixture(t, &api.SearchResult{Events: evs, Total: 2, TotalPages: 1})
	f.view.Load()
	f.view.Wait()
	f.screen(t)

	f.press(t, vaxis.Key{Keycode: vaxis.KeyEnter})
	got, ok := f.view.Detail()
	if !ok || got.ID != 100 {
		t.Fatalf("expected detail for event 100, got %+v (open=%v)", got, ok)
	}
	if !f.view.CapturesKeys() {
		t.Error("expected modal to capture keys")
	}
	text := f.screen(t)
	if !strings.Contains(text, "Исходный лог") || !strings.Contains(text, "Accepted publickey") {
		t.Errorf("expected raw log in modal:\n%s", text)
	}
	if strings.Contains(text, "Команда") {
		t.Error("expected no command row when command is empty")
	}

	f.press(t, vaxis.Key{Keycode: vaxis.KeyEsc})
	if _, ok := f.view.Detail(); ok {
		t.Fatal("expected Esc to close the modal")
	}

	if !f.view.OpenDetail(101) {
		t.Fatal("expected event 101 on the page")
	}
	if text := f.screen(t); !strings.Contains(text, "Команда") {
		t.Errorf("expected command row:\n%s", text)
	}
	if f.view.OpenDetail(999) {
		t.Error("expected unknown id to be ignored")
	}
}

func TestEventsView_QueryInputIsDebounced(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(1), Total: 1, TotalPages: 1})

	f.press(t, key('/'))
	if !f.view.Editing() || !f.view.CapturesKeys() {
		t.Fatal("expected the filter form to take focus")
	}
	f.press(t, typeText("ssh")...)
	if got := f.view.Form().Query; got != "ssh" {
		t.Fatalf("expected query ssh, got %q", got)
	}
	if f.backend.calls() != 0 {
		t.Fatalf("expected no search before the debounce delay, got %d", f.backend.calls())
	}
	if !f.ctrl.DebouncePending() {
		t.Fatal("expected a pending debounced search")
	}

	f.clock.Advance(events.DefaultDebounceDelay)
	if f.backend.calls() != 1 {
		t.Fatalf("expected one search after the delay, got %d", f.backend.calls())
	}
	if q := f.backend.last().Get("query"); q != "ssh" {
		t.Errorf("expected latest input searched, got %q", q)
	}
}

func TestEventsView_FormSubmit(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(1), Total: 1, TotalPages: 1})

	f.press(t, key('f'))
	f.press(t, vaxis.Key{Keycode: vaxis.KeyTab})
	f.press(t, typeText("web-01")...)
	for i := 0; i < 3; i++ {
		f.press(t, vaxis.Key{Keycode: vaxis.KeyDown})
	}
	f.press(t, vaxis.Key{Keycode: vaxis.KeyRight}, vaxis.Key{Keycode: vaxis.KeyRight}, vaxis.Key{Keycode: vaxis.KeyRight})
	f.press(t, vaxis.Key{Keycode: vaxis.KeyEnter})

	if f.view.Editing() {
		t.Error("expected Enter to leave the form")
	}
	got := f.backend.last()
	want := url.Values{"hostname": {"web-01"}, "severity": {"high"}, "page": {"1"}, "page_size": {"50"}}
	if got.Encode() != want.Encode() {
		t.Errorf("expected %v, got %v", want, got)
	}
	if f.ctrl.DebouncePending() {
		t.Error("expected submit to cancel pending input")
	}
}

func TestEventsView_FocusedFieldIsUnderlined(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(1), Total: 1, TotalPages: 1})
	underlined := func() string {
		t.Helper()
		s, err := f.view.Draw(testDrawContext(140, 40))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return styledText(s, func(st vaxis.Style) bool {
			return st.UnderlineStyle == vaxis.UnderlineSingle
		})
	}

	if got := underlined(); got != "" {
		t.Errorf("expected nothing underlined outside the form, got %q", got)
	}
	f.press(t, key('/'))
	f.press(t, typeText("web")...)
	if got := underlined(); got != "web▏" {
		t.Errorf("expected focused query underlined, got %q", got)
	}
	f.press(t, vaxis.Key{Keycode: vaxis.KeyTab})
	if got := underlined(); got != "▏" {
		t.Errorf("expected only the empty hostname underlined, got %q", got)
	}
}

func TestEventsView_ErrorBanner(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(2), Total: 2, TotalPages: 1})
	f.view.Load()
	f.view.Wait()

	f.backend.mu.Lock()
	f.backend.err = fmt.Errorf("%w: %w", api.ErrBackendUnavailable, &api.HTTPError{Status: 503, StatusText: "Service Unavailable"})
	f.backend.mu.Unlock()
	f.press(t, key('R'))

	text := f.screen(t)
	for _, want := range []string{"Ошибка подключения к базе данных", "[R] Повторить", "host-01"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q on screen:\n%s", want, text)
		}
	}
}

func TestEventsView_Paging(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(50), Total: 120, TotalPages: 3})
	f.view.Load()
	f.view.Wait()

	text := f.screen(t)
	if !strings.Contains(text, "Вперёд →") || !strings.Contains(text, "[1]") {
		t.Errorf("expected pager:\n%s", text)
	}

	f.press(t, key('n'))
	if p := f.backend.last().Get("page"); p != "2" {
		t.Errorf("expected page 2, got %q", p)
	}
	f.press(t, key('G'))
	if p := f.backend.last().Get("page"); p != "3" {
		t.Errorf("expected last page, got %q", p)
	}

	calls := f.backend.calls()
	f.press(t, key('n'))
	if f.backend.calls() != calls {
		t.Error("expected next to be disabled on the last page")
	}

	f.press(t, key('+'))
	got := f.backend.last()
	if got.Get("page_size") != "100" || got.Get("page") != "1" {
		t.Errorf("expected page size 100 on page 1, got %v", got)
	}
}

func TestEventsView_ClearFilters(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(1), Total: 1, TotalPages: 1})
	f.press(t, key('/'))
	f.press(t, typeText("x")...)
	f.press(t, vaxis.Key{Keycode: vaxis.KeyEnter})

	f.press(t, key('c'))
	if f.view.Form() != (events.Filter{}) {
		t.Errorf("expected empty form, got %+v", f.view.Form())
	}
	if q := f.backend.last().Get("query"); q != "" {
		t.Errorf("expected no query after clearing, got %q", q)
	}
}

func TestEventsView_Export(t *testing.T) {
	f := newEventsFixture(t, &api.SearchResult{Events: sampleEvents(1), Total: 1, TotalPages: 1})
	f.press(t, key('x'))

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posted) != 1 {
		t.Fatalf("expected one posted event, got %d", len(f.posted))
	}
	done, ok := f.posted[0].(views.ExportFinished)
	if !ok {
		t.Fatalf("expected ExportFinished, got %T", f.posted[0])
	}
	if done.Err != nil || done.Format != "csv" {
		t.Fatalf("unexpected result %+v", done)
	}
	if _, err := os.Stat(done.Result.Path); err != nil {
		t.Errorf("expected export file: %v", err)
	}
}
