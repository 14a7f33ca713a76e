package widgets_test

import (
	"strings"
	"testing"

	"git.sr.ht/~rockorager/vaxis"
	"github.com/deevus/siem-tui/widgets"
)

func TestPager_Draw(t *testing.T) {
	p := &widgets.Pager{
		Items: []widgets.PagerItem{
			{Label: "1"},
			{Label: "...", Gap: true},
			{Label: "4"},
			{Label: "5", Current: true},
			{Label: "6"},
		},
		PrevLabel:    "<",
		NextLabel:    ">",
		NextDisabled: true,
	}
	s, err := p.Draw(testDrawContext(40, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowText(s, 0); got != "<  1 ... 4 [5] 6  >" {
		t.Errorf("unexpected pager %q", got)
	}
	last := s.Buffer[len("<  1 ... 4 [5] 6  ")]
	if last.Style.Attribute&vaxis.AttrDim == 0 {
		t.Error("expected disabled next arrow to be dimmed")
	}
}

func TestPager_Draw_NoItems(t *testing.T) {
	s, err := (&widgets.Pager{}).Draw(testDrawContext(40, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Height != 0 {
		t.Errorf("expected empty surface, got height=%d", s.Size.Height)
	}
}

func TestToasts_Draw(t *testing.T) {
	tt := &widgets.Toasts{
		Width: 30,
		Items: []widgets.Toast{
			{Message: "old", Color: vaxis.IndexColor(2)},
			{Message: "Экспорт завершён", Color: vaxis.IndexColor(2)},
		},
	}
	s, err := tt.Draw(testDrawContext(80, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Width != 30 || s.Size.Height != 1 {
		t.Fatalf("unexpected size %+v", s.Size)
	}
	if got := rowText(s, 0); got != "▌ Экспорт завершён" {
		t.Errorf("expected newest toast kept, got %q", got)
	}
}

func TestModal_Draw(t *testing.T) {
	m := &widgets.Modal{
		Title:      "Событие 42",
		Footer:     "Esc закрыть",
		LabelWidth: 6,
		Fields: []widgets.ModalField{
			{Label: "Хост", Value: "web-01"},
			{Label: "Лог", Value: "line one\nline two", Block: true},
		},
	}
	s, err := m.Draw(testDrawContext(30, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowText(s, 0); !strings.Contains(got, "Событие 42") || !strings.HasPrefix(got, "┌") {
		t.Errorf("unexpected title row %q", got)
	}
	if got := rowText(s, 1); got != "│ Хост   web-01              │" {
		t.Errorf("unexpected field row %q", got)
	}
	if got := rowText(s, 3); !strings.Contains(got, "line one") {
		t.Errorf("expected wrapped block value, got %q", got)
	}
	if got := rowText(s, 7); !strings.Contains(got, "Esc закрыть") || !strings.HasPrefix(got, "└") {
		t.Errorf("unexpected footer row %q", got)
	}
}
