package widgets_test

import (
	"testing"

	"github.com/deevus/siem-tui/widgets"
)

func TestSparkline_New(t *testing.T) {
	sl := widgets.NewSparkline(24)
	if sl.Count() != 24 {
		t.Errorf("expected count=24, got %d", sl.Count())
	}
}

func TestSparkline_SetValuesCopies(t *testing.T) {
	sl := widgets.NewSparkline(3)
	in := []float64{1, 2, 3, 4}
	sl.SetValues(in)
	in[0] = 99
	got := sl.Values()
	if len(got) != 4 || got[0] != 1 {
		t.Errorf("expected copied values, got %v", got)
	}
}

func TestSparkline_Draw_AllZero(t *testing.T) {
	sl := widgets.NewSparkline(10)
	s, err := sl.Draw(testDrawContext(20, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Height != 1 {
		t.Errorf("expected height=1, got %d", s.Size.Height)
	}
	if got := rowText(s, 0); got != "" {
		t.Errorf("expected blank chart for zero series, got %q", got)
	}
}

func TestSparkline_Draw_ScalesFromZero(t *testing.T) {
	sl := widgets.NewSparkline(0)
	sl.SetValues([]float64{0, 4, 8})
	s, err := sl.Draw(testDrawContext(10, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowText(s, 0); got != " ▄█" {
		t.Errorf("unexpected chart %q", got)
	}
}

func TestSparkline_Draw_MultiRow(t *testing.T) {
	sl := widgets.NewSparkline(0)
	sl.Height = 2
	sl.ColumnWidth = 2
	sl.SetValues([]float64{16, 8})
	s, err := sl.Draw(testDrawContext(10, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Height != 2 {
		t.Fatalf("expected height=2, got %d", s.Size.Height)
	}
	if got := rowText(s, 0); got != "██" {
		t.Errorf("top row: unexpected %q", got)
	}
	if got := rowText(s, 1); got != "████" {
		t.Errorf("bottom row: unexpected %q", got)
	}
}

func TestSparkline_Draw_MoreDataThanWidth(t *testing.T) {
	sl := widgets.NewSparkline(0)
	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = float64(i)
	}
	sl.SetValues(vals)

	s, err := sl.Draw(testDrawContext(10, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowText(s, 0); len([]rune(got)) != 10 {
		t.Errorf("expected 10 columns, got %q", got)
	}
}
