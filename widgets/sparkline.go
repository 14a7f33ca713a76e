package widgets

import (
	"math"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// Block characters for sparkline rendering (8 levels).
var sparkBlocks = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a column chart of a fixed series, scaled from zero to the
// series maximum. SetValues replaces the series in place so the widget
// keeps its identity across refreshes.
type Sparkline struct {
	values []float64
	// Height is the number of rows the chart uses (default 1).
	Height int
	// ColumnWidth is the number of cells per value (default 1).
	ColumnWidth int
	Style       vaxis.Style
}

// NewSparkline creates a Sparkline holding n zero values.
func NewSparkline(n int) *Sparkline {
	return &Sparkline{
		values: make([]float64, n),
		Style:  vaxis.Style{Foreground: vaxis.IndexColor(6)}, // cyan
	}
}

// SetValues replaces the series. The slice is copied.
func (sl *Sparkline) SetValues(vs []float64) {
	if cap(sl.values) >= len(vs) {
		sl.values = sl.values[:len(vs)]
	} else {
		sl.values = make([]float64, len(vs))
	}
	copy(sl.values, vs)
}

// Values returns a copy of the series.
func (sl *Sparkline) Values() []float64 {
	out := make([]float64, len(sl.values))
	copy(out, sl.values)
	return out
}

// Count returns the number of values in the series.
func (sl *Sparkline) Count() int {
	return len(sl.values)
}

// levels returns, for value v, how many eighth-blocks tall its column is
// out of rows*8.
func levels(v, maxV float64, rows int) int {
	if maxV <= 0 || v <= 0 {
		return 0
	}
	n := int(math.Round(v / maxV * float64(rows*8)))
	if n < 1 {
		n = 1
	}
	return min(n, rows*8)
}

// Draw renders the chart bottom-up across Height rows.
func (sl *Sparkline) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	rows := max(1, sl.Height)
	if rows > int(ctx.Max.Height) {
		rows = int(ctx.Max.Height)
	}
	s := vxfw.NewSurface(ctx.Max.Width, uint16(rows), sl)
	if rows == 0 || len(sl.values) == 0 {
		return s, nil
	}

	cw := max(1, sl.ColumnWidth)
	vals := sl.values
	// Limit to available width, keeping the most recent values.
	if fit := int(ctx.Max.Width) / cw; len(vals) > fit {
		vals = vals[len(vals)-fit:]
	}

	maxV := 0.0
	for _, v := range vals {
		maxV = math.Max(maxV, v)
	}

	for i, v := range vals {
		n := levels(v, maxV, rows)
		for r := 0; r < rows && n > 0; r++ {
			y := uint16(rows - 1 - r)
			level := min(n, 8)
			n -= level
			for _, c := range ctx.Characters(string(sparkBlocks[level-1])) {
				for k := 0; k < cw; k++ {
					s.WriteCell(uint16(i*cw+k), y, vaxis.Cell{Character: c, Style: sl.Style})
				}
			}
		}
	}

	return s, nil
}
