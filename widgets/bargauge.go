package widgets

import (
	"fmt"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// BarGauge is a horizontal bar showing a count relative to a maximum.
//
//	high      [████████░░░░░░░░░░░░]  1 204
type BarGauge struct {
	Label      string
	LabelWidth int     // left column width (default 10)
	Value      float64 // current count
	Max        float64 // value of a full bar; zero draws an empty bar
	Suffix     string  // text after the bar, typically the formatted count
	BarWidth   int     // character width of the [████░░░░] portion (excluding brackets)
	// Color overrides the fill colour; zero selects green/yellow/red by ratio.
	Color vaxis.Color
}

const (
	barFilled = '█' // U+2588
	barEmpty  = '░' // U+2591
)

// barColor returns the appropriate color for the given percentage.
func barColor(pct float64) vaxis.Color {
	switch {
	case pct >= 85:
		return vaxis.IndexColor(1) // red
	case pct >= 60:
		return vaxis.IndexColor(3) // yellow
	default:
		return vaxis.IndexColor(2) // green
	}
}

// Ratio returns Value/Max clamped to 0..1.
func (bg *BarGauge) Ratio() float64 {
	if bg.Max <= 0 || bg.Value <= 0 {
		return 0
	}
	return min(bg.Value/bg.Max, 1)
}

// Draw renders the bar gauge as a single row.
func (bg *BarGauge) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, bg)

	lw := bg.LabelWidth
	if lw == 0 {
		lw = 10
	}
	writeText(&s, 0, 0, lw, bg.Label, vaxis.Style{Attribute: vaxis.AttrBold}, false)
	col := uint16(lw + 1)

	for _, ch := range ctx.Characters("[") {
		s.WriteCell(col, 0, vaxis.Cell{Character: ch})
		col += uint16(ch.Width)
	}

	ratio := bg.Ratio()
	filled := int(ratio * float64(bg.BarWidth))
	if filled == 0 && bg.Value > 0 && bg.BarWidth > 0 {
		filled = 1
	}
	color := bg.Color
	if color == 0 {
		color = barColor(ratio * 100)
	}

	for i := 0; i < bg.BarWidth; i++ {
		ch := barEmpty
		style := vaxis.Style{Foreground: vaxis.IndexColor(8)} // dim for empty
		if i < filled {
			ch = barFilled
			style = vaxis.Style{Foreground: color}
		}
		for _, c := range ctx.Characters(string(ch)) {
			s.WriteCell(col, 0, vaxis.Cell{Character: c, Style: style})
			col += uint16(c.Width)
		}
	}

	for _, ch := range ctx.Characters("]") {
		s.WriteCell(col, 0, vaxis.Cell{Character: ch})
		col += uint16(ch.Width)
	}

	if bg.Suffix != "" {
		suffix := fmt.Sprintf("  %s", bg.Suffix)
		for _, ch := range ctx.Characters(suffix) {
			s.WriteCell(col, 0, vaxis.Cell{Character: ch, Style: vaxis.Style{Attribute: vaxis.AttrDim}})
			col += uint16(ch.Width)
		}
	}

	return s, nil
}
