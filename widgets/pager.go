package widgets

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// PagerItem is one element of a Pager strip.
type PagerItem struct {
	Label   string
	Current bool
	// Gap items (ellipses) are not selectable.
	Gap bool
}

// Pager draws "← Назад  1 … 4 [5] 6 … 20  Вперёд →". Disabled arrows are dimmed.
type Pager struct {
	Items        []PagerItem
	PrevDisabled bool
	NextDisabled bool
	PrevLabel    string
	NextLabel    string
}

// Draw renders the pager on one row. A pager with no items draws nothing.
func (p *Pager) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	if len(p.Items) == 0 {
		return vxfw.NewSurface(ctx.Max.Width, 0, p), nil
	}
	s := vxfw.NewSurface(ctx.Max.Width, 1, p)

	prev, next := p.PrevLabel, p.NextLabel
	if prev == "" {
		prev = "← Назад"
	}
	if next == "" {
		next = "Вперёд →"
	}

	col := uint16(0)
	write := func(text string, style vaxis.Style) {
		for _, ch := range ctx.Characters(text) {
			if col >= ctx.Max.Width {
				return
			}
			s.WriteCell(col, 0, vaxis.Cell{Character: ch, Style: style})
			col += uint16(ch.Width)
		}
	}
	arrow := func(text string, disabled bool) {
		style := vaxis.Style{Foreground: vaxis.IndexColor(4)}
		if disabled {
			style = vaxis.Style{Attribute: vaxis.AttrDim}
		}
		write(text, style)
	}

	arrow(prev, p.PrevDisabled)
	write("  ", vaxis.Style{})
	for i, it := range p.Items {
		if i > 0 {
			write(" ", vaxis.Style{})
		}
		switch {
		case it.Gap:
			write(it.Label, vaxis.Style{Attribute: vaxis.AttrDim})
		case it.Current:
			write("["+it.Label+"]", vaxis.Style{Attribute: vaxis.AttrBold | vaxis.AttrReverse})
		default:
			write(it.Label, vaxis.Style{})
		}
	}
	write("  ", vaxis.Style{})
	arrow(next, p.NextDisabled)

	return s, nil
}
