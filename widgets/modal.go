package widgets

import (
	"strings"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// ModalField is one labelled value in a Modal.
type ModalField struct {
	Label string
	Value string
	Style vaxis.Style
	// Block values are drawn below their label and wrapped.
	Block bool
}

// Modal is a bordered box of labelled fields with a title and footer hint.
type Modal struct {
	Title  string
	Fields []ModalField
	Footer string
	// LabelWidth is the width of the label column (default 14).
	LabelWidth int
}

var borderStyle = vaxis.Style{Foreground: vaxis.IndexColor(4)}

type modalLine struct {
	label string
	value string
	style vaxis.Style
}

func (m *Modal) lines(inner int) []modalLine {
	var out []modalLine
	for _, f := range m.Fields {
		if !f.Block {
			out = append(out, modalLine{label: f.Label, value: f.Value, style: f.Style})
			continue
		}
		out = append(out, modalLine{label: f.Label})
		for _, l := range wrap(f.Value, inner) {
			out = append(out, modalLine{value: l, style: f.Style})
		}
	}
	return out
}

// wrap splits s into lines of at most width runes, honouring newlines.
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		r := []rune(para)
		if len(r) == 0 {
			out = append(out, "")
			continue
		}
		for len(r) > width {
			out = append(out, string(r[:width]))
			r = r[width:]
		}
		out = append(out, string(r))
	}
	return out
}

// Draw renders the modal filling the available space.
func (m *Modal) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	w, h := ctx.Max.Width, ctx.Max.Height
	s := vxfw.NewSurface(w, h, m)
	if w < 4 || h < 3 {
		return s, nil
	}

	put := func(col, row uint16, g string) {
		s.WriteCell(col, row, vaxis.Cell{Character: vaxis.Character{Grapheme: g, Width: 1}, Style: borderStyle})
	}
	blank := vaxis.Cell{Character: vaxis.Character{Grapheme: " ", Width: 1}}
	for row := uint16(0); row < h; row++ {
		for col := uint16(0); col < w; col++ {
			s.WriteCell(col, row, blank)
		}
	}
	for col := uint16(1); col < w-1; col++ {
		put(col, 0, "─")
		put(col, h-1, "─")
	}
	for row := uint16(1); row < h-1; row++ {
		put(0, row, "│")
		put(w-1, row, "│")
	}
	put(0, 0, "┌")
	put(w-1, 0, "┐")
	put(0, h-1, "└")
	put(w-1, h-1, "┘")

	if m.Title != "" {
		writeText(&s, 2, 0, int(w)-4, " "+m.Title+" ", vaxis.Style{Attribute: vaxis.AttrBold}, false)
	}
	if m.Footer != "" {
		writeText(&s, 2, h-1, int(w)-4, " "+m.Footer+" ", vaxis.Style{Attribute: vaxis.AttrDim}, false)
	}

	lw := m.LabelWidth
	if lw == 0 {
		lw = 14
	}
	inner := int(w) - 4
	row := uint16(1)
	for _, l := range m.lines(inner) {
		if row >= h-1 {
			break
		}
		col := uint16(2)
		if l.label != "" {
			writeText(&s, col, row, min(lw, inner), l.label, vaxis.Style{Attribute: vaxis.AttrDim}, false)
			col += uint16(lw + 1)
		}
		if l.value != "" && int(col) < int(w)-2 {
			writeText(&s, col, row, int(w)-2-int(col), l.value, l.style, false)
		}
		row++
	}
	return s, nil
}
